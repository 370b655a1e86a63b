package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/models"
)

// newTestDB returns a private in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func assertValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return ve
}

type memoryCache struct {
	mu            sync.Mutex
	summary       *Summary
	generation    int64
	sets          int
	invalidations int
	afterGet      func()
}

func (m *memoryCache) Get(context.Context) (*Summary, int64, error) {
	m.mu.Lock()
	s, gen, hook := m.summary, m.generation, m.afterGet
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s, gen, nil
}

func (m *memoryCache) Set(_ context.Context, s *Summary, generation int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		return nil
	}
	m.sets++
	m.summary = s
	return nil
}

func (m *memoryCache) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations++
	m.generation++
	m.summary = nil
	return nil
}
