package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/config"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
)

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected ping error for unreachable redis")
	}
}

func TestSummaryCache_GetErrorWhenDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	c := NewSummaryCache(client, time.Minute)
	s, _, err := c.Get(context.Background())
	if err == nil || s != nil {
		t.Fatalf("expected error and nil summary, got %v, %v", s, err)
	}
}

// Runs against a real server when TEST_REDIS_ADDR is set.
func TestSummaryCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, config.RedisConfig{Addr: addr})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	c := NewSummaryCache(client, time.Minute)
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	s, gen, err := c.Get(ctx)
	if err != nil || s != nil {
		t.Fatalf("expected miss, got %v, %v", s, err)
	}

	want := &services.Summary{TotalParticipantes: 2, TotalRecaudado: 420, TotalEsperado: 640}
	if err := c.Set(ctx, want, gen); err != nil {
		t.Fatal(err)
	}
	got, gotGen, err := c.Get(ctx)
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %v, %v", got, err)
	}
	if got.TotalRecaudado != 420 || got.TotalParticipantes != 2 || gotGen != gen {
		t.Fatalf("unexpected cached summary %+v (generation %d)", got, gotGen)
	}

	// a write computed before an invalidation is dropped
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, want, gen); err != nil {
		t.Fatal(err)
	}
	if s, next, err := c.Get(ctx); err != nil || s != nil || next != gen+1 {
		t.Fatalf("expected stale write to be dropped, got %v, %d, %v", s, next, err)
	}
	_ = c.Invalidate(ctx)
}
