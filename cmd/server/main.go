package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/cache"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/config"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/logger"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/middleware"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/routes"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/storage"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/teams"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	// Initialize structured logging to file
	logOut := logger.Setup(cfg.Log.File, cfg.Log.Level)
	gin.SetMode(cfg.GinMode)

	db, err := config.InitDB(cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("database initialisation failed")
	}

	var summaryCache services.SummaryCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, summary cache disabled")
		} else {
			defer rdb.Close()
			summaryCache = cache.NewSummaryCache(rdb, cfg.Redis.TTL)
		}
	}

	var photos services.PhotoStore
	if cfg.S3.Bucket != "" {
		store, err := storage.NewS3(cfg.S3)
		if err != nil {
			logrus.WithError(err).Fatal("photo storage initialisation failed")
		}
		photos = store
	} else {
		logrus.Warn("S3_BUCKET not set, photo uploads disabled")
	}

	jwt := middleware.NewJWT(cfg.JWTSecret)
	r := routes.SetupRouter(routes.Deps{
		DB:           db,
		JWT:          jwt,
		Auth:         services.NewAuthService(db, jwt),
		Participants: services.NewParticipantService(db, summaryCache),
		Users: services.NewUserService(db, photos,
			teams.NewClient(cfg.TeamServiceURL, cfg.TeamServiceTimeout), cfg.BaseURL),
		UploadDir: cfg.UploadDir,
		AccessLog: logOut,
	})

	// Wrap with CORS
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.EnableCORS(cfg.CORSOrigins, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
	logrus.Info("server stopped")
}
