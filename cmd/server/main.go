package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SaltyJahmale/week5/configs"
	"github.com/SaltyJahmale/week5/internal/handlers"
	"github.com/SaltyJahmale/week5/internal/images"
	"github.com/SaltyJahmale/week5/internal/jobs"
	"github.com/SaltyJahmale/week5/internal/ledger"
	"github.com/SaltyJahmale/week5/internal/logger"
	"github.com/SaltyJahmale/week5/internal/routes"
	"github.com/SaltyJahmale/week5/internal/seed"
	"github.com/SaltyJahmale/week5/internal/store"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	cfg, err := configs.Load()
	if err != nil {
		logger.Log.Fatal("failed to load config", zap.Error(err))
	}

	safeDB, err := store.Open(cfg.DB.SafeDSN)
	if err != nil {
		logger.Log.Fatal("failed to connect to safe database", zap.Error(err))
	}
	unsafeDB, err := store.Open(cfg.DB.UnsafeDSN)
	if err != nil {
		logger.Log.Fatal("failed to connect to unsafe database", zap.Error(err))
	}

	for _, db := range []*gorm.DB{safeDB, unsafeDB} {
		if err := store.Migrate(db); err != nil {
			logger.Log.Fatal("migrations failed", zap.Error(err))
		}
		if err := seed.Run(db); err != nil {
			logger.Log.Fatal("seed failed", zap.Error(err))
		}
	}
	logger.Log.Info("both schemas migrated and seeded")

	imgs, err := images.NewDir(cfg.Images.UploadDir, cfg.Images.AssetDir)
	if err != nil {
		logger.Log.Fatal("failed to prepare image storage", zap.Error(err))
	}

	safeEngine := ledger.New(store.NewBound(safeDB), imgs, logger.Log, ledger.Options{
		PageSize:        cfg.Market.PageSize,
		ValidateUploads: true,
	})
	unsafeEngine := ledger.New(store.NewInterpolated(unsafeDB), imgs, logger.Log, ledger.Options{
		PageSize: cfg.Market.PageSize,
	})

	secret := []byte(cfg.JWT.Secret)
	safeHandler := handlers.New(safeEngine, secret, logger.Log, true)
	unsafeHandler := handlers.New(unsafeEngine, secret, logger.Log, false)

	scheduler := jobs.NewScheduler(imgs, logger.Log, safeDB, unsafeDB)
	if err := scheduler.Start(cfg.Jobs.SweepSchedule); err != nil {
		logger.Log.Fatal("failed to start scheduler", zap.Error(err))
	}

	router := routes.New(safeHandler, unsafeHandler, secret)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	scheduler.Stop()

	for _, db := range []*gorm.DB{safeDB, unsafeDB} {
		sqlDB, err := db.DB()
		if err != nil {
			logger.Log.Error("db close skipped, reason:", zap.Error(err))
			continue
		}
		sqlDB.Close()
	}
	logger.Log.Info("server stopped")
}
