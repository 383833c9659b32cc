package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sankirtan-pos/backend/internal/app"
	"github.com/sankirtan-pos/backend/internal/config"
	"github.com/sankirtan-pos/backend/pkg/utils"
)

var (
	skipMigrations = flag.Bool("skip-migrations", false, "Don't run database migrations on startup")
	shutdownGrace  = flag.Duration("shutdown-grace", 15*time.Second, "Time allowed for in-flight requests and background recording")
)

func main() {
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.InitLogger(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	logger.WithField("driver", cfg.Database.Driver).Info("Starting POS search service...")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	if !*skipMigrations {
		if err := application.Migrate(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Pruner.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to schedule retention sweep")
	}
	if cfg.Health.Interval > 0 {
		go application.Health.PeriodicHealthCheck(ctx, cfg.Health.Interval)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := application.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown incomplete")
	}

	logger.Info("Shutdown complete")
}
