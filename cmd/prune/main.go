package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sankirtan-pos/backend/internal/app"
	"github.com/sankirtan-pos/backend/internal/config"
	"github.com/sankirtan-pos/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

var (
	suggestionDays = flag.Int("suggestion-days", -1, "Override suggestions.retention_days (-1 = use config)")
	eventDays      = flag.Int("event-days", -1, "Override analytics.retention_days (-1 = use config)")
	timeout        = flag.Duration("timeout", 10*time.Minute, "Abort the sweep after this long")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *suggestionDays >= 0 {
		cfg.Suggestions.RetentionDays = *suggestionDays
	}
	if *eventDays >= 0 {
		cfg.Analytics.RetentionDays = *eventDays
	}

	logger := utils.InitLogger(cfg.Log.Level)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if cfg.Suggestions.RetentionDays == 0 && cfg.Analytics.RetentionDays == 0 {
		logger.Info("Retention is unbounded for suggestions and events, nothing to prune")
		return
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := application.Pruner.RunOnce(ctx)
	if closeErr := application.Close(ctx); closeErr != nil {
		logger.WithError(closeErr).Warn("Shutdown incomplete")
	}
	if err != nil {
		logger.WithError(err).Fatal("Retention sweep failed")
	}

	fmt.Printf("pruned %d suggestion entries and %d search events in %s\n",
		result.Suggestions, result.Events, result.Duration.Round(time.Millisecond))
}
