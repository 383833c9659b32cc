// Package app wires configuration, storage and services into a runnable
// search engine shared by the server and the maintenance commands.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sankirtan-pos/backend/internal/api"
	"github.com/sankirtan-pos/backend/internal/config"
	"github.com/sankirtan-pos/backend/internal/database"
	"github.com/sankirtan-pos/backend/internal/health"
	"github.com/sankirtan-pos/backend/internal/maintenance"
	"github.com/sankirtan-pos/backend/internal/metrics"
	"github.com/sankirtan-pos/backend/internal/middleware"
	"github.com/sankirtan-pos/backend/internal/migration"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sankirtan-pos/backend/internal/repository"
	"github.com/sankirtan-pos/backend/internal/services"
	"github.com/sirupsen/logrus"
)

type App struct {
	Config   *config.Config
	DB       *database.Manager
	Repos    *repository.RepositoryManager
	Metrics  *metrics.Metrics
	Recorder *services.Recorder
	Search   *services.SearchService
	Health   *health.HealthChecker
	Pruner   *maintenance.Pruner

	limiter *middleware.RateLimiter
	logger  *logrus.Logger
}

func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	dbManager, err := database.NewManager(&database.Config{
		Driver:      cfg.Database.Driver,
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		return nil, err
	}

	var repos *repository.RepositoryManager
	if dbManager.DB == nil {
		entries, err := loadCatalogFile(cfg.Catalog.File)
		if err != nil {
			dbManager.Close()
			return nil, err
		}
		repos = repository.NewMemoryRepositoryManager(entries)
	} else {
		repos = repository.NewRepositoryManager(dbManager.DB)
	}
	if dbManager.Redis != nil && cfg.Cache.CatalogTTL > 0 {
		repos.WithCatalogCache(database.NewCache(dbManager.Redis, logger), cfg.Cache.CatalogTTL, logger)
	}

	m := metrics.New()

	def := services.DefaultRecorderConfig()
	recorder := services.NewRecorder(services.RecorderConfig{
		QueueSize:   cfg.Recorder.QueueSize,
		Workers:     cfg.Recorder.Workers,
		MaxRetries:  cfg.Recorder.MaxRetries,
		TaskTimeout: cfg.Recorder.TaskTimeout,
		BaseDelay:   def.BaseDelay,
		MaxDelay:    def.MaxDelay,
	}, m, logger)

	normalizer := services.NewQueryNormalizer(services.NormalizerConfig{
		DefaultLanguage: cfg.Search.DefaultLanguage,
		Languages:       cfg.Search.Languages,
		MaxQueryLength:  cfg.Search.MaxQueryLength,
	}, logger)
	suggestions := services.NewSuggestionIndex(repos.Suggestions, cfg.Suggestions.RetentionDays, services.SystemClock, logger)
	analytics := services.NewAnalyticsAggregator(repos.Events, cfg.Analytics.RetentionDays, services.SystemClock, logger)

	searchCfg := services.DefaultSearchConfig()
	searchCfg.PopularityWindowDays = cfg.Search.PopularityWindowDays
	searchCfg.SuggestionDefaultLimit = cfg.Suggestions.DefaultLimit
	searchCfg.SuggestionMaxLimit = cfg.Suggestions.MaxLimit

	search := services.NewSearchService(searchCfg, normalizer, repos.Catalog, suggestions, analytics, recorder, m, logger)

	a := &App{
		Config:   cfg,
		DB:       dbManager,
		Repos:    repos,
		Metrics:  m,
		Recorder: recorder,
		Search:   search,
		Health:   health.NewHealthChecker(dbManager, repos.SystemHealth, recorder, cfg.Recorder.QueueSize, m, logger),
		Pruner:   maintenance.NewPruner(search, cfg.Maintenance.Schedule, logger),
		logger:   logger,
	}
	if cfg.Server.RateLimit > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.Server.RateLimit)
	}
	return a, nil
}

// Migrate runs gorm auto-migration and, on postgres, the SQL files.
func (a *App) Migrate() error {
	return migration.NewRunner(a.DB, a.logger).RunMigrations(a.Config.Database.MigrationsPath)
}

// Router builds the HTTP handler.
func (a *App) Router() *gin.Engine {
	return api.NewRouter(api.RouterDeps{
		Search:    a.Search,
		Health:    a.Health,
		Metrics:   a.Metrics,
		Refresher: a.Repos,
		Limiter:   a.limiter,
		Logger:    a.logger,
	})
}

// Close drains background recording, then closes storage.
func (a *App) Close(ctx context.Context) error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	a.Pruner.Stop()

	err := a.Search.Close(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Background recording did not drain before shutdown")
	}
	if closeErr := a.DB.Close(); closeErr != nil {
		return closeErr
	}
	return err
}

// loadCatalogFile reads a JSON array of catalog entries for the memory driver.
func loadCatalogFile(path string) ([]models.CatalogEntry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var entries []models.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return entries, nil
}
