package repository

import (
	"context"
	"time"

	"github.com/sankirtan-pos/backend/internal/database"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Suggestions  models.SuggestionRepository
	Events       models.SearchEventRepository
	Catalog      models.CatalogSource
	SystemHealth models.SystemHealthRepository

	cached *CachedCatalog
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Suggestions:  NewSuggestionRepository(db),
		Events:       NewSearchEventRepository(db),
		Catalog:      NewCatalogRepository(db),
		SystemHealth: NewSystemHealthRepository(db),
	}
}

// NewMemoryRepositoryManager keeps everything in process. Health history is
// not persisted.
func NewMemoryRepositoryManager(entries []models.CatalogEntry) *RepositoryManager {
	return &RepositoryManager{
		Suggestions: NewMemorySuggestionStore(),
		Events:      NewMemorySearchEventStore(),
		Catalog:     NewStaticCatalog(entries),
	}
}

// WithCatalogCache puts redis in front of the catalog source.
func (m *RepositoryManager) WithCatalogCache(cache *database.Cache, ttl time.Duration, logger *logrus.Logger) *RepositoryManager {
	m.cached = NewCachedCatalog(m.Catalog, cache, ttl, logger)
	m.Catalog = m.cached
	return m
}

// RefreshCatalog drops cached catalog views. Without a cache it is a no-op.
func (m *RepositoryManager) RefreshCatalog(ctx context.Context) (int, error) {
	if m.cached == nil {
		return 0, nil
	}
	return m.cached.Invalidate(ctx)
}
