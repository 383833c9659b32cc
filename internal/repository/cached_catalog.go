package repository

import (
	"context"
	"time"

	"github.com/sankirtan-pos/backend/internal/database"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// CachedCatalog serves catalog views from redis and falls through to the
// source on a miss. A redis failure is logged and never fails the read.
type CachedCatalog struct {
	source models.CatalogSource
	cache  *database.Cache
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedCatalog(source models.CatalogSource, cache *database.Cache, ttl time.Duration, logger *logrus.Logger) *CachedCatalog {
	return &CachedCatalog{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedCatalog) Entries(ctx context.Context, query models.CatalogQuery) ([]models.CatalogEntry, error) {
	entries, err := c.cache.GetCachedCatalog(ctx, query)
	if err == nil {
		return entries, nil
	}
	if !database.IsMiss(err) {
		c.logger.WithError(err).Warn("Catalog cache read failed")
	}

	entries, err = c.source.Entries(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := c.cache.CacheCatalog(ctx, query, entries, c.ttl); err != nil {
		c.logger.WithError(err).Warn("Catalog cache write failed")
	}
	return entries, nil
}

// Invalidate drops every cached view so the next read hits the source.
func (c *CachedCatalog) Invalidate(ctx context.Context) (int, error) {
	removed, err := c.cache.InvalidateCatalog(ctx)
	if err != nil {
		return removed, err
	}
	c.logger.WithField("keys", removed).Info("Catalog cache invalidated")
	return removed, nil
}
