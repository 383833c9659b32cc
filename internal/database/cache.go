package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Cache implementation
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	CatalogKey       = "catalog:entries:%s:%t"
	CatalogKeyPrefix = "catalog:entries:*"
	SystemHealthKey  = "system:health"
)

// IsMiss reports whether err means the key was absent.
func IsMiss(err error) bool {
	return err == redis.Nil
}

func catalogKey(query models.CatalogQuery) string {
	lang := query.Language
	if lang == "" {
		lang = "all"
	}
	return fmt.Sprintf(CatalogKey, lang, query.ActiveOnly)
}

// CacheCatalog stores a projected catalog view.
func (c *Cache) CacheCatalog(ctx context.Context, query models.CatalogQuery, entries []models.CatalogEntry, expiration time.Duration) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog entries: %w", err)
	}

	return c.client.Set(ctx, catalogKey(query), data, expiration).Err()
}

// GetCachedCatalog returns redis.Nil on a miss.
func (c *Cache) GetCachedCatalog(ctx context.Context, query models.CatalogQuery) ([]models.CatalogEntry, error) {
	data, err := c.client.Get(ctx, catalogKey(query)).Bytes()
	if err != nil {
		return nil, err
	}

	var entries []models.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// InvalidateCatalog removes every cached catalog view.
func (c *Cache) InvalidateCatalog(ctx context.Context) (int, error) {
	var removed int
	iter := c.client.Scan(ctx, 0, CatalogKeyPrefix, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}

// CacheSystemHealth caches system health status
func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal system health: %w", err)
	}

	return c.client.Set(ctx, SystemHealthKey, data, expiration).Err()
}

// GetCachedSystemHealth retrieves cached system health
func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error) {
	data, err := c.client.Get(ctx, SystemHealthKey).Bytes()
	if err != nil {
		return nil, err
	}

	var health []models.SystemHealth
	err = json.Unmarshal(data, &health)
	return health, err
}
