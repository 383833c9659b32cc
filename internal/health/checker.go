package health

import (
	"context"
	"fmt"
	"time"

	"github.com/sankirtan-pos/backend/internal/database"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Backlog is the background recorder as seen by the health check.
type Backlog interface {
	Depth() int
}

// DependencyObserver receives every check result. Implemented by metrics.
type DependencyObserver interface {
	SetDependency(service string, healthy bool)
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	dbManager  *database.Manager
	cache      *database.Cache
	healthRepo models.SystemHealthRepository
	backlog    Backlog
	capacity   int
	observer   DependencyObserver
	logger     *logrus.Logger
}

// NewHealthChecker builds a checker. healthRepo and observer may be nil; the
// redis cache is used only when the manager holds a redis client.
func NewHealthChecker(dbManager *database.Manager, healthRepo models.SystemHealthRepository, backlog Backlog, capacity int, observer DependencyObserver, logger *logrus.Logger) *HealthChecker {
	h := &HealthChecker{
		dbManager:  dbManager,
		healthRepo: healthRepo,
		backlog:    backlog,
		capacity:   capacity,
		observer:   observer,
		logger:     logger,
	}
	if dbManager.Redis != nil {
		h.cache = database.NewCache(dbManager.Redis, logger)
	}
	return h
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

func (h *HealthChecker) record(name string, start time.Time, status string, err error) ServiceHealth {
	responseTime := int(time.Since(start).Milliseconds())

	errorMsg := ""
	if err != nil {
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", name).Error("Health check failed")
	}

	if h.healthRepo != nil {
		if repoErr := h.healthRepo.UpdateServiceHealth(name, status, responseTime, errorMsg); repoErr != nil {
			h.logger.WithError(repoErr).WithField("service", name).Warn("Failed to persist health status")
		}
	}
	if h.observer != nil {
		h.observer.SetDependency(name, status != StatusUnhealthy)
	}

	return ServiceHealth{
		Name:         name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().UTC().Format(time.RFC3339),
	}
}

// CheckDatabase pings the relational store.
func (h *HealthChecker) CheckDatabase(ctx context.Context) ServiceHealth {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := h.dbManager.PingDatabase(ctx)
	status := StatusHealthy
	if err != nil {
		status = StatusUnhealthy
	}
	return h.record(h.dbManager.Driver, start, status, err)
}

// CheckRedis pings the cache. An unreachable cache degrades the service
// because reads fall through to the database.
func (h *HealthChecker) CheckRedis(ctx context.Context) ServiceHealth {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := h.dbManager.PingRedis(ctx)
	status := StatusHealthy
	if err != nil {
		status = StatusDegraded
	}
	return h.record("redis", start, status, err)
}

// CheckRecorder reports degraded once the backlog passes 80% of capacity.
func (h *HealthChecker) CheckRecorder() ServiceHealth {
	start := time.Now()

	var err error
	status := StatusHealthy
	if h.backlog != nil && h.capacity > 0 {
		depth := h.backlog.Depth()
		if depth*5 > h.capacity*4 {
			status = StatusDegraded
			err = fmt.Errorf("recorder backlog %d of %d", depth, h.capacity)
		}
	}
	return h.record("recorder", start, status, err)
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	var services []ServiceHealth
	if h.dbManager.DB != nil {
		services = append(services, h.CheckDatabase(ctx))
	}
	if h.dbManager.Redis != nil {
		services = append(services, h.CheckRedis(ctx))
	}
	services = append(services, h.CheckRecorder())

	return OverallHealth{
		Status:   overallStatus(services),
		Services: services,
		Uptime:   h.getUptime(),
	}
}

func overallStatus(services []ServiceHealth) string {
	status := StatusHealthy
	for _, service := range services {
		if service.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if service.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

// CheckCached returns cached health status if available
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, error) {
	if h.cache == nil {
		return nil, fmt.Errorf("health cache not configured")
	}
	cachedHealth, err := h.cache.GetCachedSystemHealth(ctx)
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(cachedHealth))
	for i, health := range cachedHealth {
		services[i] = ServiceHealth{
			Name:         health.ServiceName,
			Status:       health.Status,
			ResponseTime: health.ResponseTimeMs,
			Error:        health.ErrorMessage,
			LastChecked:  health.CheckedAt.Format(time.RFC3339),
		}
	}

	return &OverallHealth{
		Status:   overallStatus(services),
		Services: services,
		Uptime:   h.getUptime(),
	}, nil
}

var startTime = time.Now()

func (h *HealthChecker) getUptime() string {
	return time.Since(startTime).Round(time.Second).String()
}

// PeriodicHealthCheck runs health checks periodically
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll(ctx)
			h.cacheHealth(health, 2*interval)
			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}

func (h *HealthChecker) cacheHealth(health OverallHealth, expiration time.Duration) {
	if h.cache == nil {
		return
	}

	healthModels := make([]models.SystemHealth, len(health.Services))
	for i, service := range health.Services {
		checkedAt, _ := time.Parse(time.RFC3339, service.LastChecked)
		healthModels[i] = models.SystemHealth{
			ServiceName:    service.Name,
			Status:         service.Status,
			ResponseTimeMs: service.ResponseTime,
			ErrorMessage:   service.Error,
			CheckedAt:      checkedAt,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.cache.CacheSystemHealth(ctx, healthModels, expiration); err != nil {
		h.logger.WithError(err).Error("Failed to cache health status")
	}
}
