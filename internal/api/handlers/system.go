package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sankirtan-pos/backend/internal/health"
	"github.com/sankirtan-pos/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// CatalogRefresher drops cached catalog views.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) (int, error)
}

type SystemHandler struct {
	checker   *health.HealthChecker
	refresher CatalogRefresher
	logger    *logrus.Logger
}

func NewSystemHandler(checker *health.HealthChecker, refresher CatalogRefresher, logger *logrus.Logger) *SystemHandler {
	return &SystemHandler{
		checker:   checker,
		refresher: refresher,
		logger:    logger,
	}
}

// HandleHealth prefers the periodic result cached in redis and checks live
// otherwise. ?live=true forces a live check.
func (h *SystemHandler) HandleHealth(c *gin.Context) {
	ctx := c.Request.Context()

	var overall health.OverallHealth
	if c.Query("live") == "true" {
		overall = h.checker.CheckAll(ctx)
	} else if cached, err := h.checker.CheckCached(ctx); err == nil && len(cached.Services) > 0 {
		overall = *cached
	} else {
		overall = h.checker.CheckAll(ctx)
	}

	status := http.StatusOK
	if overall.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, overall)
}

// HandleCatalogRefresh invalidates the catalog cache.
func (h *SystemHandler) HandleCatalogRefresh(c *gin.Context) {
	removed, err := h.refresher.RefreshCatalog(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Catalog cache invalidation failed")
		utils.ErrorResponseWithCode(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "Catalog refresh failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Catalog refreshed", gin.H{"invalidated": removed})
}
