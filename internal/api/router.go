// Package api assembles the HTTP surface.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sankirtan-pos/backend/internal/api/handlers"
	"github.com/sankirtan-pos/backend/internal/health"
	"github.com/sankirtan-pos/backend/internal/metrics"
	"github.com/sankirtan-pos/backend/internal/middleware"
	"github.com/sankirtan-pos/backend/internal/services"
	"github.com/sirupsen/logrus"
)

type RouterDeps struct {
	Search    *services.SearchService
	Health    *health.HealthChecker
	Metrics   *metrics.Metrics
	Refresher handlers.CatalogRefresher
	Limiter   *middleware.RateLimiter
	Logger    *logrus.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(deps.Logger),
		middleware.SecurityHeaders(),
	)

	system := handlers.NewSystemHandler(deps.Health, deps.Refresher, deps.Logger)
	router.GET("/health", system.HandleHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	if deps.Limiter != nil {
		v1.Use(deps.Limiter.RateLimit())
	}

	search := handlers.NewSearchHandler(deps.Search, deps.Logger)
	v1.GET("/search", search.HandleSearch)
	v1.POST("/search", search.HandleSearchPost)
	v1.GET("/suggestions", search.HandleSuggestions)

	events := handlers.NewEventsHandler(deps.Search, deps.Logger)
	v1.POST("/events/search", events.HandleSearchEvent)
	v1.POST("/events/click", events.HandleClickEvent)
	v1.GET("/analytics/:kind", events.HandleAnalytics)

	v1.POST("/catalog/refresh", system.HandleCatalogRefresh)

	return router
}
