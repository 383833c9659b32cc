package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sankirtan-pos/backend/internal/services"
	"github.com/sankirtan-pos/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type EventsHandler struct {
	searchService *services.SearchService
	logger        *logrus.Logger
}

func NewEventsHandler(searchService *services.SearchService, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// HandleSearchEvent records a search performed by another surface, such as a
// barcode lookup at the till.
func (h *EventsHandler) HandleSearchEvent(c *gin.Context) {
	var req models.SearchEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid search event format", err)
		return
	}

	var userID *string
	if req.UserID != nil {
		if uid := strings.TrimSpace(*req.UserID); uid != "" {
			userID = &uid
		}
	}

	eventID, err := h.searchService.RecordSearchEvent(c.Request.Context(), req.QueryText, *req.ResultCount, userID)
	if err != nil {
		respondError(c, h.logger, "Failed to record search event", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Search event recorded", models.SearchEventResponse{EventID: eventID})
}

// HandleClickEvent correlates a click with a recorded search.
func (h *EventsHandler) HandleClickEvent(c *gin.Context) {
	var req models.ClickEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid click event format", err)
		return
	}

	if err := h.searchService.RecordClickEvent(c.Request.Context(), req.EventID, req.EntryID); err != nil {
		respondError(c, h.logger, "Failed to record click", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"event_id": req.EventID,
		"entry_id": req.EntryID,
	}).Info("Click recorded")

	utils.SuccessResponse(c, http.StatusOK, "Click recorded", nil)
}

// HandleAnalytics serves GET /analytics/:kind.
func (h *EventsHandler) HandleAnalytics(c *gin.Context) {
	limit, err := optionalInt(c, "limit")
	if err != nil {
		respondError(c, h.logger, "Invalid analytics request", err)
		return
	}
	windowDays, err := optionalInt(c, "windowDays")
	if err != nil {
		respondError(c, h.logger, "Invalid analytics request", err)
		return
	}

	result, err := h.searchService.Analytics(c.Request.Context(), c.Param("kind"), limit, windowDays)
	if err != nil {
		respondError(c, h.logger, "Failed to compute analytics", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Analytics computed", result)
}
