package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sankirtan-pos/backend/internal/services"
	"github.com/sankirtan-pos/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Error codes in the response envelope.
const (
	CodeInvalidQuery     = "invalid_query"
	CodeNotFound         = "not_found"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal"
)

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, logger *logrus.Logger, message string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidQuery):
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, CodeInvalidQuery, message, err)
	case errors.Is(err, services.ErrNotFound):
		utils.ErrorResponseWithCode(c, http.StatusNotFound, CodeNotFound, message, err)
	case errors.Is(err, services.ErrStoreUnavailable):
		logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(message)
		utils.ErrorResponseWithCode(c, http.StatusServiceUnavailable, CodeStoreUnavailable, message, err)
	default:
		logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(message)
		utils.ErrorResponseWithCode(c, http.StatusInternalServerError, CodeInternal, message, nil)
	}
}

func badRequest(c *gin.Context, message string, err error) {
	utils.ErrorResponseWithCode(c, http.StatusBadRequest, CodeInvalidQuery, message, err)
}

// optionalInt reads an integer query parameter. Absent or blank is nil;
// out-of-range values saturate.
func optionalInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := models.ParseBoundInt(raw)
	if err != nil {
		return nil, &services.InvalidQueryError{Field: name, Reason: "not an integer"}
	}
	return &v, nil
}

// firstQuery returns the first non-empty parameter among names.
func firstQuery(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.Query(name); v != "" {
			return v
		}
	}
	return ""
}
