package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sankirtan-pos/backend/internal/services"
	"github.com/sankirtan-pos/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type SearchHandler struct {
	searchService *services.SearchService
	logger        *logrus.Logger
}

func NewSearchHandler(searchService *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// HandleSearch serves GET /search. The query string decodes into the same
// raw request a POST body does.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	raw, err := h.rawFromQuery(c)
	if err != nil {
		respondError(c, h.logger, "Invalid search request", err)
		return
	}
	h.search(c, raw)
}

// HandleSearchPost serves POST /search with a JSON body.
func (h *SearchHandler) HandleSearchPost(c *gin.Context) {
	var raw models.RawSearchRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	h.search(c, raw)
}

func (h *SearchHandler) search(c *gin.Context, raw models.RawSearchRequest) {
	resp, err := h.searchService.Search(c.Request.Context(), raw)
	if err != nil {
		respondError(c, h.logger, "Search failed", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":    c.GetString("request_id"),
		"results_count": resp.Total,
		"response_time": resp.ResponseTime,
	}).Info("Search completed successfully")

	utils.SuccessResponse(c, http.StatusOK, "Search completed", resp)
}

func (h *SearchHandler) rawFromQuery(c *gin.Context) (models.RawSearchRequest, error) {
	raw := models.RawSearchRequest{
		Text:       firstQuery(c, "q", "text"),
		CategoryID: c.Query("categoryId"),
		Language:   c.Query("language"),
		SortBy:     c.Query("sortBy"),
		UserID:     c.Query("userId"),
	}

	var err error
	if raw.Limit, err = optionalInt(c, "limit"); err != nil {
		return raw, err
	}
	if raw.Offset, err = optionalInt(c, "offset"); err != nil {
		return raw, err
	}
	if track := strings.TrimSpace(c.Query("track")); track != "" {
		if raw.Track, err = strconv.ParseBool(track); err != nil {
			return raw, &services.InvalidQueryError{Field: "track", Reason: "not a boolean"}
		}
	}

	raw.Filters = h.filtersFromQuery(c.Request.URL.Query())
	return raw, nil
}

// filtersFromQuery merges the "filters" JSON parameter with the flat filter
// parameters (priceMin, inStock, categories, attr.<name>). Flat parameters
// replace the same key from the JSON parameter.
func (h *SearchHandler) filtersFromQuery(values url.Values) json.RawMessage {
	var base json.RawMessage
	if encoded := strings.TrimSpace(values.Get("filters")); encoded != "" {
		if json.Valid([]byte(encoded)) {
			base = json.RawMessage(encoded)
		} else {
			// Let the normalizer reject it with a warning.
			base, _ = json.Marshal(encoded)
		}
	}

	flat := map[string]interface{}{}
	for _, key := range []string{"priceMin", "priceMax", "inStock"} {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			flat[key] = v
		}
	}
	if cats := splitValues(values["categories"]); len(cats) > 0 {
		flat["categories"] = cats
	}
	attrs := map[string][]string{}
	for key, vs := range values {
		if name := strings.TrimPrefix(key, "attr."); name != key && name != "" {
			if accepted := splitValues(vs); len(accepted) > 0 {
				attrs[name] = accepted
			}
		}
	}
	if len(attrs) > 0 {
		flat["attributes"] = attrs
	}

	if len(flat) == 0 {
		return base
	}

	merged := map[string]interface{}{}
	if base != nil {
		if fields, ok := decodeFilterObject(base); ok {
			for k, v := range fields {
				merged[k] = v
			}
		} else {
			h.logger.WithFields(logrus.Fields{
				"filter": "filters",
				"reason": "not a JSON object",
			}).Warn("Dropping malformed search filter")
		}
	}
	for k, v := range flat {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return base
	}
	return data
}

func decodeFilterObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// splitValues flattens repeated and comma separated parameter values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// HandleSuggestions serves GET /suggestions.
func (h *SearchHandler) HandleSuggestions(c *gin.Context) {
	prefix := firstQuery(c, "prefix", "q")
	limit, err := optionalInt(c, "limit")
	if err != nil {
		respondError(c, h.logger, "Invalid suggestion request", err)
		return
	}

	suggestions, lang, err := h.searchService.GetSuggestions(c.Request.Context(), prefix, c.Query("language"), limit)
	if err != nil {
		respondError(c, h.logger, "Failed to get suggestions", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Suggestions retrieved", models.SuggestionsResponse{
		Prefix:      prefix,
		Language:    lang,
		Suggestions: suggestions,
	})
}
