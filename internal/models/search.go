package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sort options for search results.
const (
	SortRelevance  = "relevance"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortName       = "name"
	SortPopularity = "popularity"
)

// ValidSortOptions returns the closed set of sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortName, SortPopularity}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// RawSearchRequest is the untrusted request as decoded from a query string or
// a JSON body. Filters may be a JSON object or a JSON string holding one.
type RawSearchRequest struct {
	Text       string          `json:"text"`
	CategoryID string          `json:"categoryId"`
	Language   string          `json:"language"`
	SortBy     string          `json:"sortBy"`
	Limit      *int            `json:"limit"`
	Offset     *int            `json:"offset"`
	Track      bool            `json:"track"`
	UserID     string          `json:"userId"`
	Filters    json.RawMessage `json:"filters"`
}

// UnmarshalJSON decodes limit and offset with ParseBoundInt so oversized
// values saturate instead of failing the whole body.
func (r *RawSearchRequest) UnmarshalJSON(data []byte) error {
	type plain RawSearchRequest
	aux := struct {
		*plain
		Limit  json.RawMessage `json:"limit"`
		Offset json.RawMessage `json:"offset"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if r.Limit, err = decodeBoundInt("limit", aux.Limit); err != nil {
		return err
	}
	if r.Offset, err = decodeBoundInt("offset", aux.Offset); err != nil {
		return err
	}
	return nil
}

func decodeBoundInt(field string, raw json.RawMessage) (*int, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, nil
	}
	v, err := ParseBoundInt(strings.Trim(text, `"`))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &v, nil
}

// ParseBoundInt parses a base-10 integer. Values outside the int range
// saturate to the nearest bound; callers clamp them afterwards.
func ParseBoundInt(s string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, strconv.IntSize)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(v), nil
}

// Filters are additive refinements; every field is optional.
type Filters struct {
	PriceMin   *float64            `json:"priceMin,omitempty"`
	PriceMax   *float64            `json:"priceMax,omitempty"`
	InStock    bool                `json:"inStock,omitempty"`
	Categories []string            `json:"categories,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// Empty reports whether no refinement is set.
func (f Filters) Empty() bool {
	return f.PriceMin == nil && f.PriceMax == nil && !f.InStock &&
		len(f.Categories) == 0 && len(f.Attributes) == 0
}

// SearchRequest is the canonical, validated request.
type SearchRequest struct {
	Text           string  `json:"text"`
	NormalizedText string  `json:"normalizedText"`
	CategoryID     *string `json:"categoryId,omitempty"`
	Language       string  `json:"language"`
	SortBy         string  `json:"sortBy"`
	Limit          int     `json:"limit"`
	Offset         int     `json:"offset"`
	Filters        Filters `json:"filters"`
	Track          bool    `json:"track"`
	UserID         *string `json:"userId,omitempty"`
}

// Matched field names reported on a RankedHit.
const (
	FieldNameExact    = "name_exact"
	FieldKeywordExact = "keyword_exact"
	FieldName         = "name"
	FieldKeywords     = "keywords"
	FieldAttributes   = "attributes"
)

// RankedHit is one ordered search result. It is never persisted.
type RankedHit struct {
	EntryID       string        `json:"entryId"`
	Score         float64       `json:"score"`
	MatchedFields []string      `json:"matchedFields"`
	Entry         *CatalogEntry `json:"entry,omitempty"`
}

// SearchResponse is returned by the search facade.
type SearchResponse struct {
	Hits         []RankedHit `json:"hits"`
	Total        int         `json:"total"`
	Limit        int         `json:"limit"`
	Offset       int         `json:"offset"`
	EventID      string      `json:"eventId,omitempty"`
	ResponseTime int         `json:"response_time_ms"`
}
