package models

// SearchEventRequest records a search performed outside the search endpoint.
type SearchEventRequest struct {
	QueryText   string  `json:"queryText" binding:"required"`
	ResultCount *int    `json:"resultCount" binding:"required"`
	UserID      *string `json:"userId"`
}

// ClickEventRequest correlates a click with an earlier search event.
type ClickEventRequest struct {
	EventID string `json:"eventId" binding:"required"`
	EntryID string `json:"entryId" binding:"required"`
}

type SearchEventResponse struct {
	EventID string `json:"eventId"`
}

type SuggestionsResponse struct {
	Prefix      string   `json:"prefix"`
	Language    string   `json:"language"`
	Suggestions []string `json:"suggestions"`
}
