package models

import "time"

// Analytics rollup kinds.
const (
	AnalyticsPopular      = "popular"
	AnalyticsNoResults    = "no-results"
	AnalyticsTrends       = "trends"
	AnalyticsClickThrough = "click-through"
)

// QueryCount is a normalized query and how often it was searched in a window.
type QueryCount struct {
	Query          string    `json:"query"`
	DisplayText    string    `json:"displayText"`
	Count          int       `json:"count"`
	LastSearchedAt time.Time `json:"lastSearchedAt"`
}

// TrendPoint is the number of search events on one UTC day.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ClickThroughRate for one normalized query. CTR is nil when Searches is 0.
type ClickThroughRate struct {
	Query    string   `json:"query"`
	Searches int      `json:"searches"`
	Clicks   int      `json:"clicks"`
	CTR      *float64 `json:"ctr"`
}

// AnalyticsResult wraps any rollup with the parameters it was computed for.
type AnalyticsResult struct {
	Kind       string      `json:"kind"`
	WindowDays int         `json:"windowDays"`
	Limit      int         `json:"limit,omitempty"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Data       interface{} `json:"data"`
}
