package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

// AnalyticsAggregator records search and click events and recomputes rollups
// from the immutable log on every read.
type AnalyticsAggregator struct {
	repo          models.SearchEventRepository
	retentionDays int
	now           Clock
	logger        *logrus.Logger
}

func NewAnalyticsAggregator(repo models.SearchEventRepository, retentionDays int, now Clock, logger *logrus.Logger) *AnalyticsAggregator {
	if now == nil {
		now = SystemClock
	}
	return &AnalyticsAggregator{
		repo:          repo,
		retentionDays: retentionDays,
		now:           now,
		logger:        logger,
	}
}

// NewEventID allocates a search event id.
func NewEventID() string {
	return uuid.NewString()
}

// RecordSearch appends a search event and returns its id.
func (a *AnalyticsAggregator) RecordSearch(ctx context.Context, queryText string, resultCount int, userID *string) (string, error) {
	id := NewEventID()
	if err := a.AppendSearch(ctx, id, queryText, resultCount, userID); err != nil {
		return "", err
	}
	return id, nil
}

// AppendSearch appends a search event under a caller-assigned id.
func (a *AnalyticsAggregator) AppendSearch(ctx context.Context, id, queryText string, resultCount int, userID *string) error {
	normalized := NormalizeText(queryText)
	if normalized == "" {
		return invalidQuery("queryText", "must not be empty")
	}
	if resultCount < 0 {
		return invalidQuery("resultCount", "must not be negative")
	}

	event := &models.SearchEvent{
		ID:             id,
		QueryText:      strings.TrimSpace(queryText),
		NormalizedText: normalized,
		ResultCount:    resultCount,
		UserID:         userID,
		SearchedAt:     a.now(),
	}
	if err := a.repo.Append(ctx, event); err != nil {
		return storeUnavailable("event", err)
	}

	a.logger.WithFields(logrus.Fields{
		"event_id":     id,
		"query":        normalized,
		"result_count": resultCount,
	}).Debug("Search event recorded")
	return nil
}

// RecordClick correlates a click with an earlier search event. Unknown ids and
// ids older than the retention window are NotFound.
func (a *AnalyticsAggregator) RecordClick(ctx context.Context, eventID, entryID string) error {
	eventID = strings.TrimSpace(eventID)
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return invalidQuery("entryId", "must not be empty")
	}
	if eventID == "" {
		return &NotFoundError{Resource: "search event", ID: eventID}
	}

	event, err := a.repo.Get(ctx, eventID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return &NotFoundError{Resource: "search event", ID: eventID}
	}
	if err != nil {
		return storeUnavailable("event", err)
	}

	now := a.now()
	if a.retentionDays > 0 && event.SearchedAt.Before(now.AddDate(0, 0, -a.retentionDays)) {
		return &NotFoundError{Resource: "search event", ID: eventID}
	}

	err = a.repo.SetClick(ctx, eventID, entryID, now)
	if errors.Is(err, models.ErrRecordNotFound) {
		return &NotFoundError{Resource: "search event", ID: eventID}
	}
	if err != nil {
		return storeUnavailable("event", err)
	}

	a.logger.WithFields(logrus.Fields{
		"event_id": eventID,
		"entry_id": entryID,
	}).Debug("Click recorded")
	return nil
}

// Window returns the first day and the current instant covered by a window
// of windowDays days. Today counts as the last day.
func (a *AnalyticsAggregator) Window(windowDays int) (time.Time, time.Time) {
	if windowDays < 1 {
		windowDays = 1
	}
	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(windowDays - 1)), now
}

func (a *AnalyticsAggregator) load(ctx context.Context, windowDays int) ([]models.SearchEvent, time.Time, error) {
	since, _ := a.Window(windowDays)
	events, err := a.repo.ListActiveSince(ctx, since)
	if err != nil {
		return nil, since, storeUnavailable("event", err)
	}
	return events, since, nil
}

// PopularSearches ranks normalized queries by event count, then recency.
func (a *AnalyticsAggregator) PopularSearches(ctx context.Context, limit, windowDays int) ([]models.QueryCount, error) {
	events, since, err := a.load(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	return countQueries(events, since, limit, func(models.SearchEvent) bool { return true }), nil
}

// NoResultSearches ranks queries that found nothing. These are catalog gaps.
func (a *AnalyticsAggregator) NoResultSearches(ctx context.Context, limit, windowDays int) ([]models.QueryCount, error) {
	events, since, err := a.load(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	return countQueries(events, since, limit, func(e models.SearchEvent) bool { return e.ResultCount == 0 }), nil
}

// SearchTrends returns exactly windowDays points, oldest first, zero-filled.
func (a *AnalyticsAggregator) SearchTrends(ctx context.Context, windowDays int) ([]models.TrendPoint, error) {
	if windowDays < 1 {
		windowDays = 1
	}
	events, since, err := a.load(ctx, windowDays)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, windowDays)
	for _, e := range events {
		if e.SearchedAt.Before(since) {
			continue
		}
		counts[e.SearchedAt.UTC().Format(dayLayout)]++
	}

	points := make([]models.TrendPoint, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		day := since.AddDate(0, 0, i).Format(dayLayout)
		points = append(points, models.TrendPoint{Date: day, Count: counts[day]})
	}
	return points, nil
}

// ClickThroughRates counts searches by search time and clicks by click time
// inside the window. CTR stays nil when there were no searches.
func (a *AnalyticsAggregator) ClickThroughRates(ctx context.Context, limit, windowDays int) ([]models.ClickThroughRate, error) {
	events, since, err := a.load(ctx, windowDays)
	if err != nil {
		return nil, err
	}

	byQuery := map[string]*models.ClickThroughRate{}
	get := func(q string) *models.ClickThroughRate {
		r, ok := byQuery[q]
		if !ok {
			r = &models.ClickThroughRate{Query: q}
			byQuery[q] = r
		}
		return r
	}

	for _, e := range events {
		if !e.SearchedAt.Before(since) {
			get(e.NormalizedText).Searches++
		}
		if e.ClickedAt != nil && !e.ClickedAt.Before(since) {
			get(e.NormalizedText).Clicks++
		}
	}

	rates := make([]models.ClickThroughRate, 0, len(byQuery))
	for _, r := range byQuery {
		if r.Searches > 0 {
			ctr := float64(r.Clicks) / float64(r.Searches)
			r.CTR = &ctr
		}
		rates = append(rates, *r)
	}

	sort.Slice(rates, func(i, j int) bool {
		if rates[i].Searches != rates[j].Searches {
			return rates[i].Searches > rates[j].Searches
		}
		if rates[i].Clicks != rates[j].Clicks {
			return rates[i].Clicks > rates[j].Clicks
		}
		return rates[i].Query < rates[j].Query
	})

	if limit > 0 && len(rates) > limit {
		rates = rates[:limit]
	}
	return rates, nil
}

// EntryPopularity returns clicks per catalog entry inside the window.
func (a *AnalyticsAggregator) EntryPopularity(ctx context.Context, windowDays int) (map[string]int, error) {
	since, _ := a.Window(windowDays)
	counts, err := a.repo.ClickCountsSince(ctx, since)
	if err != nil {
		return nil, storeUnavailable("event", err)
	}

	popularity := make(map[string]int, len(counts))
	for _, c := range counts {
		popularity[c.EntryID] = c.Clicks
	}
	return popularity, nil
}

// Prune deletes events older than the retention window. Zero keeps everything.
func (a *AnalyticsAggregator) Prune(ctx context.Context) (int64, error) {
	if a.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := a.now().AddDate(0, 0, -a.retentionDays)
	removed, err := a.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, storeUnavailable("event", err)
	}
	return removed, nil
}

func countQueries(events []models.SearchEvent, since time.Time, limit int, keep func(models.SearchEvent) bool) []models.QueryCount {
	byQuery := map[string]*models.QueryCount{}
	for _, e := range events {
		if e.SearchedAt.Before(since) || !keep(e) {
			continue
		}
		qc, ok := byQuery[e.NormalizedText]
		if !ok {
			qc = &models.QueryCount{Query: e.NormalizedText}
			byQuery[e.NormalizedText] = qc
		}
		qc.Count++
		if !e.SearchedAt.Before(qc.LastSearchedAt) {
			qc.LastSearchedAt = e.SearchedAt
			qc.DisplayText = e.QueryText
		}
	}

	counts := make([]models.QueryCount, 0, len(byQuery))
	for _, qc := range byQuery {
		counts = append(counts, *qc)
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		if !counts[i].LastSearchedAt.Equal(counts[j].LastSearchedAt) {
			return counts[i].LastSearchedAt.After(counts[j].LastSearchedAt)
		}
		return counts[i].Query < counts[j].Query
	})

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
