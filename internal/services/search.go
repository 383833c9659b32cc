package services

import (
	"context"
	"time"

	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcomes reported to a SearchObserver.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
)

// SearchObserver receives one observation per search call.
type SearchObserver interface {
	ObserveSearch(sortBy, outcome string, elapsed time.Duration)
}

type noopSearchObserver struct{}

func (noopSearchObserver) ObserveSearch(string, string, time.Duration) {}

// SearchConfig holds the facade's bounds.
type SearchConfig struct {
	PopularityWindowDays   int
	SuggestionDefaultLimit int
	SuggestionMaxLimit     int
	AnalyticsDefaultLimit  int
	AnalyticsMaxLimit      int
	DefaultWindowDays      int
	MaxWindowDays          int
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		PopularityWindowDays:   30,
		SuggestionDefaultLimit: 10,
		SuggestionMaxLimit:     50,
		AnalyticsDefaultLimit:  10,
		AnalyticsMaxLimit:      100,
		DefaultWindowDays:      7,
		MaxWindowDays:          365,
	}
}

// SearchService is the facade over normalization, ranking, suggestions and
// analytics. It is the only writer of suggestion entries and search events.
type SearchService struct {
	cfg         SearchConfig
	normalizer  *QueryNormalizer
	ranker      *Ranker
	catalog     models.CatalogSource
	suggestions *SuggestionIndex
	analytics   *AnalyticsAggregator
	recorder    *Recorder
	observer    SearchObserver
	logger      *logrus.Logger
}

func NewSearchService(
	cfg SearchConfig,
	normalizer *QueryNormalizer,
	catalog models.CatalogSource,
	suggestions *SuggestionIndex,
	analytics *AnalyticsAggregator,
	recorder *Recorder,
	observer SearchObserver,
	logger *logrus.Logger,
) *SearchService {
	def := DefaultSearchConfig()
	if cfg.PopularityWindowDays <= 0 {
		cfg.PopularityWindowDays = def.PopularityWindowDays
	}
	if cfg.SuggestionDefaultLimit <= 0 {
		cfg.SuggestionDefaultLimit = def.SuggestionDefaultLimit
	}
	if cfg.SuggestionMaxLimit <= 0 {
		cfg.SuggestionMaxLimit = def.SuggestionMaxLimit
	}
	if cfg.AnalyticsDefaultLimit <= 0 {
		cfg.AnalyticsDefaultLimit = def.AnalyticsDefaultLimit
	}
	if cfg.AnalyticsMaxLimit <= 0 {
		cfg.AnalyticsMaxLimit = def.AnalyticsMaxLimit
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = def.DefaultWindowDays
	}
	if cfg.MaxWindowDays <= 0 {
		cfg.MaxWindowDays = def.MaxWindowDays
	}
	if observer == nil {
		observer = noopSearchObserver{}
	}

	return &SearchService{
		cfg:         cfg,
		normalizer:  normalizer,
		ranker:      NewRanker(),
		catalog:     catalog,
		suggestions: suggestions,
		analytics:   analytics,
		recorder:    recorder,
		observer:    observer,
		logger:      logger,
	}
}

// Search normalizes, ranks and returns a page of hits. A tracked search is
// appended before returning so its event id is immediately clickable;
// suggestion recording happens in the background.
func (s *SearchService) Search(ctx context.Context, raw models.RawSearchRequest) (*models.SearchResponse, error) {
	start := time.Now()

	req, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.observer.ObserveSearch("unknown", OutcomeInvalid, time.Since(start))
		return nil, err
	}

	var (
		entries    []models.CatalogEntry
		popularity map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.catalog.Entries(gctx, models.CatalogQuery{Language: req.Language, ActiveOnly: true})
		if err != nil {
			return storeUnavailable("catalog", err)
		}
		return nil
	})
	if req.SortBy == models.SortPopularity {
		g.Go(func() error {
			var err error
			popularity, err = s.analytics.EntryPopularity(gctx, s.cfg.PopularityWindowDays)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WithError(err).Error("Search failed")
		s.observer.ObserveSearch(req.SortBy, OutcomeUnavailable, time.Since(start))
		return nil, err
	}

	result := s.ranker.Rank(req, entries, popularity)

	resp := &models.SearchResponse{
		Hits:   result.Hits,
		Total:  result.Total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	resp.EventID = s.recordSearch(ctx, req, result.Total)
	resp.ResponseTime = int(time.Since(start).Milliseconds())

	outcome := OutcomeOK
	if result.Total == 0 {
		outcome = OutcomeEmpty
	}
	s.observer.ObserveSearch(req.SortBy, outcome, time.Since(start))

	s.logger.WithFields(logrus.Fields{
		"query":    req.NormalizedText,
		"language": req.Language,
		"sort":     req.SortBy,
		"total":    result.Total,
		"returned": len(result.Hits),
	}).Debug("Search completed")

	return resp, nil
}

// recordSearch dispatches the suggestion write and appends the search event
// for tracked requests. The returned event id is empty unless the event was
// stored.
func (s *SearchService) recordSearch(ctx context.Context, req *models.SearchRequest, total int) string {
	if req.NormalizedText == "" {
		return ""
	}

	text, lang := req.Text, req.Language
	s.recorder.Submit("suggestion", func(ctx context.Context) error {
		return s.suggestions.Record(ctx, text, lang)
	})

	if !req.Track {
		return ""
	}
	eventID := NewEventID()
	if err := s.analytics.AppendSearch(ctx, eventID, text, total, req.UserID); err != nil {
		s.logger.WithError(err).WithField("query", req.NormalizedText).Warn("Failed to record search event")
		return ""
	}
	return eventID
}

// GetSuggestions returns display texts for the prefix. Prefixes under two
// characters yield an empty list.
func (s *SearchService) GetSuggestions(ctx context.Context, prefix, language string, limit *int) ([]string, string, error) {
	lang, err := s.normalizer.Language(language)
	if err != nil {
		return nil, "", err
	}
	n, err := ClampLimit(limit, s.cfg.SuggestionDefaultLimit, s.cfg.SuggestionMaxLimit)
	if err != nil {
		return nil, "", err
	}

	entries, err := s.suggestions.Suggest(ctx, prefix, lang, n)
	if err != nil {
		return nil, "", err
	}

	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.DisplayText)
	}
	return texts, lang, nil
}

// RecordSearchEvent appends a search performed outside Search.
func (s *SearchService) RecordSearchEvent(ctx context.Context, queryText string, resultCount int, userID *string) (string, error) {
	return s.analytics.RecordSearch(ctx, queryText, resultCount, userID)
}

// RecordClickEvent correlates a click with a tracked search.
func (s *SearchService) RecordClickEvent(ctx context.Context, eventID, entryID string) error {
	return s.analytics.RecordClick(ctx, eventID, entryID)
}

// Analytics computes one rollup over the window.
func (s *SearchService) Analytics(ctx context.Context, kind string, limit, windowDays *int) (*models.AnalyticsResult, error) {
	switch kind {
	case models.AnalyticsPopular, models.AnalyticsNoResults, models.AnalyticsTrends, models.AnalyticsClickThrough:
	default:
		return nil, invalidQuery("kind", "unknown analytics kind %q", kind)
	}

	n, err := ClampLimit(limit, s.cfg.AnalyticsDefaultLimit, s.cfg.AnalyticsMaxLimit)
	if err != nil {
		return nil, err
	}
	days, err := s.windowDays(windowDays)
	if err != nil {
		return nil, err
	}

	from, to := s.analytics.Window(days)
	result := &models.AnalyticsResult{
		Kind:       kind,
		WindowDays: days,
		Limit:      n,
		From:       from.Format(dayLayout),
		To:         to.Format(dayLayout),
	}

	switch kind {
	case models.AnalyticsPopular:
		result.Data, err = s.analytics.PopularSearches(ctx, n, days)
	case models.AnalyticsNoResults:
		result.Data, err = s.analytics.NoResultSearches(ctx, n, days)
	case models.AnalyticsTrends:
		result.Limit = 0
		result.Data, err = s.analytics.SearchTrends(ctx, days)
	case models.AnalyticsClickThrough:
		result.Data, err = s.analytics.ClickThroughRates(ctx, n, days)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SearchService) windowDays(raw *int) (int, error) {
	if raw == nil || *raw == 0 {
		return s.cfg.DefaultWindowDays, nil
	}
	if *raw < 0 {
		return 0, invalidQuery("windowDays", "must not be negative")
	}
	if *raw > s.cfg.MaxWindowDays {
		return 0, invalidQuery("windowDays", "must not exceed %d", s.cfg.MaxWindowDays)
	}
	return *raw, nil
}

// Prune runs both retention sweeps.
func (s *SearchService) Prune(ctx context.Context) (suggestions, events int64, err error) {
	suggestions, err = s.suggestions.Prune(ctx)
	if err != nil {
		return 0, 0, err
	}
	events, err = s.analytics.Prune(ctx)
	if err != nil {
		return suggestions, 0, err
	}
	return suggestions, events, nil
}

// Wait blocks until background recording has caught up.
func (s *SearchService) Wait() {
	s.recorder.Wait()
}

// Close drains background recording.
func (s *SearchService) Close(ctx context.Context) error {
	return s.recorder.Close(ctx)
}
