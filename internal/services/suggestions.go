package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// MinPrefixLength is the shortest normalized prefix that is looked up.
const MinPrefixLength = 2

// Clock returns the current time. Stored timestamps are UTC at second precision.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// SuggestionIndex is the prefix-indexed store of historical queries.
type SuggestionIndex struct {
	repo          models.SuggestionRepository
	retentionDays int
	now           Clock
	logger        *logrus.Logger
}

func NewSuggestionIndex(repo models.SuggestionRepository, retentionDays int, now Clock, logger *logrus.Logger) *SuggestionIndex {
	if now == nil {
		now = SystemClock
	}
	return &SuggestionIndex{
		repo:          repo,
		retentionDays: retentionDays,
		now:           now,
		logger:        logger,
	}
}

// Suggest returns entries whose normalized text starts with prefix, ordered by
// frequency, then recency, then text. Prefixes shorter than MinPrefixLength
// yield an empty list.
func (s *SuggestionIndex) Suggest(ctx context.Context, prefix, language string, limit int) ([]models.SuggestionEntry, error) {
	normalized := NormalizeText(prefix)
	if utf8.RuneCountInString(normalized) < MinPrefixLength || limit <= 0 {
		return []models.SuggestionEntry{}, nil
	}

	entries, err := s.repo.ListByPrefix(ctx, normalized, language, limit)
	if err != nil {
		return nil, storeUnavailable("suggestion", err)
	}
	if entries == nil {
		entries = []models.SuggestionEntry{}
	}
	return entries, nil
}

// Record counts one more use of queryText in language. The increment is a
// single upsert in the store.
func (s *SuggestionIndex) Record(ctx context.Context, queryText, language string) error {
	normalized := NormalizeText(queryText)
	if normalized == "" {
		return nil
	}

	display := strings.TrimSpace(queryText)
	if err := s.repo.Upsert(ctx, normalized, display, language, s.now()); err != nil {
		return storeUnavailable("suggestion", err)
	}

	s.logger.WithFields(logrus.Fields{
		"query":    normalized,
		"language": language,
	}).Debug("Suggestion recorded")
	return nil
}

// Prune deletes entries not used within the retention window. A zero
// retention keeps everything.
func (s *SuggestionIndex) Prune(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	removed, err := s.repo.DeleteLastUsedBefore(ctx, cutoff)
	if err != nil {
		return 0, storeUnavailable("suggestion", err)
	}
	return removed, nil
}
