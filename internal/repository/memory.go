package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sankirtan-pos/backend/internal/models"
)

// In-memory stores back the "memory" database driver and the service tests.
// Each guards its state with one mutex, which gives the same per-key
// atomicity as the SQL upsert.

type MemorySuggestionStore struct {
	mu      sync.Mutex
	entries map[string]*models.SuggestionEntry
	nextID  uint
	err     error
}

func NewMemorySuggestionStore() *MemorySuggestionStore {
	return &MemorySuggestionStore{entries: map[string]*models.SuggestionEntry{}}
}

// Fail makes every following call return err until Fail(nil).
func (s *MemorySuggestionStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func suggestionKey(normalizedText, language string) string {
	return language + "\x00" + normalizedText
}

func (s *MemorySuggestionStore) Upsert(ctx context.Context, normalizedText, displayText, language string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	key := suggestionKey(normalizedText, language)
	if e, ok := s.entries[key]; ok {
		e.Frequency++
		if usedAt.After(e.LastUsedAt) {
			e.LastUsedAt = usedAt
		}
		e.UpdatedAt = usedAt
		return nil
	}

	s.nextID++
	s.entries[key] = &models.SuggestionEntry{
		ID:             s.nextID,
		NormalizedText: normalizedText,
		DisplayText:    displayText,
		Language:       language,
		Frequency:      1,
		LastUsedAt:     usedAt,
		CreatedAt:      usedAt,
		UpdatedAt:      usedAt,
	}
	return nil
}

func (s *MemorySuggestionStore) Get(ctx context.Context, normalizedText, language string) (*models.SuggestionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	e, ok := s.entries[suggestionKey(normalizedText, language)]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	out := *e
	return &out, nil
}

func (s *MemorySuggestionStore) ListByPrefix(ctx context.Context, prefix, language string, limit int) ([]models.SuggestionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	var out []models.SuggestionEntry
	for _, e := range s.entries {
		if e.Language == language && strings.HasPrefix(e.NormalizedText, prefix) {
			out = append(out, *e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.After(out[j].LastUsedAt)
		}
		return out[i].NormalizedText < out[j].NormalizedText
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemorySuggestionStore) DeleteLastUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	var removed int64
	for key, e := range s.entries {
		if e.LastUsedAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

type MemorySearchEventStore struct {
	mu     sync.Mutex
	events map[string]*models.SearchEvent
	err    error
}

func NewMemorySearchEventStore() *MemorySearchEventStore {
	return &MemorySearchEventStore{events: map[string]*models.SearchEvent{}}
}

// Fail makes every following call return err until Fail(nil).
func (s *MemorySearchEventStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySearchEventStore) Append(ctx context.Context, event *models.SearchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("search event %q: %w", event.ID, models.ErrDuplicateRecord)
	}

	stored := *event
	s.events[event.ID] = &stored
	return nil
}

func (s *MemorySearchEventStore) Get(ctx context.Context, id string) (*models.SearchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	e, ok := s.events[id]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	out := *e
	return &out, nil
}

func (s *MemorySearchEventStore) SetClick(ctx context.Context, id, entryID string, clickedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	e, ok := s.events[id]
	if !ok {
		return models.ErrRecordNotFound
	}
	entry, at := entryID, clickedAt
	e.ClickedEntryID = &entry
	e.ClickedAt = &at
	return nil
}

func (s *MemorySearchEventStore) ListActiveSince(ctx context.Context, since time.Time) ([]models.SearchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	var out []models.SearchEvent
	for _, e := range s.events {
		if !e.SearchedAt.Before(since) || (e.ClickedAt != nil && !e.ClickedAt.Before(since)) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SearchedAt.Equal(out[j].SearchedAt) {
			return out[i].SearchedAt.Before(out[j].SearchedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemorySearchEventStore) ClickCountsSince(ctx context.Context, since time.Time) ([]models.ClickCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	counts := map[string]int{}
	for _, e := range s.events {
		if e.ClickedEntryID != nil && e.ClickedAt != nil && !e.ClickedAt.Before(since) {
			counts[*e.ClickedEntryID]++
		}
	}

	out := make([]models.ClickCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, models.ClickCount{EntryID: id, Clicks: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

func (s *MemorySearchEventStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	var removed int64
	for id, e := range s.events {
		if e.SearchedAt.Before(cutoff) {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

// Len is the number of stored events.
func (s *MemorySearchEventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// StaticCatalog serves a fixed set of entries.
type StaticCatalog struct {
	mu      sync.RWMutex
	entries []models.CatalogEntry
	err     error
}

func NewStaticCatalog(entries []models.CatalogEntry) *StaticCatalog {
	return &StaticCatalog{entries: entries}
}

// Fail makes every following call return err until Fail(nil).
func (c *StaticCatalog) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Replace swaps the served entries.
func (c *StaticCatalog) Replace(entries []models.CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
}

func (c *StaticCatalog) Entries(ctx context.Context, query models.CatalogQuery) ([]models.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return nil, c.err
	}

	out := make([]models.CatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if query.ActiveOnly && !e.Active {
			continue
		}
		if query.Language != "" && !e.LanguageAgnostic() && e.Language != query.Language {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
