package repository

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sankirtan-pos/backend/internal/database"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestDB opens a migrated sqlite database in a temp dir.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	manager, err := database.NewManager(&database.Config{
		Driver:      database.DriverSQLite,
		DatabaseURL: filepath.Join(t.TempDir(), "search.db"),
	}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, manager.Migrate())
	t.Cleanup(func() { manager.Close() })

	return manager.DB
}

var base = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func TestSuggestionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSuggestionRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, "gita", "Gita", "en", base))
	require.NoError(t, repo.Upsert(ctx, "gita", "GITA", "en", base.Add(time.Hour)))
	// An older timestamp never moves LastUsedAt backwards.
	require.NoError(t, repo.Upsert(ctx, "gita", "gita", "en", base.Add(-time.Hour)))
	require.NoError(t, repo.Upsert(ctx, "gita", "gita", "hi", base))

	entry, err := repo.Get(ctx, "gita", "en")
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.Frequency)
	assert.Equal(t, "Gita", entry.DisplayText)
	assert.True(t, entry.LastUsedAt.Equal(base.Add(time.Hour)))

	entry, err = repo.Get(ctx, "gita", "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Frequency)

	_, err = repo.Get(ctx, "mala", "en")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestSuggestionRepository_ConcurrentUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSuggestionRepository(newTestDB(t))

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Upsert(ctx, "tulsi mala", "tulsi mala", "en", base))
		}()
	}
	wg.Wait()

	entry, err := repo.Get(ctx, "tulsi mala", "en")
	require.NoError(t, err)
	assert.Equal(t, int64(n), entry.Frequency)
}

func TestSuggestionRepository_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	repo := NewSuggestionRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, "gita press", "Gita Press", "en", base))
	require.NoError(t, repo.Upsert(ctx, "gita", "gita", "en", base.Add(time.Minute)))
	require.NoError(t, repo.Upsert(ctx, "gita", "gita", "en", base.Add(2*time.Minute)))
	require.NoError(t, repo.Upsert(ctx, "gift card", "gift card", "en", base.Add(3*time.Minute)))
	require.NoError(t, repo.Upsert(ctx, "giant", "giant", "hi", base))
	require.NoError(t, repo.Upsert(ctx, "100%_cotton", "100%_cotton", "en", base))
	require.NoError(t, repo.Upsert(ctx, "100x cotton", "100x cotton", "en", base))

	entries, err := repo.ListByPrefix(ctx, "gi", "en", 10)
	require.NoError(t, err)

	var texts []string
	for _, e := range entries {
		texts = append(texts, e.NormalizedText)
	}
	assert.Equal(t, []string{"gita", "gift card", "gita press"}, texts)

	entries, err = repo.ListByPrefix(ctx, "gi", "en", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// LIKE wildcards in the prefix are literal.
	entries, err = repo.ListByPrefix(ctx, "100%", "en", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "100%_cotton", entries[0].NormalizedText)
}

func TestSuggestionRepository_DeleteLastUsedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewSuggestionRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, "old", "old", "en", base))
	require.NoError(t, repo.Upsert(ctx, "new", "new", "en", base.AddDate(0, 0, 40)))

	removed, err := repo.DeleteLastUsedBefore(ctx, base.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.Get(ctx, "old", "en")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func newEvent(id, query string, results int, at time.Time) *models.SearchEvent {
	return &models.SearchEvent{
		ID:             id,
		QueryText:      query,
		NormalizedText: query,
		ResultCount:    results,
		SearchedAt:     at,
	}
}

func TestSearchEventRepository_AppendAndClick(t *testing.T) {
	ctx := context.Background()
	repo := NewSearchEventRepository(newTestDB(t))

	require.NoError(t, repo.Append(ctx, newEvent("e-1", "gita", 2, base)))
	assert.Error(t, repo.Append(ctx, newEvent("e-2", "", 2, base)))
	assert.Error(t, repo.Append(ctx, newEvent("e-1", "gita", 2, base)))

	require.NoError(t, repo.SetClick(ctx, "e-1", "product-1", base.Add(time.Minute)))
	require.NoError(t, repo.SetClick(ctx, "e-1", "product-2", base.Add(2*time.Minute)))

	event, err := repo.Get(ctx, "e-1")
	require.NoError(t, err)
	require.NotNil(t, event.ClickedEntryID)
	assert.Equal(t, "product-2", *event.ClickedEntryID)
	assert.True(t, event.ClickedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, 2, event.ResultCount)

	assert.ErrorIs(t, repo.SetClick(ctx, "missing", "product-1", base), models.ErrRecordNotFound)
	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestSearchEventRepository_Windows(t *testing.T) {
	ctx := context.Background()
	repo := NewSearchEventRepository(newTestDB(t))
	since := base.AddDate(0, 0, 5)

	require.NoError(t, repo.Append(ctx, newEvent("old", "gita", 1, base)))
	require.NoError(t, repo.Append(ctx, newEvent("old-clicked", "mala", 1, base)))
	require.NoError(t, repo.Append(ctx, newEvent("recent", "gita", 1, since.Add(time.Hour))))
	require.NoError(t, repo.SetClick(ctx, "old-clicked", "product-7", since.Add(2*time.Hour)))
	require.NoError(t, repo.SetClick(ctx, "recent", "product-7", since.Add(3*time.Hour)))

	events, err := repo.ListActiveSince(ctx, since)
	require.NoError(t, err)
	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"old-clicked", "recent"}, ids)

	counts, err := repo.ClickCountsSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, []models.ClickCount{{EntryID: "product-7", Clicks: 2}}, counts)

	removed, err := repo.DeleteBefore(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestSystemHealthRepository(t *testing.T) {
	repo := NewSystemHealthRepository(newTestDB(t))

	require.NoError(t, repo.UpdateServiceHealth("sqlite", "unhealthy", 5, "locked"))
	require.NoError(t, repo.UpdateServiceHealth("sqlite", "healthy", 2, ""))
	require.NoError(t, repo.UpdateServiceHealth("recorder", "healthy", 0, ""))

	latest, err := repo.GetServiceHealth("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "healthy", latest.Status)

	all, err := repo.GetAllServicesHealth()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "recorder", all[0].ServiceName)
	assert.Equal(t, "sqlite", all[1].ServiceName)
	assert.Equal(t, "healthy", all[1].Status)
}
