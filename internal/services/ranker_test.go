package services

import (
	"testing"

	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func scriptureCatalog() []models.CatalogEntry {
	return []models.CatalogEntry{
		{
			ID:           "product-1",
			ProductID:    1,
			Name:         "Bhagavad Gita As It Is",
			Keywords:     []string{"gita", "scripture"},
			CategoryPath: []string{"1", "2"},
			BasePrice:    250,
			Stock:        12,
			Attributes:   map[string]string{"binding": "Hardcover"},
			Language:     "en",
			Active:       true,
		},
		{
			ID:           "product-2",
			ProductID:    2,
			Name:         "Srimad Bhagavatam",
			Keywords:     []string{"purana"},
			CategoryPath: []string{"1", "3"},
			BasePrice:    400,
			Stock:        0,
			Attributes:   map[string]string{"binding": "Paperback"},
			Language:     "en",
			Active:       true,
		},
	}
}

func rankRequest(text string) *models.SearchRequest {
	return &models.SearchRequest{
		Text:           text,
		NormalizedText: NormalizeText(text),
		Language:       "en",
		SortBy:         models.SortRelevance,
		Limit:          DefaultLimit,
	}
}

func hitIDs(hits []models.RankedHit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.EntryID)
	}
	return ids
}

func TestRanker_TextMatch(t *testing.T) {
	result := NewRanker().Rank(rankRequest("gita"), scriptureCatalog(), nil)

	require.Equal(t, 1, result.Total)
	require.Len(t, result.Hits, 1)
	hit := result.Hits[0]
	assert.Equal(t, "product-1", hit.EntryID)
	assert.Greater(t, hit.Score, 0.0)
	assert.Equal(t, WeightNameSubstring+WeightKeywordExact, hit.Score)
	assert.Equal(t, []string{models.FieldName, models.FieldKeywordExact}, hit.MatchedFields)
}

func TestRanker_EmptyTextWithPriceFilter(t *testing.T) {
	req := rankRequest("")
	req.Filters.PriceMin = floatPtr(300)

	result := NewRanker().Rank(req, scriptureCatalog(), nil)

	assert.Equal(t, []string{"product-2"}, hitIDs(result.Hits))
	assert.Equal(t, 0.0, result.Hits[0].Score)
	assert.Empty(t, result.Hits[0].MatchedFields)
}

func TestRanker_UnknownCategoryIsEmptyNotError(t *testing.T) {
	req := rankRequest("")
	missing := "nonexistent"
	req.CategoryID = &missing

	result := NewRanker().Rank(req, scriptureCatalog(), nil)

	assert.Equal(t, 0, result.Total)
	assert.NotNil(t, result.Hits)
	assert.Empty(t, result.Hits)
}

func TestRanker_CategoryMatchesAncestors(t *testing.T) {
	req := rankRequest("")
	root := "1"
	req.CategoryID = &root

	result := NewRanker().Rank(req, scriptureCatalog(), nil)
	assert.Equal(t, 2, result.Total)

	req.Filters.Categories = []string{"3"}
	result = NewRanker().Rank(req, scriptureCatalog(), nil)
	assert.Equal(t, []string{"product-2"}, hitIDs(result.Hits))
}

func TestRanker_Filters(t *testing.T) {
	ranker := NewRanker()

	req := rankRequest("")
	req.Filters.InStock = true
	assert.Equal(t, []string{"product-1"}, hitIDs(ranker.Rank(req, scriptureCatalog(), nil).Hits))

	req = rankRequest("")
	req.Filters.Attributes = map[string][]string{"binding": {"paperback"}}
	assert.Equal(t, []string{"product-2"}, hitIDs(ranker.Rank(req, scriptureCatalog(), nil).Hits))

	req = rankRequest("")
	req.Filters.Attributes = map[string][]string{"edition": {"deluxe"}}
	assert.Empty(t, ranker.Rank(req, scriptureCatalog(), nil).Hits)

	req = rankRequest("")
	req.Filters.PriceMax = floatPtr(250)
	assert.Equal(t, []string{"product-1"}, hitIDs(ranker.Rank(req, scriptureCatalog(), nil).Hits))
}

func TestRanker_CandidateStage(t *testing.T) {
	entries := scriptureCatalog()
	entries[0].Active = false
	entries = append(entries,
		models.CatalogEntry{ID: "product-3", Name: "Gita Press Calendar", Language: "hi", Active: true},
		models.CatalogEntry{ID: "product-4", Name: "Gita Bookmark", Language: "", Active: true},
	)

	result := NewRanker().Rank(rankRequest("gita"), entries, nil)

	assert.Equal(t, []string{"product-4"}, hitIDs(result.Hits))
}

func TestRanker_VariantPriceWins(t *testing.T) {
	entries := []models.CatalogEntry{
		{ID: "variant-1", Name: "Gita Deluxe", BasePrice: 100, VariantPrice: floatPtr(900), Language: "en", Active: true},
		{ID: "variant-2", Name: "Gita Pocket", BasePrice: 100, Language: "en", Active: true},
	}

	req := rankRequest("gita")
	req.SortBy = models.SortPriceDesc
	result := NewRanker().Rank(req, entries, nil)
	assert.Equal(t, []string{"variant-1", "variant-2"}, hitIDs(result.Hits))

	req.SortBy = models.SortPriceAsc
	result = NewRanker().Rank(req, entries, nil)
	assert.Equal(t, []string{"variant-2", "variant-1"}, hitIDs(result.Hits))
}

func TestRanker_RelevanceOrderingAndTieBreak(t *testing.T) {
	entries := []models.CatalogEntry{
		{ID: "e-1", Name: "Japa Mala Bag", Language: "en", Active: true},
		{ID: "e-2", Name: "Japa", Language: "en", Active: true},
		{ID: "e-3", Name: "Counter", Keywords: []string{"japa counter"}, Language: "en", Active: true},
		{ID: "e-4", Name: "Beads", Attributes: map[string]string{"use": "Japa"}, Language: "en", Active: true},
		{ID: "e-0", Name: "Japa Mala Bag", Language: "en", Active: true},
	}

	result := NewRanker().Rank(rankRequest("JAPA"), entries, nil)

	assert.Equal(t, []string{"e-2", "e-0", "e-1", "e-3", "e-4"}, hitIDs(result.Hits))
	assert.Equal(t, WeightNameExact, result.Hits[0].Score)
	assert.Equal(t, WeightNameSubstring, result.Hits[1].Score)
	assert.Equal(t, WeightKeywordSubstring, result.Hits[3].Score)
	assert.Equal(t, WeightAttributeValue, result.Hits[4].Score)
}

func TestRanker_SortByNameAndPopularity(t *testing.T) {
	entries := []models.CatalogEntry{
		{ID: "a", Name: "Tulsi Mala", Language: "en", Active: true},
		{ID: "b", Name: "Incense", Language: "en", Active: true},
		{ID: "c", Name: "Deity Dress", Language: "en", Active: true},
	}

	req := rankRequest("")
	req.SortBy = models.SortName
	assert.Equal(t, []string{"c", "b", "a"}, hitIDs(NewRanker().Rank(req, entries, nil).Hits))

	req.SortBy = models.SortPopularity
	popularity := map[string]int{"a": 5, "b": 9}
	assert.Equal(t, []string{"b", "a", "c"}, hitIDs(NewRanker().Rank(req, entries, popularity).Hits))
}

func TestRanker_Pagination(t *testing.T) {
	var entries []models.CatalogEntry
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		entries = append(entries, models.CatalogEntry{ID: name, Name: "Item " + name, Language: "en", Active: true})
	}

	req := rankRequest("item")
	req.Limit = 2
	req.Offset = 1
	result := NewRanker().Rank(req, entries, nil)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, []string{"b", "c"}, hitIDs(result.Hits))

	req.Offset = 10
	result = NewRanker().Rank(req, entries, nil)
	assert.Equal(t, 5, result.Total)
	assert.Empty(t, result.Hits)
}

func TestRanker_Deterministic(t *testing.T) {
	req := rankRequest("bhagava")
	first := NewRanker().Rank(req, scriptureCatalog(), nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, NewRanker().Rank(req, scriptureCatalog(), nil))
	}
}
