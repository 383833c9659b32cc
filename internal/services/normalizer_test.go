package services

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestNormalizer() *QueryNormalizer {
	return NewQueryNormalizer(NormalizerConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "hi"},
		MaxQueryLength:  50,
	}, quietLogger())
}

func intPtr(v int) *int { return &v }

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "bhagavad gita", NormalizeText("  Bhagavad   GITA \t"))
	assert.Equal(t, "", NormalizeText("   "))
	// Decomposed and precomposed forms share one key.
	assert.Equal(t, NormalizeText("Caf\u00e9"), NormalizeText("Cafe\u0301"))
}

func TestQueryNormalizer_Defaults(t *testing.T) {
	req, err := newTestNormalizer().Normalize(models.RawSearchRequest{Text: "  Gita  "})
	require.NoError(t, err)

	assert.Equal(t, "Gita", req.Text)
	assert.Equal(t, "gita", req.NormalizedText)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, models.SortRelevance, req.SortBy)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, 0, req.Offset)
	assert.Nil(t, req.CategoryID)
	assert.True(t, req.Filters.Empty())
}

func TestQueryNormalizer_Language(t *testing.T) {
	n := newTestNormalizer()

	lang, err := n.Language("HI-in")
	require.NoError(t, err)
	assert.Equal(t, "hi", lang)

	_, err = n.Language("fr")
	assert.True(t, errors.Is(err, ErrInvalidQuery))

	_, err = n.Language("not a tag!")
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestQueryNormalizer_RejectsBadCoreFields(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name  string
		raw   models.RawSearchRequest
		field string
	}{
		{"unknown sort", models.RawSearchRequest{SortBy: "cheapest"}, "sortBy"},
		{"negative limit", models.RawSearchRequest{Limit: intPtr(-1)}, "limit"},
		{"negative offset", models.RawSearchRequest{Offset: intPtr(-5)}, "offset"},
		{"unknown language", models.RawSearchRequest{Language: "de"}, "language"},
		{"text too long", models.RawSearchRequest{Text: string(make([]rune, 51))}, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			require.Error(t, err)

			var iq *InvalidQueryError
			require.True(t, errors.As(err, &iq))
			assert.Equal(t, tt.field, iq.Field)
		})
	}
}

func TestClampLimit(t *testing.T) {
	v, err := ClampLimit(nil, 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = ClampLimit(intPtr(0), 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = ClampLimit(intPtr(500), 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	_, err = ClampLimit(intPtr(-1), 20, 100)
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestQueryNormalizer_Filters(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawSearchRequest{Filters: json.RawMessage(`{
		"priceMin": "100",
		"priceMax": 500,
		"inStock": "true",
		"categories": ["cat-2", "cat-1", "cat-2"],
		"attributes": {"Binding": ["Hardcover", "paperback"], "Language": "Sanskrit"}
	}`)}

	req, err := n.Normalize(raw)
	require.NoError(t, err)

	f := req.Filters
	require.NotNil(t, f.PriceMin)
	require.NotNil(t, f.PriceMax)
	assert.Equal(t, 100.0, *f.PriceMin)
	assert.Equal(t, 500.0, *f.PriceMax)
	assert.True(t, f.InStock)
	assert.Equal(t, []string{"cat-1", "cat-2"}, f.Categories)
	assert.Equal(t, []string{"hardcover", "paperback"}, f.Attributes["binding"])
	assert.Equal(t, []string{"sanskrit"}, f.Attributes["language"])
}

func TestQueryNormalizer_EncodedFilters(t *testing.T) {
	encoded, err := json.Marshal(`{"priceMin": 300}`)
	require.NoError(t, err)

	req, err := newTestNormalizer().Normalize(models.RawSearchRequest{Filters: encoded})
	require.NoError(t, err)
	require.NotNil(t, req.Filters.PriceMin)
	assert.Equal(t, 300.0, *req.Filters.PriceMin)
}

func TestQueryNormalizer_DropsMalformedFilters(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name    string
		filters string
		check   func(t *testing.T, f models.Filters)
	}{
		{
			name:    "not an object",
			filters: `[1,2,3]`,
			check:   func(t *testing.T, f models.Filters) { assert.True(t, f.Empty()) },
		},
		{
			name:    "garbage string",
			filters: `"{not json"`,
			check:   func(t *testing.T, f models.Filters) { assert.True(t, f.Empty()) },
		},
		{
			name:    "negative price dropped, rest kept",
			filters: `{"priceMin": -3, "inStock": true}`,
			check: func(t *testing.T, f models.Filters) {
				assert.Nil(t, f.PriceMin)
				assert.True(t, f.InStock)
			},
		},
		{
			name:    "inverted range dropped",
			filters: `{"priceMin": 500, "priceMax": 100}`,
			check: func(t *testing.T, f models.Filters) {
				assert.Nil(t, f.PriceMin)
				assert.Nil(t, f.PriceMax)
			},
		},
		{
			name:    "unknown keys and nulls ignored",
			filters: `{"colour": "red", "priceMax": null, "categories": [true]}`,
			check:   func(t *testing.T, f models.Filters) { assert.True(t, f.Empty()) },
		},
		{
			name:    "bad attribute values dropped",
			filters: `{"attributes": {"binding": {"x": 1}, "edition": ["deluxe"]}}`,
			check: func(t *testing.T, f models.Filters) {
				assert.Len(t, f.Attributes, 1)
				assert.Equal(t, []string{"deluxe"}, f.Attributes["edition"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := n.Normalize(models.RawSearchRequest{Filters: json.RawMessage(tt.filters)})
			require.NoError(t, err)
			tt.check(t, req.Filters)
		})
	}
}

func TestQueryNormalizer_Identifiers(t *testing.T) {
	req, err := newTestNormalizer().Normalize(models.RawSearchRequest{
		CategoryID: " cat-7 ",
		UserID:     "till-3",
		Track:      true,
	})
	require.NoError(t, err)

	require.NotNil(t, req.CategoryID)
	assert.Equal(t, "cat-7", *req.CategoryID)
	require.NotNil(t, req.UserID)
	assert.Equal(t, "till-3", *req.UserID)
	assert.True(t, req.Track)
}
