package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBoundInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"20", 20},
		{" 7 ", 7},
		{"-3", -3},
		{"99999999999999999999", math.MaxInt},
		{"-99999999999999999999", math.MinInt},
	}
	for _, tt := range tests {
		got, err := ParseBoundInt(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"ten", "2.5", ""} {
		_, err := ParseBoundInt(bad)
		assert.Error(t, err, bad)
	}
}

func TestRawSearchRequest_UnmarshalJSON(t *testing.T) {
	var raw RawSearchRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"text": "gita",
		"sortBy": "price_asc",
		"limit": 99999999999999999999,
		"offset": "4",
		"track": true,
		"filters": {"inStock": true}
	}`), &raw))

	assert.Equal(t, "gita", raw.Text)
	assert.Equal(t, SortPriceAsc, raw.SortBy)
	assert.True(t, raw.Track)
	require.NotNil(t, raw.Limit)
	assert.Equal(t, math.MaxInt, *raw.Limit)
	require.NotNil(t, raw.Offset)
	assert.Equal(t, 4, *raw.Offset)
	assert.JSONEq(t, `{"inStock": true}`, string(raw.Filters))

	raw = RawSearchRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"limit": null}`), &raw))
	assert.Nil(t, raw.Limit)
	assert.Nil(t, raw.Offset)

	err := json.Unmarshal([]byte(`{"limit": 2.5}`), &raw)
	assert.ErrorContains(t, err, "limit")
}
