package seeder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingProcessor_ParsePrice(t *testing.T) {
	lp := NewListingProcessor()

	tests := []struct {
		in   string
		want float64
	}{
		{"₹1,250.00", 1250},
		{"Rs. 499", 499},
		{"1.250,50 €", 1250.50},
		{"₹1,25,000", 125000},
		{"1.250", 1250},
		{"99.5", 99.5},
		{"  $ 12,5 ", 12.5},
		{"Price: 350/-", 350},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := lp.ParsePrice(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := lp.ParsePrice("Call for price")
	assert.Error(t, err)
}

func TestListingProcessor_ParseStock(t *testing.T) {
	lp := NewListingProcessor()

	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"In stock: 1,204 units", 1204, true},
		{"Only 3 left", 3, true},
		{"SOLD OUT", 0, true},
		{"<b>Out of stock</b>", 0, true},
		{"Limited availability", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := lp.ParseStock(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestListingProcessor_Text(t *testing.T) {
	lp := NewListingProcessor()

	assert.Equal(t, "Bhagavad Gita As It Is", lp.CleanText("  <b>Bhagavad</b>\n Gita   As It Is "))
	assert.Equal(t, []string{"Books", "Fiction", "Classics"}, lp.SplitCategoryChain("Books > Fiction » Classics"))
	assert.Equal(t, []string{"Home", "Puja"}, lp.SplitCategoryChain("Home / Puja /"))
	assert.Nil(t, lp.SplitCategoryChain("  "))

	assert.Equal(t,
		[]string{"gita", "scripture", "vedic"},
		lp.ExtractKeywords("Gita, Scripture; #Vedic", "gita|a"),
	)
}

func TestListingProcessor_GenerateSKU(t *testing.T) {
	lp := NewListingProcessor()

	sku := lp.GenerateSKU("Tulsi Mala", "en")
	assert.Len(t, sku, 14)
	assert.Regexp(t, `^IMP-[0-9A-F]{10}$`, sku)
	assert.Equal(t, sku, lp.GenerateSKU("  tulsi   MALA ", "en"))
	assert.NotEqual(t, sku, lp.GenerateSKU("Tulsi Mala", "hi"))
}
