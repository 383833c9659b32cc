package models

// CatalogQuery narrows what the catalog source returns. An empty Language
// returns entries of every language.
type CatalogQuery struct {
	Language   string
	ActiveOnly bool
}

// CatalogEntry is the denormalized, read-only projection of a product or a
// product variant that the search engine ranks.
type CatalogEntry struct {
	ID           string            `json:"id"`
	ProductID    uint              `json:"product_id"`
	VariantID    *uint             `json:"variant_id,omitempty"`
	Name         string            `json:"name"`
	Keywords     []string          `json:"keywords"`
	CategoryPath []string          `json:"category_path"`
	BasePrice    float64           `json:"base_price"`
	VariantPrice *float64          `json:"variant_price,omitempty"`
	Stock        int               `json:"stock"`
	Attributes   map[string]string `json:"attributes"`
	Language     string            `json:"language"`
	Active       bool              `json:"active"`
}

// EffectivePrice is the variant price when the entry is a priced variant,
// otherwise the product base price.
func (e CatalogEntry) EffectivePrice() float64 {
	if e.VariantPrice != nil {
		return *e.VariantPrice
	}
	return e.BasePrice
}

// InCategory reports whether id appears anywhere in the ancestor chain.
func (e CatalogEntry) InCategory(id string) bool {
	for _, c := range e.CategoryPath {
		if c == id {
			return true
		}
	}
	return false
}

// LanguageAgnostic entries match every requested language.
func (e CatalogEntry) LanguageAgnostic() bool {
	return e.Language == ""
}
