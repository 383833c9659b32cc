package models

// GORM models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrRecordNotFound is returned by every repository when a lookup matches nothing.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateRecord is returned when an append-only store already holds the id.
var ErrDuplicateRecord = errors.New("duplicate record")

// StringList is stored as a JSON array in a text column so it works on both
// postgres and sqlite.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = StringList{}
		return nil
	}

	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" || v == "[]" {
			*s = StringList{}
			return nil
		}
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return fmt.Errorf("cannot scan %q into StringList: %w", v, err)
		}
		*s = StringList(out)
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	return nil
}

// AttributeMap is a free-form name -> value mapping stored as JSON text.
type AttributeMap map[string]string

func (a AttributeMap) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *AttributeMap) Scan(value interface{}) error {
	if value == nil {
		*a = AttributeMap{}
		return nil
	}

	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" || v == "{}" {
			*a = AttributeMap{}
			return nil
		}
		out := map[string]string{}
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return fmt.Errorf("cannot scan %q into AttributeMap: %w", v, err)
		}
		*a = AttributeMap(out)
	case []byte:
		return a.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AttributeMap", value)
	}
	return nil
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category is a node of the catalog tree owned by the POS back office.
type Category struct {
	BaseModel
	Name     string `json:"name" gorm:"not null"`
	ParentID *uint  `json:"parent_id" gorm:"index"`
}

// Product is a sellable item. Products with variants are searched per variant.
type Product struct {
	BaseModel
	SKU           string       `json:"sku" gorm:"uniqueIndex;size:64"`
	Name          string       `json:"name" gorm:"not null"`
	Keywords      StringList   `json:"keywords" gorm:"type:text"`
	CategoryID    *uint        `json:"category_id" gorm:"index"`
	BasePrice     float64      `json:"base_price" gorm:"not null;default:0"`
	StockQuantity int          `json:"stock_quantity" gorm:"not null;default:0"`
	Attributes    AttributeMap `json:"attributes" gorm:"type:text"`
	Language      string       `json:"language" gorm:"size:8;index"`
	IsActive      bool         `json:"is_active" gorm:"not null"`

	// Associations
	Variants []ProductVariant `json:"variants" gorm:"foreignKey:ProductID"`
}

// ProductVariant is a priced, stocked variation of a product (binding, size, edition).
type ProductVariant struct {
	BaseModel
	ProductID     uint         `json:"product_id" gorm:"not null;index"`
	SKU           string       `json:"sku" gorm:"size:64"`
	Name          string       `json:"name" gorm:"not null"`
	Price         *float64     `json:"price"`
	StockQuantity int          `json:"stock_quantity" gorm:"not null;default:0"`
	Attributes    AttributeMap `json:"attributes" gorm:"type:text"`
	IsActive      bool         `json:"is_active" gorm:"not null"`
}

// SuggestionEntry is one historical query used for autocomplete.
// (NormalizedText, Language) is unique; Frequency only grows.
type SuggestionEntry struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	NormalizedText string    `json:"normalized_text" gorm:"not null;size:255;uniqueIndex:idx_suggestion_key,priority:2"`
	DisplayText    string    `json:"display_text" gorm:"not null;size:255"`
	Language       string    `json:"language" gorm:"not null;size:8;uniqueIndex:idx_suggestion_key,priority:1"`
	Frequency      int64     `json:"frequency" gorm:"not null;default:1"`
	LastUsedAt     time.Time `json:"last_used_at" gorm:"not null;index"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// SearchEvent is an append-only record of one completed search.
// ClickedEntryID/ClickedAt are filled by a later click correlated by ID.
type SearchEvent struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	QueryText      string     `json:"query_text" gorm:"not null"`
	NormalizedText string     `json:"normalized_text" gorm:"not null;size:255;index"`
	ResultCount    int        `json:"result_count" gorm:"not null;default:0"`
	ClickedEntryID *string    `json:"clicked_entry_id" gorm:"size:64;index"`
	ClickedAt      *time.Time `json:"clicked_at" gorm:"index"`
	UserID         *string    `json:"user_id" gorm:"size:64"`
	SearchedAt     time.Time  `json:"timestamp" gorm:"not null;index"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Repository interfaces

// SuggestionRepository persists suggestion entries. Upsert must be a single
// atomic statement so concurrent identical queries never lose an increment.
type SuggestionRepository interface {
	Upsert(ctx context.Context, normalizedText, displayText, language string, usedAt time.Time) error
	Get(ctx context.Context, normalizedText, language string) (*SuggestionEntry, error)
	ListByPrefix(ctx context.Context, prefix, language string, limit int) ([]SuggestionEntry, error)
	DeleteLastUsedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ClickCount is the number of clicks an entry received.
type ClickCount struct {
	EntryID string
	Clicks  int
}

// SearchEventRepository is an append-only event log with click correlation.
type SearchEventRepository interface {
	Append(ctx context.Context, event *SearchEvent) error
	Get(ctx context.Context, id string) (*SearchEvent, error)
	SetClick(ctx context.Context, id, entryID string, clickedAt time.Time) error
	// ListActiveSince returns events searched or clicked at or after since.
	ListActiveSince(ctx context.Context, since time.Time) ([]SearchEvent, error)
	ClickCountsSince(ctx context.Context, since time.Time) ([]ClickCount, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CatalogSource is the read-only catalog view consumed by the search engine.
type CatalogSource interface {
	Entries(ctx context.Context, query CatalogQuery) ([]CatalogEntry, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetServiceHealth(serviceName string) (*SystemHealth, error)
	GetAllServicesHealth() ([]SystemHealth, error)
}

// TableName methods for custom table names
func (Category) TableName() string        { return "categories" }
func (Product) TableName() string         { return "products" }
func (ProductVariant) TableName() string  { return "product_variants" }
func (SuggestionEntry) TableName() string { return "suggestion_entries" }
func (SearchEvent) TableName() string     { return "search_events" }
func (SystemHealth) TableName() string    { return "system_health" }

// Model validation methods
func (se *SearchEvent) Validate() error {
	if se.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if se.NormalizedText == "" {
		return fmt.Errorf("normalized query text is required")
	}
	if se.ResultCount < 0 {
		return fmt.Errorf("result count cannot be negative")
	}
	return nil
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if p.BasePrice < 0 {
		return fmt.Errorf("base price cannot be negative")
	}
	return nil
}

// GORM hooks
func (se *SearchEvent) BeforeCreate(tx *gorm.DB) error {
	return se.Validate()
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	return p.Validate()
}

func (p *Product) BeforeUpdate(tx *gorm.DB) error {
	return p.Validate()
}
