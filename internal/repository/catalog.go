package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sankirtan-pos/backend/internal/models"
	"gorm.io/gorm"
)

// CatalogRepositoryImpl projects products and variants into catalog entries.
type CatalogRepositoryImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepositoryImpl {
	return &CatalogRepositoryImpl{db: db}
}

func (r *CatalogRepositoryImpl) Entries(ctx context.Context, query models.CatalogQuery) ([]models.CatalogEntry, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	tx := r.db.WithContext(ctx).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
	if query.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}
	if query.Language != "" {
		tx = tx.Where("(language = ? OR language = '' OR language IS NULL)", query.Language)
	}

	var products []models.Product
	if err := tx.Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	return ProjectCatalog(products, categories, query.ActiveOnly), nil
}

// CreateCategory inserts a category node.
func (r *CatalogRepositoryImpl) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// EnsureCategoryPath finds or creates each category of a root-first chain of
// names and returns the ID of the last one. An empty chain returns nil.
func (r *CatalogRepositoryImpl) EnsureCategoryPath(ctx context.Context, names []string) (*uint, error) {
	var parentID *uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			query := tx.Where("name = ?", name)
			if parentID == nil {
				query = query.Where("parent_id IS NULL")
			} else {
				query = query.Where("parent_id = ?", *parentID)
			}

			var category models.Category
			err := query.First(&category).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				category = models.Category{Name: name, ParentID: parentID}
				err = tx.Create(&category).Error
			}
			if err != nil {
				return fmt.Errorf("failed to resolve category %q: %w", name, err)
			}

			id := category.ID
			parentID = &id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parentID, nil
}

// CreateProduct inserts a product together with its variants.
func (r *CatalogRepositoryImpl) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpsertProduct creates the product or replaces the one with the same SKU.
func (r *CatalogRepositoryImpl) UpsertProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		err := tx.Where("sku = ?", product.SKU).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(product).Error
		case err != nil:
			return err
		}

		product.ID = existing.ID
		product.CreatedAt = existing.CreatedAt
		if err := tx.Where("product_id = ?", existing.ID).Delete(&models.ProductVariant{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(product).Error
	})
}

// ProjectCatalog flattens products into searchable entries. A product with
// variants yields one entry per variant, otherwise one entry for itself.
func ProjectCatalog(products []models.Product, categories []models.Category, activeOnly bool) []models.CatalogEntry {
	paths := categoryPaths(categories)

	entries := make([]models.CatalogEntry, 0, len(products))
	for _, p := range products {
		var path []string
		if p.CategoryID != nil {
			path = paths[*p.CategoryID]
		}
		keywords := []string(p.Keywords)
		if keywords == nil {
			keywords = []string{}
		}

		if len(p.Variants) == 0 {
			entries = append(entries, models.CatalogEntry{
				ID:           ProductEntryID(p.ID),
				ProductID:    p.ID,
				Name:         p.Name,
				Keywords:     keywords,
				CategoryPath: path,
				BasePrice:    p.BasePrice,
				Stock:        p.StockQuantity,
				Attributes:   copyAttributes(p.Attributes, nil),
				Language:     p.Language,
				Active:       p.IsActive,
			})
			continue
		}

		for _, v := range p.Variants {
			active := p.IsActive && v.IsActive
			if activeOnly && !active {
				continue
			}
			variantID := v.ID
			entries = append(entries, models.CatalogEntry{
				ID:           VariantEntryID(v.ID),
				ProductID:    p.ID,
				VariantID:    &variantID,
				Name:         strings.TrimSpace(p.Name + " " + v.Name),
				Keywords:     keywords,
				CategoryPath: path,
				BasePrice:    p.BasePrice,
				VariantPrice: v.Price,
				Stock:        v.StockQuantity,
				Attributes:   copyAttributes(p.Attributes, v.Attributes),
				Language:     p.Language,
				Active:       active,
			})
		}
	}
	return entries
}

func ProductEntryID(id uint) string { return "product-" + strconv.FormatUint(uint64(id), 10) }
func VariantEntryID(id uint) string { return "variant-" + strconv.FormatUint(uint64(id), 10) }

// categoryPaths resolves every category to its root-first chain of ids.
// Cycles are cut at the first repeated node.
func categoryPaths(categories []models.Category) map[uint][]string {
	parents := make(map[uint]*uint, len(categories))
	for _, c := range categories {
		parents[c.ID] = c.ParentID
	}

	paths := make(map[uint][]string, len(categories))
	for _, c := range categories {
		var chain []string
		seen := map[uint]bool{}
		for id := &c.ID; id != nil && !seen[*id]; {
			seen[*id] = true
			chain = append(chain, strconv.FormatUint(uint64(*id), 10))
			parent, ok := parents[*id]
			if !ok {
				break
			}
			id = parent
		}
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		paths[c.ID] = chain
	}
	return paths
}

func copyAttributes(base, overlay models.AttributeMap) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
