// Package seeder imports catalog data scraped from HTML product listings.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Selectors are CSS selectors evaluated inside each Item element. Empty
// selectors are skipped.
type Selectors struct {
	Item     string
	Name     string
	Price    string
	SKU      string
	Category string
	Keywords string
	Stock    string
	Language string
	Next     string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Item:     ".product",
		Name:     ".product-name",
		Price:    ".price",
		SKU:      ".sku",
		Category: ".breadcrumb li",
		Keywords: ".tags li",
		Stock:    ".stock",
		Language: "",
		Next:     "a.next",
	}
}

type Options struct {
	Selectors       Selectors
	DefaultLanguage string
	DefaultStock    int
	UserAgent       string
	Parallelism     int
	Delay           time.Duration
	Timeout         time.Duration
	MaxPages        int
}

// ScrapedProduct is one listing item after cleaning.
type ScrapedProduct struct {
	SKU           string
	Name          string
	Price         float64
	CategoryChain []string
	Keywords      []string
	Stock         int
	Language      string
	SourceURL     string
}

// CatalogWriter is the slice of the catalog repository the importer needs.
type CatalogWriter interface {
	EnsureCategoryPath(ctx context.Context, names []string) (*uint, error)
	UpsertProduct(ctx context.Context, product *models.Product) error
}

type ImportStats struct {
	Pages    int
	Scraped  int
	Skipped  int
	Imported int
	Failed   int
}

// Importer scrapes listing pages with colly and upserts the products found.
type Importer struct {
	options   Options
	processor *ListingProcessor
	writer    CatalogWriter
	logger    *logrus.Logger
}

// NewImporter builds an importer. A nil writer makes Import a dry run.
func NewImporter(options Options, writer CatalogWriter, logger *logrus.Logger) *Importer {
	if options.Selectors.Item == "" {
		options.Selectors = DefaultSelectors()
	}
	if options.UserAgent == "" {
		options.UserAgent = "POSCatalogImporter/1.0"
	}
	if options.Parallelism <= 0 {
		options.Parallelism = 1
	}
	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}
	if options.DefaultStock < 0 {
		options.DefaultStock = 0
	}

	return &Importer{
		options:   options,
		processor: NewListingProcessor(),
		writer:    writer,
		logger:    logger,
	}
}

func (im *Importer) newCollector() (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.UserAgent(im.options.UserAgent),
	)
	if im.options.MaxPages > 0 {
		c.MaxDepth = im.options.MaxPages
	}

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: im.options.Parallelism,
		Delay:       im.options.Delay,
	}); err != nil {
		return nil, fmt.Errorf("invalid limit rule: %w", err)
	}

	c.SetRequestTimeout(im.options.Timeout)
	return c, nil
}

// Scrape visits every URL and follows "next" links. Items that cannot be
// parsed are logged and skipped; page failures are returned alongside
// whatever was scraped.
func (im *Importer) Scrape(ctx context.Context, urls []string) ([]ScrapedProduct, ImportStats, error) {
	var (
		stats    ImportStats
		products []ScrapedProduct
		errs     []error
	)

	c, err := im.newCollector()
	if err != nil {
		return nil, stats, err
	}

	sel := im.options.Selectors
	c.OnHTML(sel.Item, func(e *colly.HTMLElement) {
		product, err := im.parseItem(e)
		if err != nil {
			stats.Skipped++
			im.logger.WithError(err).WithField("url", e.Request.URL.String()).Warn("Skipping listing item")
			return
		}
		stats.Scraped++
		products = append(products, product)
	})

	if sel.Next != "" {
		c.OnHTML(sel.Next, func(e *colly.HTMLElement) {
			if ctx.Err() != nil {
				return
			}
			next := e.Request.AbsoluteURL(e.Attr("href"))
			if next == "" {
				return
			}
			if err := e.Request.Visit(next); err != nil && !isBenignVisitError(err) {
				im.logger.WithError(err).WithField("url", next).Debug("Not following next page")
			}
		})
	}

	c.OnResponse(func(r *colly.Response) {
		stats.Pages++
		im.logger.WithFields(logrus.Fields{
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
		}).Debug("Fetched listing page")
	})

	c.OnError(func(r *colly.Response, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", r.Request.URL, err))
	})

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.Visit(url); err != nil && !isBenignVisitError(err) {
			errs = append(errs, fmt.Errorf("failed to visit %s: %w", url, err))
		}
	}
	c.Wait()

	return products, stats, errors.Join(errs...)
}

func isBenignVisitError(err error) bool {
	return errors.Is(err, colly.ErrAlreadyVisited) || errors.Is(err, colly.ErrMaxDepth)
}

func (im *Importer) parseItem(e *colly.HTMLElement) (ScrapedProduct, error) {
	sel := im.options.Selectors
	lp := im.processor

	name := lp.CleanText(childText(e, sel.Name))
	if name == "" {
		return ScrapedProduct{}, errors.New("listing item has no name")
	}

	price, err := lp.ParsePrice(childText(e, sel.Price))
	if err != nil {
		return ScrapedProduct{}, fmt.Errorf("%s: %w", name, err)
	}

	language := strings.ToLower(lp.CleanText(childText(e, sel.Language)))
	if language == "" {
		language = strings.ToLower(e.Attr("lang"))
	}
	if language == "" {
		language = im.options.DefaultLanguage
	}

	sku := lp.CleanText(childText(e, sel.SKU))
	sku = strings.TrimSpace(strings.TrimPrefix(sku, "SKU:"))
	if sku == "" {
		sku = lp.GenerateSKU(name, language)
	}

	stock, ok := lp.ParseStock(childText(e, sel.Stock))
	if !ok {
		stock = im.options.DefaultStock
	}

	return ScrapedProduct{
		SKU:           sku,
		Name:          name,
		Price:         price,
		CategoryChain: im.categoryChain(e),
		Keywords:      lp.ExtractKeywords(childTexts(e, sel.Keywords)...),
		Stock:         stock,
		Language:      language,
		SourceURL:     e.Request.URL.String(),
	}, nil
}

// categoryChain reads breadcrumbs either as one "A > B > C" string or as one
// element per level.
func (im *Importer) categoryChain(e *colly.HTMLElement) []string {
	var chain []string
	for _, level := range childTexts(e, im.options.Selectors.Category) {
		chain = append(chain, im.processor.SplitCategoryChain(level)...)
	}
	return chain
}

// Import writes scraped products through the catalog writer. Without a
// writer it only logs what would be written.
func (im *Importer) Import(ctx context.Context, products []ScrapedProduct) (ImportStats, error) {
	var stats ImportStats

	for i, p := range products {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if im.writer == nil {
			im.logger.WithFields(logrus.Fields{
				"sku":      p.SKU,
				"name":     p.Name,
				"price":    p.Price,
				"category": strings.Join(p.CategoryChain, " > "),
				"keywords": len(p.Keywords),
			}).Info("DRY RUN: Would import product")
			continue
		}

		categoryID, err := im.writer.EnsureCategoryPath(ctx, p.CategoryChain)
		if err != nil {
			stats.Failed++
			im.logger.WithError(err).WithField("sku", p.SKU).Error("Failed to resolve category")
			continue
		}

		product := &models.Product{
			SKU:           p.SKU,
			Name:          p.Name,
			Keywords:      models.StringList(p.Keywords),
			CategoryID:    categoryID,
			BasePrice:     p.Price,
			StockQuantity: p.Stock,
			Attributes:    models.AttributeMap{"source": p.SourceURL},
			Language:      p.Language,
			IsActive:      true,
		}
		if err := im.writer.UpsertProduct(ctx, product); err != nil {
			stats.Failed++
			im.logger.WithError(err).WithField("sku", p.SKU).Error("Failed to import product")
			continue
		}
		stats.Imported++

		if len(products) > 20 && i%10 == 0 {
			im.logger.WithField("progress", fmt.Sprintf("%d/%d", i+1, len(products))).Debug("Import progress")
		}
	}

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d products failed to import", stats.Failed, len(products))
	}
	return stats, nil
}

func childText(e *colly.HTMLElement, selector string) string {
	if selector == "" {
		return ""
	}
	return e.ChildText(selector)
}

func childTexts(e *colly.HTMLElement, selector string) []string {
	if selector == "" {
		return nil
	}
	var texts []string
	e.DOM.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}
