package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sankirtan-pos/backend/internal/config"
	"github.com/sankirtan-pos/backend/internal/database"
	"github.com/sankirtan-pos/backend/internal/repository"
	"github.com/sankirtan-pos/backend/internal/seeder"
	"github.com/sankirtan-pos/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

var (
	defaults = seeder.DefaultSelectors()

	dryRun      = flag.Bool("dry-run", false, "Scrape and print products without writing them")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	concurrent  = flag.Int("concurrent", 2, "Number of concurrent requests")
	delay       = flag.Duration("delay", time.Second, "Delay between requests")
	maxPages    = flag.Int("max-pages", 20, "Maximum pagination depth per start URL (0 = unlimited)")
	language    = flag.String("language", "", "Language for listings without one (default: search.default_language)")
	stock       = flag.Int("default-stock", 0, "Stock for listings that do not show a quantity")
	skipMigrate = flag.Bool("skip-migrations", false, "Don't auto-migrate the catalog tables")

	itemSel     = flag.String("item", defaults.Item, "CSS selector of one listing item")
	nameSel     = flag.String("name", defaults.Name, "Selector of the product name inside an item")
	priceSel    = flag.String("price", defaults.Price, "Selector of the price inside an item")
	skuSel      = flag.String("sku", defaults.SKU, "Selector of the SKU inside an item")
	categorySel = flag.String("category", defaults.Category, "Selector of the breadcrumb levels inside an item")
	keywordsSel = flag.String("keywords", defaults.Keywords, "Selector of keyword tags inside an item")
	stockSel    = flag.String("stock", defaults.Stock, "Selector of the stock text inside an item")
	languageSel = flag.String("language-selector", defaults.Language, "Selector of the language code inside an item")
	nextSel     = flag.String("next", defaults.Next, "Selector of the next-page link")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.InitLogger(cfg.Log.Level)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	urls := flag.Args()
	if len(urls) == 0 {
		logger.Fatal("Usage: seed [flags] <listing-url>...")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		writer    seeder.CatalogWriter
		dbManager *database.Manager
	)
	if !*dryRun {
		if cfg.Database.Driver == database.DriverMemory {
			logger.Fatal("The memory driver has no catalog tables to import into; use -dry-run or a database driver")
		}

		dbManager, err = database.NewManager(&database.Config{
			Driver:      cfg.Database.Driver,
			DatabaseURL: cfg.Database.URL,
			RedisURL:    cfg.Redis.URL,
			LogLevel:    cfg.Database.LogLevel,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database manager")
		}
		defer dbManager.Close()

		if !*skipMigrate {
			if err := dbManager.Migrate(); err != nil {
				logger.WithError(err).Fatal("Failed to migrate catalog tables")
			}
		}
		writer = repository.NewCatalogRepository(dbManager.DB)
	}

	lang := *language
	if lang == "" {
		lang = cfg.Search.DefaultLanguage
	}

	importer := seeder.NewImporter(seeder.Options{
		Selectors: seeder.Selectors{
			Item:     *itemSel,
			Name:     *nameSel,
			Price:    *priceSel,
			SKU:      *skuSel,
			Category: *categorySel,
			Keywords: *keywordsSel,
			Stock:    *stockSel,
			Language: *languageSel,
			Next:     *nextSel,
		},
		DefaultLanguage: strings.ToLower(lang),
		DefaultStock:    *stock,
		Parallelism:     *concurrent,
		Delay:           *delay,
		MaxPages:        *maxPages,
	}, writer, logger)

	logger.WithField("urls", len(urls)).Info("Starting catalog import...")

	products, scrapeStats, err := importer.Scrape(ctx, urls)
	if err != nil {
		logger.WithError(err).Warn("Some listing pages failed")
	}

	importStats, err := importer.Import(ctx, products)
	if err != nil {
		logger.WithError(err).Error("Catalog import incomplete")
	}

	if dbManager != nil && dbManager.Redis != nil {
		cache := database.NewCache(dbManager.Redis, logger)
		if removed, err := cache.InvalidateCatalog(ctx); err != nil {
			logger.WithError(err).Warn("Failed to invalidate cached catalog")
		} else {
			logger.WithField("keys", removed).Info("Cached catalog invalidated")
		}
	}

	logger.WithFields(logrus.Fields{
		"pages":    scrapeStats.Pages,
		"scraped":  scrapeStats.Scraped,
		"skipped":  scrapeStats.Skipped,
		"imported": importStats.Imported,
		"failed":   importStats.Failed,
		"dry_run":  *dryRun,
	}).Info("Catalog import completed")

	if err != nil {
		os.Exit(1)
	}
}
