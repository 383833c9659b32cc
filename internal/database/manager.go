package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Database connection manager
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Driver string
	logger *logrus.Logger
}

// Database configuration
type Config struct {
	Driver      string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
}

// NewManager opens the configured database and, when a URL is given, redis.
// The memory driver opens no database at all.
func NewManager(config *Config, logger *logrus.Logger) (*Manager, error) {
	m := &Manager{Driver: config.Driver, logger: logger}
	if m.Driver == "" {
		m.Driver = DriverPostgres
	}

	if m.Driver != DriverMemory {
		db, err := openDatabase(m.Driver, config.DatabaseURL, config.LogLevel, logger)
		if err != nil {
			return nil, err
		}
		m.DB = db
	}

	if config.RedisURL != "" {
		client, err := openRedis(config.RedisURL)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.Redis = client
	}

	logger.WithFields(logrus.Fields{
		"driver": m.Driver,
		"redis":  m.Redis != nil,
	}).Info("Storage connections established successfully")

	return m, nil
}

func openDatabase(driver, url, logLevel string, logger *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(url)
	case DriverSQLite:
		dialector = gormlite.Open(url)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(logger, logLevel),
		SkipDefaultTransaction: true,
		PrepareStmt:            driver == DriverPostgres,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	switch driver {
	case DriverSQLite:
		// One writer; also keeps ":memory:" databases on a single connection.
		sqlDB.SetMaxOpenConns(1)
	default:
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func openRedis(url string) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = 20
	redisOpts.MinIdleConns = 5
	redisOpts.MaxConnAge = time.Hour
	redisOpts.IdleTimeout = 30 * time.Minute

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewGormLogger routes gorm output through logrus. Only "debug" logs SQL.
func NewGormLogger(logger *logrus.Logger, level string) gormlogger.Interface {
	if level != "debug" {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return gormlogger.New(logger, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Info,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Migrate creates or updates every table the engine owns.
func (m *Manager) Migrate() error {
	if m.DB == nil {
		return nil
	}
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.SuggestionEntry{},
		&models.SearchEvent{},
		&models.SystemHealth{},
	)
}

// Close closes all database connections
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

// Health check methods
func (m *Manager) PingDatabase(ctx context.Context) error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Manager) PingRedis(ctx context.Context) error {
	if m.Redis == nil {
		return nil
	}
	return m.Redis.Ping(ctx).Err()
}
