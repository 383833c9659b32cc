package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sankirtan-pos/backend/internal/database"
	"github.com/sirupsen/logrus"
)

type Runner struct {
	dbManager *database.Manager
	logger    *logrus.Logger
}

func NewRunner(dbManager *database.Manager, logger *logrus.Logger) *Runner {
	return &Runner{
		dbManager: dbManager,
		logger:    logger,
	}
}

// RunMigrations executes all pending migrations
func (r *Runner) RunMigrations(migrationsPath string) error {
	if r.dbManager.DB == nil {
		r.logger.Info("No database configured, skipping migrations")
		return nil
	}
	r.logger.Info("Starting database migrations...")

	// First run GORM auto-migrations
	if err := r.dbManager.Migrate(); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}

	// SQL files use postgres-only features (partial indexes with operator
	// classes, plpgsql triggers).
	if r.dbManager.Driver != database.DriverPostgres {
		r.logger.WithField("driver", r.dbManager.Driver).Info("Skipping SQL migrations")
		return nil
	}

	if err := r.runSQLMigrations(migrationsPath); err != nil {
		return fmt.Errorf("SQL migrations failed: %w", err)
	}

	r.logger.Info("Database migrations completed successfully")
	return nil
}

func (r *Runner) runSQLMigrations(migrationsPath string) error {
	sqlFiles, err := ListSQLFiles(migrationsPath)
	if err != nil {
		return err
	}

	for _, fileName := range sqlFiles {
		if err := r.runSQLFile(filepath.Join(migrationsPath, fileName)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", fileName, err)
		}
		r.logger.WithField("file", fileName).Info("Migration executed successfully")
	}

	return nil
}

// ListSQLFiles returns the .sql files in dir in execution order.
func ListSQLFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}

	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

func (r *Runner) runSQLFile(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	for i, stmt := range SplitStatements(string(content)) {
		r.logger.WithFields(logrus.Fields{
			"file":      filepath.Base(filePath),
			"statement": i + 1,
		}).Debug("Executing SQL statement")

		if err := r.dbManager.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to execute statement %d in %s: %w", i+1, filepath.Base(filePath), err)
		}
	}

	return nil
}

// SplitStatements drops comment lines and splits on semicolons outside
// dollar-quoted bodies.
func SplitStatements(sql string) []string {
	var cleaned []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}
	sql = strings.Join(cleaned, "\n")

	var (
		statements []string
		current    strings.Builder
		inDollar   bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		if strings.HasPrefix(sql[i:], "$$") {
			inDollar = !inDollar
			current.WriteString("$$")
			i++
			continue
		}
		if sql[i] == ';' && !inDollar {
			flush()
			continue
		}
		current.WriteByte(sql[i])
	}
	flush()

	return statements
}
