package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/muhammadchandra19/exchange-core/pkg/logger"
)

// Migration represents a database migration
type Migration struct {
	ID        string
	Name      string
	Timestamp time.Time
	UpSQL     string
	DownSQL   string
}

// Store is the database specific half of a migration run: bookkeeping table and statement execution.
//
//go:generate mockgen -source migration.go -destination=mock/migration_mock.go -package=migration_mock
type Store interface {
	EnsureMigrationTable(ctx context.Context) error
	AppliedMigrations(ctx context.Context) (map[string]bool, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

// Runner handles migration execution
type Runner struct {
	store        Store
	migrationDir string
	logger       logger.Interface
}

// NewRunner creates a new migration runner
func NewRunner(store Store, migrationDir string, logger logger.Interface) *Runner {
	return &Runner{
		store:        store,
		migrationDir: migrationDir,
		logger:       logger,
	}
}

// LoadMigrations loads all migration files from the migration directory
func (r *Runner) LoadMigrations() ([]Migration, error) {
	upFiles, err := filepath.Glob(filepath.Join(r.migrationDir, "*.up.sql"))
	if err != nil {
		return nil, err
	}

	sort.Strings(upFiles)

	migrations := make([]Migration, 0, len(upFiles))
	for _, upFile := range upFiles {
		migration, err := parseMigrationFiles(upFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", upFile, err)
		}
		migrations = append(migrations, migration)
	}

	return migrations, nil
}

// parseMigrationFiles parses UP and DOWN migration files
func parseMigrationFiles(upFilePath string) (Migration, error) {
	upContent, err := os.ReadFile(upFilePath)
	if err != nil {
		return Migration{}, err
	}

	fileName := filepath.Base(upFilePath)
	id := strings.TrimSuffix(fileName, ".up.sql")
	downFilePath := strings.Replace(upFilePath, ".up.sql", ".down.sql", 1)

	// format: YYYYMMDDHHMMSS_name
	parts := strings.SplitN(id, "_", 2)
	name := id
	if len(parts) > 1 {
		name = parts[1]
	}

	timestamp, err := time.Parse("20060102150405", parts[0])
	if err != nil {
		timestamp = time.Unix(0, 0)
	}

	var downSQL string
	if downContent, err := os.ReadFile(downFilePath); err == nil {
		downSQL = strings.TrimSpace(string(downContent))
	}

	return Migration{
		ID:        id,
		Name:      name,
		Timestamp: timestamp,
		UpSQL:     strings.TrimSpace(string(upContent)),
		DownSQL:   downSQL,
	}, nil
}

// MigrateUp applies pending migrations. steps <= 0 applies all of them.
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	if err := r.store.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.store.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toApply []Migration
	for _, migration := range migrations {
		if !applied[migration.ID] {
			toApply = append(toApply, migration)
		}
	}

	if steps > 0 && len(toApply) > steps {
		toApply = toApply[:steps]
	}

	for _, migration := range toApply {
		if migration.UpSQL == "" {
			r.logger.Warn("No UP SQL found for migration", logger.Field{Key: "migration", Value: migration.ID})
			continue
		}

		if err := r.store.Apply(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.ID, err)
		}

		r.logger.Info("Applied migration", logger.Field{Key: "migration", Value: migration.ID})
	}

	return nil
}

// MigrateDown reverts the last steps applied migrations.
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0 for down migrations")
	}

	if err := r.store.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.store.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0 && len(toRevert) < steps; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
		}
	}

	for _, migration := range toRevert {
		if migration.DownSQL == "" {
			return fmt.Errorf("no DOWN SQL found for migration %s - cannot revert", migration.ID)
		}

		if err := r.store.Revert(ctx, migration); err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", migration.ID, err)
		}

		r.logger.Info("Reverted migration", logger.Field{Key: "migration", Value: migration.ID})
	}

	return nil
}
