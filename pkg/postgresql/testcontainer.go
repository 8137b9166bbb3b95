package postgresql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainer wraps a PostgreSQL testcontainer with utilities
type TestContainer struct {
	Container testcontainers.Container
	Client    *Client
	ConnStr   string
}

// TestContainerConfig holds configuration for the test container
type TestContainerConfig struct {
	Image          string
	Database       string
	Username       string
	Password       string
	MigrationsPath string
	StartupTimeout time.Duration
}

// DefaultTestContainerConfig returns a default configuration
func DefaultTestContainerConfig() *TestContainerConfig {
	return &TestContainerConfig{
		Image:          "postgres:16-alpine",
		Database:       "exchange_test",
		Username:       "test_user",
		Password:       "test_pass",
		StartupTimeout: 2 * time.Minute,
	}
}

// NewTestContainer creates and starts a new PostgreSQL test container, applying
// every *.up.sql file under MigrationsPath in name order.
func NewTestContainer(ctx context.Context, config *TestContainerConfig) (*TestContainer, error) {
	if config == nil {
		config = DefaultTestContainerConfig()
	}

	container, err := postgres.Run(ctx, config.Image,
		postgres.WithDatabase(config.Database),
		postgres.WithUsername(config.Username),
		postgres.WithPassword(config.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(config.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	tc := &TestContainer{
		Container: container,
		Client:    NewClientFromPool(pool),
		ConnStr:   connStr,
	}

	if config.MigrationsPath != "" {
		if err := tc.RunMigrations(ctx, config.MigrationsPath); err != nil {
			_ = tc.Close(ctx)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return tc, nil
}

// RunMigrations executes every *.up.sql file in dir.
func (tc *TestContainer) RunMigrations(ctx context.Context, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		sql := strings.TrimSpace(string(content))
		if sql == "" {
			continue
		}
		if _, err := tc.Client.Exec(ctx, sql); err != nil {
			return fmt.Errorf("migration %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

// Truncate empties the given tables.
func (tc *TestContainer) Truncate(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := tc.Client.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", ")))
	return err
}

// Close closes the connection and terminates the container
func (tc *TestContainer) Close(ctx context.Context) error {
	if tc.Client != nil {
		tc.Client.Close()
	}
	if tc.Container != nil {
		return tc.Container.Terminate(ctx)
	}
	return nil
}
