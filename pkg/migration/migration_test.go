package migration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/migration"
	migrationmock "github.com/muhammadchandra19/exchange-core/pkg/migration/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigrations(t *testing.T) string {
	dir := t.TempDir()
	files := map[string]string{
		"20240101000000_create_orders.up.sql":   "CREATE TABLE orders (id TEXT);",
		"20240101000000_create_orders.down.sql": "DROP TABLE orders;",
		"20240102000000_create_trades.up.sql":   "CREATE TABLE trades (id TEXT);",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoadMigrations(t *testing.T) {
	dir := writeMigrations(t)
	runner := migration.NewRunner(nil, dir, logger.NewNopLogger())

	migrations, err := runner.LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "20240101000000_create_orders", migrations[0].ID)
	assert.Equal(t, "create_orders", migrations[0].Name)
	assert.Equal(t, "DROP TABLE orders;", migrations[0].DownSQL)
	assert.Equal(t, 2024, migrations[0].Timestamp.Year())
	assert.Empty(t, migrations[1].DownSQL)
}

func TestMigrateUp(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		steps    int
		mockFn   func(store *migrationmock.MockStore)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "applies only pending migrations",
			mockFn: func(store *migrationmock.MockStore) {
				store.EXPECT().EnsureMigrationTable(ctx).Return(nil)
				store.EXPECT().AppliedMigrations(ctx).Return(map[string]bool{"20240101000000_create_orders": true}, nil)
				store.EXPECT().Apply(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, m migration.Migration) error {
					assert.Equal(t, "20240102000000_create_trades", m.ID)
					return nil
				})
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:  "respects step limit",
			steps: 1,
			mockFn: func(store *migrationmock.MockStore) {
				store.EXPECT().EnsureMigrationTable(ctx).Return(nil)
				store.EXPECT().AppliedMigrations(ctx).Return(map[string]bool{}, nil)
				store.EXPECT().Apply(ctx, gomock.Any()).Return(nil).Times(1)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "stops on apply failure",
			mockFn: func(store *migrationmock.MockStore) {
				store.EXPECT().EnsureMigrationTable(ctx).Return(nil)
				store.EXPECT().AppliedMigrations(ctx).Return(map[string]bool{}, nil)
				store.EXPECT().Apply(ctx, gomock.Any()).Return(errors.New("boom")).Times(1)
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "boom")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := migrationmock.NewMockStore(ctrl)
			tc.mockFn(store)

			runner := migration.NewRunner(store, writeMigrations(t), logger.NewNopLogger())
			tc.assertFn(t, runner.MigrateUp(ctx, tc.steps))
		})
	}
}

func TestMigrateDown(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non positive steps", func(t *testing.T) {
		runner := migration.NewRunner(nil, writeMigrations(t), logger.NewNopLogger())
		assert.Error(t, runner.MigrateDown(ctx, 0))
	})

	t.Run("fails when down script is missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := migrationmock.NewMockStore(ctrl)
		store.EXPECT().EnsureMigrationTable(ctx).Return(nil)
		store.EXPECT().AppliedMigrations(ctx).Return(map[string]bool{
			"20240101000000_create_orders": true,
			"20240102000000_create_trades": true,
		}, nil)

		runner := migration.NewRunner(store, writeMigrations(t), logger.NewNopLogger())
		assert.ErrorContains(t, runner.MigrateDown(ctx, 1), "cannot revert")
	})

	t.Run("reverts latest applied", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := migrationmock.NewMockStore(ctrl)
		store.EXPECT().EnsureMigrationTable(ctx).Return(nil)
		store.EXPECT().AppliedMigrations(ctx).Return(map[string]bool{"20240101000000_create_orders": true}, nil)
		store.EXPECT().Revert(ctx, gomock.Any()).Return(nil)

		runner := migration.NewRunner(store, writeMigrations(t), logger.NewNopLogger())
		assert.NoError(t, runner.MigrateDown(ctx, 1))
	})
}

func TestSplitStatements(t *testing.T) {
	stmts := migration.SplitStatements(`
-- orders
CREATE TABLE a (x INT);

CREATE TABLE b (y INT);
`)
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, stmts)
}
