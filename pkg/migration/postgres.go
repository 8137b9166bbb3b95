package migration

import (
	"context"
	"fmt"

	"github.com/muhammadchandra19/exchange-core/pkg/postgresql"
)

// PostgresStore runs migrations against PostgreSQL, each inside its own transaction.
type PostgresStore struct {
	client    postgresql.PostgreSQLClient
	schema    string
	tableName string
}

// NewPostgresStore creates a PostgresStore. Empty schema defaults to public.
func NewPostgresStore(client postgresql.PostgreSQLClient, schema string) *PostgresStore {
	if schema == "" {
		schema = "public"
	}
	return &PostgresStore{client: client, schema: schema, tableName: "schema_migrations"}
}

func (s *PostgresStore) table() string {
	return fmt.Sprintf("%s.%s", s.schema, s.tableName)
}

// EnsureMigrationTable creates the schema_migrations table if it doesn't exist
func (s *PostgresStore) EnsureMigrationTable(ctx context.Context) error {
	_, err := s.client.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`, s.table()))
	return err
}

// AppliedMigrations returns a map of applied migration IDs
func (s *PostgresStore) AppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.client.Query(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY applied_at", s.table()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// Apply runs the UP script and records it in one transaction.
func (s *PostgresStore) Apply(ctx context.Context, m Migration) error {
	return postgresql.WithTx(ctx, s.client, func(txCtx context.Context) error {
		if _, err := s.client.Exec(txCtx, m.UpSQL); err != nil {
			return err
		}
		_, err := s.client.Exec(txCtx,
			fmt.Sprintf("INSERT INTO %s (id, name, applied_at) VALUES ($1, $2, NOW())", s.table()),
			m.ID, m.Name,
		)
		return err
	})
}

// Revert runs the DOWN script and removes the record in one transaction.
func (s *PostgresStore) Revert(ctx context.Context, m Migration) error {
	return postgresql.WithTx(ctx, s.client, func(txCtx context.Context) error {
		if _, err := s.client.Exec(txCtx, m.DownSQL); err != nil {
			return err
		}
		_, err := s.client.Exec(txCtx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table()), m.ID)
		return err
	})
}
