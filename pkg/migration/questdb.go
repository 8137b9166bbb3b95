package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/muhammadchandra19/exchange-core/pkg/questdb"
)

// QuestDBStore runs migrations against QuestDB. QuestDB has no DDL transactions,
// so statements are executed one by one.
type QuestDBStore struct {
	client questdb.QuestDBClient
}

// NewQuestDBStore creates a QuestDBStore.
func NewQuestDBStore(client questdb.QuestDBClient) *QuestDBStore {
	return &QuestDBStore{client: client}
}

// EnsureMigrationTable creates the schema_migrations table if it doesn't exist
func (s *QuestDBStore) EnsureMigrationTable(ctx context.Context) error {
	return s.client.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SYMBOL,
			name STRING,
			applied_at TIMESTAMP
		) TIMESTAMP(applied_at) PARTITION BY YEAR`)
}

// AppliedMigrations returns a map of applied migration IDs
func (s *QuestDBStore) AppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.client.Query(ctx, "SELECT id FROM schema_migrations")
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

// Apply runs every statement of the UP script and records the migration.
func (s *QuestDBStore) Apply(ctx context.Context, m Migration) error {
	for _, stmt := range SplitStatements(m.UpSQL) {
		if err := s.client.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return s.client.Exec(ctx, "INSERT INTO schema_migrations VALUES ($1, $2, now())", m.ID, m.Name)
}

// Revert runs the DOWN script. QuestDB cannot delete single rows, so the record
// table is rebuilt without the reverted id.
func (s *QuestDBStore) Revert(ctx context.Context, m Migration) error {
	for _, stmt := range SplitStatements(m.DownSQL) {
		if err := s.client.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	stmts := []string{
		"CREATE TABLE schema_migrations_tmp AS (SELECT * FROM schema_migrations WHERE id != '" + strings.ReplaceAll(m.ID, "'", "''") + "') TIMESTAMP(applied_at) PARTITION BY YEAR",
		"DROP TABLE schema_migrations",
		"RENAME TABLE schema_migrations_tmp TO schema_migrations",
	}
	for _, stmt := range stmts {
		if err := s.client.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
	}
	return nil
}

// SplitStatements splits a script on semicolons, dropping blank statements and comment lines.
func SplitStatements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
