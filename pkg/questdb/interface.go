package questdb

import (
	"context"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=mock

// RowsInterface is the part of pgx.Rows the market data repository iterates with.
type RowsInterface interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// QuestDBClient is the pool facade used by the market data repository and the
// migration store. QuestDB has no transactions, so there is no Begin.
type QuestDBClient interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (RowsInterface, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	Ping(ctx context.Context) error
	Close()
}
