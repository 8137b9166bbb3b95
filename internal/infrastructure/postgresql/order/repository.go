package order

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/postgresql"
)

const columns = `id, instrument_id, owner, side, type, quantity, price, filled_quantity, remaining_quantity, time_in_force, expires_at, status, sequence, client_ref, created_at, updated_at`

// upsertQuery keeps the newest version of an order. Events may be replayed, so an
// older row never overwrites a newer one.
const upsertQuery = `INSERT INTO orders (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE SET
	filled_quantity = EXCLUDED.filled_quantity,
	remaining_quantity = EXCLUDED.remaining_quantity,
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at
WHERE orders.updated_at <= EXCLUDED.updated_at`

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates the Postgres order history repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the order or advances its fill state.
func (r *repository) Upsert(ctx context.Context, o *orderv1.Order) error {
	cmd, err := r.db.Exec(ctx, upsertQuery,
		o.ID,
		o.InstrumentID,
		o.Owner,
		string(o.Side),
		string(o.Type),
		o.Quantity,
		o.Price,
		o.FilledQuantity,
		o.RemainingQuantity,
		string(o.TimeInForce),
		nullableTime(o.ExpiresAt),
		string(o.Status),
		int64(o.Sequence),
		o.ClientRef,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error(err, logger.Field{Key: "error", Value: err.Error()}, logger.Field{Key: "order_id", Value: o.ID})
		return errors.TracerFromError(err)
	}

	r.logger.Debug("Upserted order",
		logger.Field{Key: "order_id", Value: o.ID},
		logger.Field{Key: "commandTag", Value: cmd.String()},
	)
	return nil
}

// GetByID returns the order, or nil when it is unknown.
func (r *repository) GetByID(ctx context.Context, id string) (*orderv1.Order, error) {
	query := `SELECT ` + columns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.TracerFromError(err)
	}
	return o, nil
}

// List returns orders matching filter, newest first unless SortDirection is ASC.
func (r *repository) List(ctx context.Context, filter orderv1.Filter) ([]*orderv1.Order, error) {
	query := `SELECT ` + columns + ` FROM orders WHERE 1=1`
	args := []any{}
	argIndex := 1

	if filter.InstrumentID != "" {
		query += fmt.Sprintf(" AND instrument_id = $%d", argIndex)
		args = append(args, filter.InstrumentID)
		argIndex++
	}

	if filter.Owner != "" {
		query += fmt.Sprintf(" AND owner = $%d", argIndex)
		args = append(args, filter.Owner)
		argIndex++
	}

	if filter.Side != "" {
		query += fmt.Sprintf(" AND side = $%d", argIndex)
		args = append(args, string(filter.Side))
		argIndex++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(filter.Status))
		argIndex++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	if strings.EqualFold(filter.SortDirection, "ASC") {
		query += " ORDER BY created_at ASC, sequence ASC"
	} else {
		query += " ORDER BY created_at DESC, sequence DESC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	orders := []*orderv1.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.TracerFromError(err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*orderv1.Order, error) {
	var (
		o                      orderv1.Order
		side, typ, tif, status string
		expiresAt              *time.Time
		sequence               int64
	)
	err := row.Scan(
		&o.ID,
		&o.InstrumentID,
		&o.Owner,
		&side,
		&typ,
		&o.Quantity,
		&o.Price,
		&o.FilledQuantity,
		&o.RemainingQuantity,
		&tif,
		&expiresAt,
		&status,
		&sequence,
		&o.ClientRef,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Side = orderv1.Side(side)
	o.Type = orderv1.Type(typ)
	o.TimeInForce = orderv1.TimeInForce(tif)
	o.Status = orderv1.Status(status)
	o.Sequence = uint64(sequence)
	if expiresAt != nil {
		o.ExpiresAt = *expiresAt
	}
	return &o, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ orderv1.Repository = (*repository)(nil)
