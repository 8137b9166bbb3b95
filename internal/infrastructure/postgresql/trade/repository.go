package trade

import (
	"context"

	"github.com/jackc/pgx/v5"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/postgresql"
)

var columnNames = []string{
	"id",
	"instrument_id",
	"maker_order_id",
	"taker_order_id",
	"maker",
	"taker",
	"taker_side",
	"quantity",
	"price",
	"notional",
	"maker_fee",
	"taker_fee",
	"rfq_id",
	"sequence",
	"executed_at",
}

const (
	insertQuery = `INSERT INTO trades (id, instrument_id, maker_order_id, taker_order_id, maker, taker, taker_side, quantity, price, notional, maker_fee, taker_fee, rfq_id, sequence, executed_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) ON CONFLICT (id) DO NOTHING`
	listQuery   = `SELECT id, instrument_id, maker_order_id, taker_order_id, maker, taker, taker_side, quantity, price, notional, maker_fee, taker_fee, rfq_id, sequence, executed_at FROM trades WHERE instrument_id = $1 ORDER BY sequence DESC LIMIT $2`
)

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates the Postgres trade repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func values(t *tradev1.Trade) []any {
	return []any{
		t.ID,
		t.InstrumentID,
		t.MakerOrderID,
		t.TakerOrderID,
		t.Maker,
		t.Taker,
		string(t.TakerSide),
		t.Quantity,
		t.Price,
		t.Notional,
		t.MakerFee,
		t.TakerFee,
		t.RFQID,
		int64(t.Sequence),
		t.ExecutedAt,
	}
}

// Store inserts a trade. Storing a trade twice is a no-op.
func (r *repository) Store(ctx context.Context, t *tradev1.Trade) error {
	cmd, err := r.db.Exec(ctx, insertQuery, values(t)...)
	if err != nil {
		r.logger.Error(err, logger.Field{Key: "error", Value: err.Error()}, logger.Field{Key: "trade_id", Value: t.ID})
		return errors.TracerFromError(err)
	}

	r.logger.Debug("Inserted trade", logger.Field{Key: "commandTag", Value: cmd.String()})
	return nil
}

// StoreBatch copies trades in one round trip. The batch fails as a whole if any trade already exists.
func (r *repository) StoreBatch(ctx context.Context, trades []*tradev1.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	copyCount, err := r.db.CopyFrom(ctx, pgx.Identifier{"trades"}, columnNames,
		pgx.CopyFromSlice(len(trades), func(i int) ([]any, error) {
			return values(trades[i]), nil
		}))
	if err != nil {
		return errors.TracerFromError(err)
	}

	r.logger.Info("Inserted batch of trades", logger.Field{Key: "copyCount", Value: copyCount})
	return nil
}

// ListByInstrument returns up to limit trades, newest first.
func (r *repository) ListByInstrument(ctx context.Context, instrumentID string, limit int) ([]*tradev1.Trade, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, listQuery, instrumentID, limit)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	trades := []*tradev1.Trade{}
	for rows.Next() {
		var (
			t         tradev1.Trade
			takerSide string
			sequence  int64
		)
		if err := rows.Scan(
			&t.ID,
			&t.InstrumentID,
			&t.MakerOrderID,
			&t.TakerOrderID,
			&t.Maker,
			&t.Taker,
			&takerSide,
			&t.Quantity,
			&t.Price,
			&t.Notional,
			&t.MakerFee,
			&t.TakerFee,
			&t.RFQID,
			&sequence,
			&t.ExecutedAt,
		); err != nil {
			return nil, errors.TracerFromError(err)
		}
		t.TakerSide = orderv1.Side(takerSide)
		t.Sequence = uint64(sequence)
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return trades, nil
}

var _ tradev1.Repository = (*repository)(nil)
