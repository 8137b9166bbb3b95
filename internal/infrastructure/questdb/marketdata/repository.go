package marketdata

import (
	"context"
	"fmt"
	"time"

	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/questdb"
	"github.com/shopspring/decimal"
)

// Prices are stored as DOUBLE for analytics. History read back from QuestDB is
// approximate; the engine never reads it.
const (
	insertSnapshotQuery = `INSERT INTO market_snapshots (timestamp, instrument_id, last_price, bid, ask, open_24h, high_24h, low_24h, volume_24h, window_started_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	insertOpportunityQuery = `INSERT INTO arbitrage_opportunities (timestamp, id, instrument_id, bid, ask, profit_bps, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectSnapshotsQuery = `SELECT timestamp, instrument_id, last_price, bid, ask, open_24h, high_24h, low_24h, volume_24h, window_started_at
			  FROM market_snapshots
			  WHERE instrument_id = $1 AND timestamp >= $2 AND timestamp <= $3
			  ORDER BY timestamp`
	selectOpportunitiesQuery = `SELECT timestamp, id, instrument_id, bid, ask, profit_bps, expires_at
			  FROM arbitrage_opportunities
			  WHERE instrument_id = $1 AND timestamp >= $2 AND timestamp <= $3
			  ORDER BY timestamp`
)

// Repository stores market snapshots and arbitrage opportunities in QuestDB.
type Repository struct {
	client questdb.QuestDBClient
}

// NewRepository creates a new market data repository.
func NewRepository(client questdb.QuestDBClient) *Repository {
	return &Repository{
		client: client,
	}
}

// StoreSnapshot appends a market snapshot, timestamped with its update time.
func (r *Repository) StoreSnapshot(ctx context.Context, s *marketdatav1.Snapshot) error {
	err := r.client.Exec(ctx, insertSnapshotQuery,
		s.UpdatedAt,
		s.InstrumentID,
		s.LastPrice.InexactFloat64(),
		s.Bid.InexactFloat64(),
		s.Ask.InexactFloat64(),
		s.Open24h.InexactFloat64(),
		s.High24h.InexactFloat64(),
		s.Low24h.InexactFloat64(),
		s.Volume24h.InexactFloat64(),
		s.WindowStartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store market snapshot: %w", err)
	}
	return nil
}

// StoreOpportunity appends a detected arbitrage opportunity.
func (r *Repository) StoreOpportunity(ctx context.Context, a *marketdatav1.ArbitrageOpportunity) error {
	err := r.client.Exec(ctx, insertOpportunityQuery,
		a.DetectedAt,
		a.ID,
		a.InstrumentID,
		a.Bid.InexactFloat64(),
		a.Ask.InexactFloat64(),
		a.ProfitBps.InexactFloat64(),
		a.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store arbitrage opportunity: %w", err)
	}
	return nil
}

// GetSnapshots returns the snapshots of instrumentID recorded in [from, to], oldest first.
func (r *Repository) GetSnapshots(ctx context.Context, instrumentID string, from, to time.Time) ([]*marketdatav1.Snapshot, error) {
	rows, err := r.client.Query(ctx, selectSnapshotsQuery, instrumentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query market snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*marketdatav1.Snapshot
	for rows.Next() {
		var (
			s                                       marketdatav1.Snapshot
			last, bid, ask, open, high, low, volume float64
		)
		if err := rows.Scan(&s.UpdatedAt, &s.InstrumentID, &last, &bid, &ask, &open, &high, &low, &volume, &s.WindowStartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan market snapshot: %w", err)
		}
		s.LastPrice = decimal.NewFromFloat(last)
		s.Bid = decimal.NewFromFloat(bid)
		s.Ask = decimal.NewFromFloat(ask)
		s.Open24h = decimal.NewFromFloat(open)
		s.High24h = decimal.NewFromFloat(high)
		s.Low24h = decimal.NewFromFloat(low)
		s.Volume24h = decimal.NewFromFloat(volume)
		snapshots = append(snapshots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return snapshots, nil
}

// GetOpportunities returns the opportunities of instrumentID detected in [from, to], oldest first.
// Active is derived from to, the end of the requested range.
func (r *Repository) GetOpportunities(ctx context.Context, instrumentID string, from, to time.Time) ([]*marketdatav1.ArbitrageOpportunity, error) {
	rows, err := r.client.Query(ctx, selectOpportunitiesQuery, instrumentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query arbitrage opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []*marketdatav1.ArbitrageOpportunity
	for rows.Next() {
		var (
			a                   marketdatav1.ArbitrageOpportunity
			bid, ask, profitBps float64
		)
		if err := rows.Scan(&a.DetectedAt, &a.ID, &a.InstrumentID, &bid, &ask, &profitBps, &a.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan arbitrage opportunity: %w", err)
		}
		a.Bid = decimal.NewFromFloat(bid)
		a.Ask = decimal.NewFromFloat(ask)
		a.ProfitBps = decimal.NewFromFloat(profitBps)
		a.Active = !a.IsExpired(to)
		opportunities = append(opportunities, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return opportunities, nil
}

var _ marketdatav1.Repository = (*Repository)(nil)
