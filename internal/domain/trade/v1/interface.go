package tradev1

import "context"

// Ledger is the append-only record of executed trades.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradev1_mock
type Ledger interface {
	// CanAppend reports whether n more trades fit without a fatal condition.
	CanAppend(n int) error
	Append(ctx context.Context, trades ...*Trade) error
	Trades(instrumentID string) []*Trade
	Stats(instrumentID string) Stats
	GlobalStats() Stats
	Verify() error
}

// Repository persists executed trades.
type Repository interface {
	Store(ctx context.Context, trade *Trade) error
	StoreBatch(ctx context.Context, trades []*Trade) error
	ListByInstrument(ctx context.Context, instrumentID string, limit int) ([]*Trade, error)
}
