package marketdatav1

import (
	"context"
	"time"
)

// Feed keeps rolling per-instrument market views and scans them for arbitrage.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=marketdatav1_mock
type Feed interface {
	Update(ctx context.Context, update Update) (*Snapshot, []*ArbitrageOpportunity, error)
	ResetWindow(ctx context.Context, instrumentID string) (*Snapshot, error)
	Snapshot(instrumentID string) (*Snapshot, error)
	ActiveOpportunities(instrumentID string) []*ArbitrageOpportunity
	Snapshots() []*Snapshot
	Restore(snapshots []*Snapshot)
}

// Repository stores market history for analytics.
type Repository interface {
	StoreSnapshot(ctx context.Context, snapshot *Snapshot) error
	StoreOpportunity(ctx context.Context, opportunity *ArbitrageOpportunity) error
	GetSnapshots(ctx context.Context, instrumentID string, from, to time.Time) ([]*Snapshot, error)
	GetOpportunities(ctx context.Context, instrumentID string, from, to time.Time) ([]*ArbitrageOpportunity, error)
}
