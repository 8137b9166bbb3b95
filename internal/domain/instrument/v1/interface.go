package instrumentv1

import (
	"context"

	"github.com/shopspring/decimal"
)

// Registry owns the set of tradable instruments.
type Registry interface {
	Create(ctx context.Context, params CreateInstrumentParams) (*Instrument, error)
	UpdateFees(ctx context.Context, id string, makerBps, takerBps int64) (*Instrument, error)
	UpdateLimits(ctx context.Context, id string, minSize, maxSize decimal.Decimal) (*Instrument, error)
	Deactivate(ctx context.Context, id string) (*Instrument, error)
	Get(id string) (*Instrument, error)
	List() []*Instrument
	Restore(instruments []*Instrument) error
}
