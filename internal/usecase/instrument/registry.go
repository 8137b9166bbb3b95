package instrument

import (
	"context"
	"fmt"
	"sort"
	"sync"

	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
)

// Registry is the in-memory instrument registry. Instruments are never deleted.
type Registry struct {
	mu          sync.RWMutex
	instruments map[string]*instrumentv1.Instrument
	pairs       map[string]string

	clock  util.Clock
	logger logger.Interface
}

// NewRegistry creates an empty registry.
func NewRegistry(clock util.Clock, log logger.Interface) *Registry {
	return &Registry{
		instruments: make(map[string]*instrumentv1.Instrument),
		pairs:       make(map[string]string),
		clock:       clock,
		logger:      log,
	}
}

// Create validates params and registers a new active instrument.
func (r *Registry) Create(ctx context.Context, params instrumentv1.CreateInstrumentParams) (*instrumentv1.Instrument, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := instrumentv1.PairKey(params.BaseAsset, params.QuoteAsset, params.Class)
	if existing, ok := r.pairs[key]; ok {
		return nil, errors.NewValidationError(errors.ErrInstrumentDuplicate,
			fmt.Sprintf("instrument %s already exists as %s", key, existing), "baseAsset")
	}

	now := r.clock.Now()
	inst := &instrumentv1.Instrument{
		ID:           util.NewID(),
		BaseAsset:    params.BaseAsset,
		QuoteAsset:   params.QuoteAsset,
		Class:        params.Class,
		TickSize:     params.TickSize,
		LotSize:      params.LotSize,
		MinOrderSize: params.MinOrderSize,
		MaxOrderSize: params.MaxOrderSize,
		MakerFeeBps:  params.MakerFeeBps,
		TakerFeeBps:  params.TakerFeeBps,
		Active:       true,
		Jurisdiction: params.Jurisdiction,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.instruments[inst.ID] = inst
	r.pairs[key] = inst.ID

	r.logger.InfoContext(ctx, "instrument created",
		logger.Field{Key: "instrument_id", Value: inst.ID},
		logger.Field{Key: "symbol", Value: inst.Symbol()},
	)

	return inst.Clone(), nil
}

// UpdateFees replaces the maker and taker rates.
func (r *Registry) UpdateFees(ctx context.Context, id string, makerBps, takerBps int64) (*instrumentv1.Instrument, error) {
	if details := instrumentv1.ValidateFees(makerBps, takerBps); len(details) > 0 {
		return nil, errors.NewBaseError(details...)
	}

	return r.update(ctx, id, "instrument fees updated", func(inst *instrumentv1.Instrument) {
		inst.MakerFeeBps = makerBps
		inst.TakerFeeBps = takerBps
	})
}

// UpdateLimits replaces the order size bounds.
func (r *Registry) UpdateLimits(ctx context.Context, id string, minSize, maxSize decimal.Decimal) (*instrumentv1.Instrument, error) {
	if details := instrumentv1.ValidateLimits(minSize, maxSize); len(details) > 0 {
		return nil, errors.NewBaseError(details...)
	}

	return r.update(ctx, id, "instrument limits updated", func(inst *instrumentv1.Instrument) {
		inst.MinOrderSize = minSize
		inst.MaxOrderSize = maxSize
	})
}

// Deactivate stops new trading on the instrument.
func (r *Registry) Deactivate(ctx context.Context, id string) (*instrumentv1.Instrument, error) {
	return r.update(ctx, id, "instrument deactivated", func(inst *instrumentv1.Instrument) {
		inst.Active = false
	})
}

func (r *Registry) update(ctx context.Context, id, message string, fn func(*instrumentv1.Instrument)) (*instrumentv1.Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instruments[id]
	if !ok {
		return nil, notFound(id)
	}

	fn(inst)
	inst.UpdatedAt = r.clock.Now()

	r.logger.InfoContext(ctx, message, logger.Field{Key: "instrument_id", Value: id})
	return inst.Clone(), nil
}

// Get returns a copy of the instrument.
func (r *Registry) Get(id string) (*instrumentv1.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instruments[id]
	if !ok {
		return nil, notFound(id)
	}
	return inst.Clone(), nil
}

// List returns copies of all instruments ordered by creation.
func (r *Registry) List() []*instrumentv1.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*instrumentv1.Instrument, 0, len(r.instruments))
	for _, inst := range r.instruments {
		list = append(list, inst.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Restore replaces the registry content, used when loading a snapshot.
func (r *Registry) Restore(instruments []*instrumentv1.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instruments = make(map[string]*instrumentv1.Instrument, len(instruments))
	r.pairs = make(map[string]string, len(instruments))
	for _, inst := range instruments {
		key := instrumentv1.PairKey(inst.BaseAsset, inst.QuoteAsset, inst.Class)
		if _, ok := r.pairs[key]; ok {
			return fmt.Errorf("duplicate instrument %s in snapshot", key)
		}
		r.instruments[inst.ID] = inst.Clone()
		r.pairs[key] = inst.ID
	}
	return nil
}

func notFound(id string) error {
	return errors.NewNotFoundError(errors.ErrInstrumentNotFound, fmt.Sprintf("instrument %s not found", id))
}
