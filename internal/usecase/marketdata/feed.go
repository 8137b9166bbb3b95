package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	instrumentv1 "github.com/muhammadchandra19/exchange-core/internal/domain/instrument/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
	"github.com/shopspring/decimal"
)

var tenThousand = decimal.NewFromInt(10_000)

// Options configures the feed and its arbitrage scanner.
type Options struct {
	// ThresholdBps is the minimum spread, relative to the bid, that flags an opportunity.
	ThresholdBps int64
	// TTL is how long a detected opportunity stays active.
	TTL time.Duration
	// Window is the length of the rolling statistics window. Zero disables automatic rollover.
	Window time.Duration
	// MaxOpportunities bounds the opportunities kept per instrument.
	MaxOpportunities int
}

// DefaultOptions returns a 1% threshold, a 5 minute TTL and a 24 hour window.
func DefaultOptions() Options {
	return Options{
		ThresholdBps:     100,
		TTL:              5 * time.Minute,
		Window:           24 * time.Hour,
		MaxOpportunities: 256,
	}
}

// Feed keeps the latest market view per instrument and flags wide spreads.
type Feed struct {
	mu            sync.Mutex
	snapshots     map[string]*marketdatav1.Snapshot
	opportunities map[string][]*marketdatav1.ArbitrageOpportunity

	registry instrumentv1.Registry
	sink     eventv1.Sink
	clock    util.Clock
	logger   logger.Interface
	opts     Options
}

// NewFeed creates a feed that accepts updates for instruments known to registry.
func NewFeed(registry instrumentv1.Registry, sink eventv1.Sink, clock util.Clock, log logger.Interface, opts Options) *Feed {
	return &Feed{
		snapshots:     make(map[string]*marketdatav1.Snapshot),
		opportunities: make(map[string][]*marketdatav1.ArbitrageOpportunity),
		registry:      registry,
		sink:          sink,
		clock:         clock,
		logger:        log,
		opts:          opts,
	}
}

// Update applies a producer push and scans the new quotes for arbitrage.
func (f *Feed) Update(ctx context.Context, u marketdatav1.Update) (*marketdatav1.Snapshot, []*marketdatav1.ArbitrageOpportunity, error) {
	if err := u.Validate(); err != nil {
		return nil, nil, err
	}
	if _, err := f.registry.Get(u.InstrumentID); err != nil {
		return nil, nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	s, ok := f.snapshots[u.InstrumentID]
	if !ok {
		s = &marketdatav1.Snapshot{InstrumentID: u.InstrumentID}
		f.snapshots[u.InstrumentID] = s
	}
	if !ok || s.WindowStartedAt.IsZero() || (f.opts.Window > 0 && now.Sub(s.WindowStartedAt) >= f.opts.Window) {
		openWindow(s, u.LastPrice, now)
	}

	s.LastPrice = u.LastPrice
	s.Bid = u.Bid
	s.Ask = u.Ask
	s.Volume24h = u.Volume
	s.High24h = decimal.Max(s.High24h, u.LastPrice)
	s.Low24h = decimal.Min(s.Low24h, u.LastPrice)
	s.UpdatedAt = now

	events := []eventv1.Event{eventv1.NewMarketDataEvent(s)}
	var detected []*marketdatav1.ArbitrageOpportunity
	if opp, ok := f.scan(s, now); ok {
		f.record(opp, now)
		detected = append(detected, opp.Clone())
		events = append(events, eventv1.NewArbitrageEvent(opp))

		f.logger.InfoContext(ctx, "arbitrage detected",
			logger.Field{Key: "instrument_id", Value: u.InstrumentID},
			logger.Field{Key: "profit_bps", Value: opp.ProfitBps.String()},
		)
	}
	f.sink.Emit(events...)

	return s.Clone(), detected, nil
}

// ResetWindow clears the rolling window. The next update opens it at its own price.
func (f *Feed) ResetWindow(ctx context.Context, instrumentID string) (*marketdatav1.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.snapshots[instrumentID]
	if !ok {
		return nil, notFound(instrumentID)
	}
	openWindow(s, decimal.Zero, time.Time{})

	f.logger.InfoContext(ctx, "market data window reset", logger.Field{Key: "instrument_id", Value: instrumentID})
	f.sink.Emit(eventv1.NewMarketDataEvent(s))
	return s.Clone(), nil
}

// Snapshot returns a copy of the current view of instrumentID.
func (f *Feed) Snapshot(instrumentID string) (*marketdatav1.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.snapshots[instrumentID]
	if !ok {
		return nil, notFound(instrumentID)
	}
	return s.Clone(), nil
}

// Snapshots returns copies of every view, ordered by instrument id.
func (f *Feed) Snapshots() []*marketdatav1.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*marketdatav1.Snapshot, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out
}

// Restore replaces every view with snapshots.
func (f *Feed) Restore(snapshots []*marketdatav1.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshots = make(map[string]*marketdatav1.Snapshot, len(snapshots))
	for _, s := range snapshots {
		f.snapshots[s.InstrumentID] = s.Clone()
	}
}

// ActiveOpportunities deactivates expired opportunities and returns the remaining active ones, oldest first.
func (f *Feed) ActiveOpportunities(instrumentID string) []*marketdatav1.ArbitrageOpportunity {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	var out []*marketdatav1.ArbitrageOpportunity
	for _, opp := range f.opportunities[instrumentID] {
		if opp.Active && opp.IsExpired(now) {
			opp.Active = false
		}
		if opp.Active {
			out = append(out, opp.Clone())
		}
	}
	return out
}

// scan flags ask > bid * (1 + threshold/10000).
func (f *Feed) scan(s *marketdatav1.Snapshot, now time.Time) (*marketdatav1.ArbitrageOpportunity, bool) {
	limit := s.Bid.Add(s.Bid.Mul(decimal.NewFromInt(f.opts.ThresholdBps)).Div(tenThousand))
	if !s.Ask.GreaterThan(limit) {
		return nil, false
	}
	return &marketdatav1.ArbitrageOpportunity{
		ID:           util.NewID(),
		InstrumentID: s.InstrumentID,
		Bid:          s.Bid,
		Ask:          s.Ask,
		ProfitBps:    ProfitBps(s.Bid, s.Ask),
		DetectedAt:   now,
		ExpiresAt:    now.Add(f.opts.TTL),
		Active:       true,
	}, true
}

// record keeps opp, dropping stale entries and then the oldest ones beyond the cap.
func (f *Feed) record(opp *marketdatav1.ArbitrageOpportunity, now time.Time) {
	kept := f.opportunities[opp.InstrumentID][:0]
	for _, o := range f.opportunities[opp.InstrumentID] {
		if o.Active && !o.IsExpired(now) {
			kept = append(kept, o)
		}
	}
	kept = append(kept, opp)
	if limit := f.opts.MaxOpportunities; limit > 0 && len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	f.opportunities[opp.InstrumentID] = kept
}

// ProfitBps returns (ask - bid) * 10000 / ask, rounded to two decimals.
func ProfitBps(bid, ask decimal.Decimal) decimal.Decimal {
	if !ask.IsPositive() {
		return decimal.Zero
	}
	return ask.Sub(bid).Mul(tenThousand).DivRound(ask, 2)
}

func openWindow(s *marketdatav1.Snapshot, price decimal.Decimal, now time.Time) {
	s.Open24h = price
	s.High24h = price
	s.Low24h = price
	s.Volume24h = decimal.Zero
	s.WindowStartedAt = now
}

func notFound(instrumentID string) error {
	return errors.NewNotFoundError(errors.ErrMarketDataNotFound, fmt.Sprintf("no market data for %s", instrumentID))
}

var _ marketdatav1.Feed = (*Feed)(nil)
