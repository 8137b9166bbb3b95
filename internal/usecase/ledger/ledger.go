package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
)

// Options configures the ledger.
type Options struct {
	// MaxTrades caps the number of trades the ledger accepts. Zero means no cap.
	MaxTrades uint64
}

// Ledger is the engine-wide append-only trade log with incrementally maintained aggregates.
type Ledger struct {
	mu sync.RWMutex

	trades       []*tradev1.Trade
	byInstrument map[string][]int

	stats  map[string]tradev1.Stats
	global tradev1.Stats

	// baseline holds the aggregates restored from a snapshot, which the trade log no longer covers.
	baseline       map[string]tradev1.Stats
	baselineGlobal tradev1.Stats

	sequence uint64
	opts     Options
	logger   logger.Interface
}

// NewLedger creates an empty ledger.
func NewLedger(opts Options, log logger.Interface) *Ledger {
	return &Ledger{
		byInstrument:   make(map[string][]int),
		stats:          make(map[string]tradev1.Stats),
		global:         tradev1.NewStats(),
		baseline:       make(map[string]tradev1.Stats),
		baselineGlobal: tradev1.NewStats(),
		opts:           opts,
		logger:         log,
	}
}

// CanAppend reports whether n more trades fit.
func (l *Ledger) CanAppend(n int) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capacity(n)
}

func (l *Ledger) capacity(n int) error {
	if n < 0 {
		return errors.NewFatalError(errors.ErrLedgerOverflow, "negative trade count")
	}
	count := l.global.TradeCount
	if count > math.MaxUint64-uint64(n) {
		return errors.NewFatalError(errors.ErrLedgerOverflow, "trade count would overflow")
	}
	if l.opts.MaxTrades > 0 && count+uint64(n) > l.opts.MaxTrades {
		return errors.NewFatalError(errors.ErrLedgerOverflow,
			fmt.Sprintf("ledger capacity %d reached", l.opts.MaxTrades))
	}
	return nil
}

// Append records trades atomically: either every trade and every aggregate is updated, or nothing is.
func (l *Ledger) Append(ctx context.Context, trades ...*tradev1.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.capacity(len(trades)); err != nil {
		return err
	}

	pending := make(map[string]tradev1.Stats)
	global := l.global
	for _, t := range trades {
		if err := validateTrade(t); err != nil {
			return err
		}
		current, ok := pending[t.InstrumentID]
		if !ok {
			current = l.statsOf(t.InstrumentID)
		}
		current = current.Apply(t)
		global = global.Apply(t)
		if current.IsNegative() || global.IsNegative() {
			return errors.NewFatalError(errors.ErrLedgerOverflow,
				fmt.Sprintf("trade %s would drive ledger aggregates negative", t.ID))
		}
		pending[t.InstrumentID] = current
	}

	for _, t := range trades {
		l.sequence++
		t.Sequence = l.sequence
		l.trades = append(l.trades, t)
		l.byInstrument[t.InstrumentID] = append(l.byInstrument[t.InstrumentID], len(l.trades)-1)
	}
	for id, s := range pending {
		l.stats[id] = s
	}
	l.global = global

	l.logger.DebugContext(ctx, "trades appended",
		logger.Field{Key: "count", Value: len(trades)},
		logger.Field{Key: "trade_sequence", Value: l.sequence},
	)
	return nil
}

func validateTrade(t *tradev1.Trade) error {
	if t == nil {
		return errors.NewFatalError(errors.ErrLedgerCorrupted, "nil trade")
	}
	if !t.Quantity.IsPositive() || !t.Price.IsPositive() {
		return errors.NewFatalError(errors.ErrLedgerCorrupted,
			fmt.Sprintf("trade %s has non-positive quantity or price", t.ID))
	}
	if !t.Notional.Equal(t.Quantity.Mul(t.Price)) {
		return errors.NewFatalError(errors.ErrLedgerCorrupted,
			fmt.Sprintf("trade %s notional does not equal quantity times price", t.ID))
	}
	return nil
}

func (l *Ledger) statsOf(instrumentID string) tradev1.Stats {
	if s, ok := l.stats[instrumentID]; ok {
		return s
	}
	return tradev1.NewStats()
}

// Trades returns copies of the trades of instrumentID in execution order.
func (l *Ledger) Trades(instrumentID string) []*tradev1.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.byInstrument[instrumentID]
	out := make([]*tradev1.Trade, 0, len(idx))
	for _, i := range idx {
		c := *l.trades[i]
		out = append(out, &c)
	}
	return out
}

// Stats returns the aggregates of one instrument.
func (l *Ledger) Stats(instrumentID string) tradev1.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statsOf(instrumentID)
}

// GlobalStats returns the engine-wide aggregates.
func (l *Ledger) GlobalStats() tradev1.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.global
}

// Sequence returns the sequence of the last appended trade.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sequence
}

// AllStats returns the aggregates of every instrument that traded.
func (l *Ledger) AllStats() map[string]tradev1.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]tradev1.Stats, len(l.stats))
	for id, s := range l.stats {
		out[id] = s
	}
	return out
}

// Verify replays the trade log on top of the restored baseline and compares it with the running aggregates.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	replayed := make(map[string]tradev1.Stats, len(l.baseline))
	for id, s := range l.baseline {
		replayed[id] = s
	}
	global := l.baselineGlobal

	for _, t := range l.trades {
		s, ok := replayed[t.InstrumentID]
		if !ok {
			s = tradev1.NewStats()
		}
		replayed[t.InstrumentID] = s.Apply(t)
		global = global.Apply(t)
	}

	if !global.Equal(l.global) {
		return errors.NewFatalError(errors.ErrLedgerCorrupted, "global aggregates do not match the trade log")
	}
	if len(replayed) != len(l.stats) {
		return errors.NewFatalError(errors.ErrLedgerCorrupted, "instrument aggregates do not match the trade log")
	}
	for id, s := range replayed {
		if !s.Equal(l.stats[id]) {
			return errors.NewFatalError(errors.ErrLedgerCorrupted,
				fmt.Sprintf("aggregates of instrument %s do not match the trade log", id))
		}
	}
	return nil
}

// Restore resets the ledger to aggregates taken from a snapshot. The trade log starts empty.
func (l *Ledger) Restore(global tradev1.Stats, perInstrument map[string]tradev1.Stats, sequence uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trades = nil
	l.byInstrument = make(map[string][]int)
	l.stats = make(map[string]tradev1.Stats, len(perInstrument))
	l.baseline = make(map[string]tradev1.Stats, len(perInstrument))
	for id, s := range perInstrument {
		l.stats[id] = s
		l.baseline[id] = s
	}
	l.global = global
	l.baselineGlobal = global
	l.sequence = sequence
}

var _ tradev1.Ledger = (*Ledger)(nil)
