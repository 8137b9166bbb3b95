package recorder

import (
	"context"
	stderrors "errors"
	"time"

	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	tradev1 "github.com/muhammadchandra19/exchange-core/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
)

// Options configures trade batching.
type Options struct {
	// BatchSize is the number of trades buffered before they are copied in one statement.
	BatchSize int
	// FlushInterval flushes a partial batch when no event arrives for this long.
	FlushInterval time.Duration
}

// DefaultOptions returns batches of 100 trades flushed at least every second.
func DefaultOptions() Options {
	return Options{BatchSize: 100, FlushInterval: time.Second}
}

// Recorder persists the event stream: orders and trades to Postgres, market data to QuestDB.
// Offsets are committed only once everything read so far is stored.
type Recorder struct {
	reader     eventv1.Reader
	orders     orderv1.Repository
	trades     tradev1.Repository
	marketData marketdatav1.Repository
	logger     logger.Interface
	opts       Options

	pending []*tradev1.Trade
}

// NewRecorder creates a recorder.
func NewRecorder(
	reader eventv1.Reader,
	orders orderv1.Repository,
	trades tradev1.Repository,
	marketData marketdatav1.Repository,
	log logger.Interface,
	opts Options,
) *Recorder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultOptions().FlushInterval
	}
	return &Recorder{
		reader:     reader,
		orders:     orders,
		trades:     trades,
		marketData: marketData,
		logger:     log,
		opts:       opts,
	}
}

// Run records events until ctx is cancelled or a repository fails.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		readCtx, cancel := context.WithTimeout(ctx, r.opts.FlushInterval)
		e, err := r.reader.ReadEvent(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return r.Flush(context.WithoutCancel(ctx))
			}
			if stderrors.Is(err, context.DeadlineExceeded) {
				if err := r.Flush(ctx); err != nil {
					return err
				}
				continue
			}
			return err
		}

		if err := r.Handle(ctx, e); err != nil {
			r.logger.ErrorContext(ctx, err,
				logger.Field{Key: "event_id", Value: e.ID},
				logger.Field{Key: "type", Value: e.Type},
				logger.Field{Key: "sequence", Value: e.Sequence},
			)
			return err
		}

		if len(r.pending) >= r.opts.BatchSize {
			if err := r.Flush(ctx); err != nil {
				return err
			}
		} else if len(r.pending) == 0 {
			if err := r.reader.Commit(ctx); err != nil {
				return err
			}
		}
	}
}

// Handle stores one event. Trades are buffered until the next Flush.
func (r *Recorder) Handle(ctx context.Context, e eventv1.Event) error {
	switch e.Type {
	case eventv1.OrderPlaced, eventv1.OrderPartiallyFilled, eventv1.OrderFilled, eventv1.OrderCancelled, eventv1.OrderExpired:
		if e.Order == nil {
			return nil
		}
		return r.orders.Upsert(ctx, e.Order)
	case eventv1.TradeExecuted:
		if e.Trade != nil {
			r.pending = append(r.pending, e.Trade)
		}
		return nil
	case eventv1.MarketDataUpdated:
		if e.MarketData == nil {
			return nil
		}
		return r.marketData.StoreSnapshot(ctx, e.MarketData)
	case eventv1.ArbitrageDetected:
		if e.Opportunity == nil {
			return nil
		}
		return r.marketData.StoreOpportunity(ctx, e.Opportunity)
	default:
		r.logger.DebugContext(ctx, "event not recorded",
			logger.Field{Key: "type", Value: e.Type},
			logger.Field{Key: "sequence", Value: e.Sequence},
		)
		return nil
	}
}

// Flush stores buffered trades and commits the reader. A failed batch, which a
// redelivered trade causes, is retried one idempotent insert at a time.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.pending) > 0 {
		if err := r.trades.StoreBatch(ctx, r.pending); err != nil {
			r.logger.WarnContext(ctx, "trade batch failed, storing one by one",
				logger.Field{Key: "count", Value: len(r.pending)},
				logger.Field{Key: "error", Value: err.Error()},
			)
			for _, t := range r.pending {
				if err := r.trades.Store(ctx, t); err != nil {
					return err
				}
			}
		}
		r.pending = r.pending[:0]
	}
	return r.reader.Commit(ctx)
}
