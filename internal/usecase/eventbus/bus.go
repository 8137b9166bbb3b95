package eventbus

import (
	"context"
	"sync"
	"time"

	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
)

// Options configures the bus.
type Options struct {
	// BufferSize is the number of events queued before Emit blocks.
	BufferSize int
	// BatchSize caps how many queued events are published in one call.
	BatchSize int
	// Retries is how many extra attempts a failing batch gets before it is dropped.
	Retries int
	// Backoff is the wait between attempts.
	Backoff time.Duration
}

// DefaultOptions returns the options used by the matching service.
func DefaultOptions() Options {
	return Options{
		BufferSize: 4096,
		BatchSize:  128,
		Retries:    3,
		Backoff:    100 * time.Millisecond,
	}
}

// Bus stamps emitted events with an engine-wide sequence and delivers them to a publisher in that order.
type Bus struct {
	mu       sync.Mutex
	sequence uint64
	closed   bool

	queue     chan eventv1.Event
	publisher eventv1.Publisher
	logger    logger.Interface
	opts      Options

	done chan struct{}
	once sync.Once
}

// NewBus creates a bus delivering to publisher. Call Run to start delivery.
func NewBus(publisher eventv1.Publisher, log logger.Interface, opts Options) *Bus {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &Bus{
		queue:     make(chan eventv1.Event, opts.BufferSize),
		publisher: publisher,
		logger:    log,
		opts:      opts,
		done:      make(chan struct{}),
	}
}

// Emit assigns ids and sequence numbers and queues events. Emit after Close drops the events.
func (b *Bus) Emit(events ...eventv1.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.logger.Warn("event bus closed, dropping events", logger.Field{Key: "count", Value: len(events)})
		return
	}
	for _, e := range events {
		b.sequence++
		e.Sequence = b.sequence
		if e.ID == "" {
			e.ID = util.NewID()
		}
		b.queue <- e
	}
}

// Sequence returns the sequence of the last emitted event.
func (b *Bus) Sequence() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sequence
}

// Restore continues numbering after sequence.
func (b *Bus) Restore(sequence uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sequence = sequence
}

// Run delivers queued events until Close is called and the queue is drained.
// ctx only bounds in-flight publish calls.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)

	batch := make([]eventv1.Event, 0, b.opts.BatchSize)
	for e := range b.queue {
		batch = append(batch[:0], e)
	drain:
		for len(batch) < b.opts.BatchSize {
			select {
			case next, ok := <-b.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		b.publish(ctx, batch)
	}
}

func (b *Bus) publish(ctx context.Context, batch []eventv1.Event) {
	var err error
	for attempt := 0; attempt <= b.opts.Retries; attempt++ {
		if err = b.publisher.Publish(ctx, batch...); err == nil {
			return
		}
		if attempt < b.opts.Retries {
			time.Sleep(b.opts.Backoff)
		}
	}
	b.logger.ErrorContext(ctx, err,
		logger.Field{Key: "action", Value: "publish_events"},
		logger.Field{Key: "first_sequence", Value: batch[0].Sequence},
		logger.Field{Key: "count", Value: len(batch)},
	)
}

// Close stops accepting events and waits for Run to deliver what is queued.
func (b *Bus) Close(ctx context.Context) error {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
	})

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ eventv1.Sink = (*Bus)(nil)
