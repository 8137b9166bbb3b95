package eventv1

import "context"

// Sink receives events emitted by the engine, in commit order.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=eventv1_mock
type Sink interface {
	Emit(events ...Event)
}

// Publisher delivers events to an external transport.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Reader consumes published events. Commit acknowledges every event read so far.
type Reader interface {
	ReadEvent(ctx context.Context) (Event, error)
	Commit(ctx context.Context) error
	Close() error
}
