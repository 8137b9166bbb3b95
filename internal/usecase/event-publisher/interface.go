package eventpublisher

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=eventpublisher_mock
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageFetcher is the subset of *kafka.Reader used by the event reader.
type MessageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
