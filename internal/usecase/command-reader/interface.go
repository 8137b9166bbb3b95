package commandreader

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader used by the command reader.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=commandreader_mock
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	SetOffset(offset int64) error
	Close() error
}
