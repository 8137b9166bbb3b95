package commandreader

import (
	"context"
	"encoding/json"

	commandreaderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/command-reader/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/config"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Reader consumes partition 0 of the command topic.
// Offsets are tracked by the engine snapshot, not by a consumer group.
type Reader struct {
	kafkaReader MessageReader
	logger      logger.Interface
}

// NewReader creates a Kafka reader for the command topic.
func NewReader(cfg config.KafkaConfig, log logger.Interface) *Reader {
	return NewReaderWithKafka(kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}), log)
}

// NewReaderWithKafka creates a reader on top of an existing message reader.
func NewReaderWithKafka(r MessageReader, log logger.Interface) *Reader {
	return &Reader{kafkaReader: r, logger: log}
}

func (r *Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset moves the reader to offset.
func (r *Reader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return errors.TracerFromError(err)
	}
	return nil
}

// ReadMessage reads the next message and decodes it as a command.
// A message that does not decode is returned together with the error so the
// caller can still advance past it.
func (r *Reader) ReadMessage(ctx context.Context) (kafka.Message, commandreaderv1.Command, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return kafka.Message{}, commandreaderv1.Command{}, err
	}

	var cmd commandreaderv1.Command
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		r.logError(err, "UnmarshalCommand")
		return msg, commandreaderv1.Command{Offset: msg.Offset}, errors.NewValidationError(errors.ErrInvalidCommand, "command payload is not valid JSON", "value")
	}
	cmd.Offset = msg.Offset

	r.logger.DebugContext(ctx, "ReadMessage",
		logger.Field{Key: "command_id", Value: cmd.ID},
		logger.Field{Key: "kind", Value: cmd.Kind},
		logger.Field{Key: "offset", Value: msg.Offset},
	)
	return msg, cmd, nil
}

// Close closes the Kafka reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

// CommitMessages is a no-op: the applied offset is persisted with each snapshot.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return nil
}

var _ commandreaderv1.Reader = (*Reader)(nil)
