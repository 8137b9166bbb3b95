package eventpublisher

import (
	"context"
	"encoding/json"

	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/config"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Reader consumes the event topic with a consumer group. Offsets are committed
// only by Commit, so events read but not yet committed are delivered again after a restart.
type Reader struct {
	fetcher MessageFetcher
	logger  logger.Interface
	last    *kafka.Message
}

// NewReader creates a group reader for the event topic.
func NewReader(cfg config.KafkaConfig, log logger.Interface) *Reader {
	return NewReaderWithFetcher(kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}), log)
}

// NewReaderWithFetcher creates a reader on top of an existing fetcher.
func NewReaderWithFetcher(fetcher MessageFetcher, log logger.Interface) *Reader {
	return &Reader{fetcher: fetcher, logger: log}
}

// ReadEvent returns the next decodable event. Messages that do not decode are
// skipped and committed with the next Commit.
func (r *Reader) ReadEvent(ctx context.Context) (eventv1.Event, error) {
	for {
		msg, err := r.fetcher.FetchMessage(ctx)
		if err != nil {
			return eventv1.Event{}, errors.TracerFromError(err)
		}
		r.last = &msg

		var e eventv1.Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			r.logger.ErrorContext(ctx, err,
				logger.Field{Key: "operation", Value: "UnmarshalEvent"},
				logger.Field{Key: "offset", Value: msg.Offset},
			)
			continue
		}
		return e, nil
	}
}

// Commit acknowledges every message read so far.
func (r *Reader) Commit(ctx context.Context) error {
	if r.last == nil {
		return nil
	}
	if err := r.fetcher.CommitMessages(ctx, *r.last); err != nil {
		r.logger.ErrorContext(ctx, err, logger.Field{Key: "operation", Value: "CommitMessages"})
		return errors.TracerFromError(err)
	}
	r.last = nil
	return nil
}

// Close closes the underlying reader without committing.
func (r *Reader) Close() error {
	return r.fetcher.Close()
}

var _ eventv1.Reader = (*Reader)(nil)
