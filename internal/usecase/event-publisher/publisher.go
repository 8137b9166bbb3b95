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

// Publisher writes events to a Kafka topic as JSON, keyed by instrument.
type Publisher struct {
	writer MessageWriter
	logger logger.Interface
}

// NewPublisher creates a Kafka publisher for the event topic.
func NewPublisher(cfg config.KafkaConfig, log logger.Interface) *Publisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, log)
}

// NewPublisherWithWriter creates a publisher on top of an existing writer.
func NewPublisherWithWriter(writer MessageWriter, log logger.Interface) *Publisher {
	return &Publisher{writer: writer, logger: log}
}

// Publish writes events in order. Events of one instrument land on one partition.
func (p *Publisher) Publish(ctx context.Context, events ...eventv1.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			p.logger.ErrorContext(ctx, err,
				logger.Field{Key: "event_id", Value: e.ID},
				logger.Field{Key: "type", Value: e.Type},
			)
			return errors.NewTracer("event_marshal_error").Wrap(err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.InstrumentID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(e.Type)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "first_sequence", Value: events[0].Sequence},
			logger.Field{Key: "count", Value: len(events)},
		)
		return errors.NewTracer("failed to publish events").Wrap(err)
	}

	p.logger.DebugContext(ctx, "events published",
		logger.Field{Key: "first_sequence", Value: events[0].Sequence},
		logger.Field{Key: "count", Value: len(events)},
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventv1.Publisher = (*Publisher)(nil)
