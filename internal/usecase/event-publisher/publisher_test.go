package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	eventpublisher_mock "github.com/muhammadchandra19/exchange-core/internal/usecase/event-publisher/mock"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Publish(t *testing.T) {
	events := []eventv1.Event{
		{ID: "e1", Sequence: 1, Type: eventv1.OrderPlaced, InstrumentID: "btc-usd", Order: &orderv1.Order{ID: "o1"}},
		{ID: "e2", Sequence: 2, Type: eventv1.OrderCancelled, InstrumentID: "btc-usd", Order: &orderv1.Order{ID: "o1"}},
	}

	testCases := []struct {
		name     string
		events   []eventv1.Event
		mockFn   func(w *eventpublisher_mock.MockMessageWriter)
		assertFn func(t *testing.T, err error)
	}{
		{
			name:   "writes one keyed message per event",
			events: events,
			mockFn: func(w *eventpublisher_mock.MockMessageWriter) {
				w.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
					require.Len(t, msgs, 2)
					for i, msg := range msgs {
						assert.Equal(t, []byte("btc-usd"), msg.Key)
						var got eventv1.Event
						require.NoError(t, json.Unmarshal(msg.Value, &got))
						assert.Equal(t, events[i].ID, got.ID)
						assert.Equal(t, events[i].Type, got.Type)
						assert.Equal(t, "o1", got.Order.ID)
					}
					assert.Equal(t, []byte(eventv1.OrderCancelled), msgs[1].Headers[0].Value)
					return nil
				})
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:   "nothing to write",
			events: nil,
			mockFn: func(w *eventpublisher_mock.MockMessageWriter) {},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:   "writer failure",
			events: events[:1],
			mockFn: func(w *eventpublisher_mock.MockMessageWriter) {
				w.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("leader not available"))
			},
			assertFn: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "leader not available")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			writer := eventpublisher_mock.NewMockMessageWriter(ctrl)
			tc.mockFn(writer)

			p := NewPublisherWithWriter(writer, logger.NewNopLogger())
			tc.assertFn(t, p.Publish(context.Background(), tc.events...))
		})
	}
}

func TestReader_ReadAndCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	encode := func(e eventv1.Event) []byte {
		b, err := json.Marshal(e)
		require.NoError(t, err)
		return b
	}
	first := kafka.Message{Offset: 10, Value: encode(eventv1.Event{ID: "e1", Type: eventv1.OrderPlaced})}
	garbage := kafka.Message{Offset: 11, Value: []byte("{")}
	second := kafka.Message{Offset: 12, Value: encode(eventv1.Event{ID: "e2", Type: eventv1.TradeExecuted})}

	fetcher := eventpublisher_mock.NewMockMessageFetcher(ctrl)
	gomock.InOrder(
		fetcher.EXPECT().FetchMessage(gomock.Any()).Return(first, nil),
		fetcher.EXPECT().FetchMessage(gomock.Any()).Return(garbage, nil),
		fetcher.EXPECT().FetchMessage(gomock.Any()).Return(second, nil),
		fetcher.EXPECT().CommitMessages(gomock.Any(), second).Return(nil),
		fetcher.EXPECT().Close().Return(nil),
	)

	r := NewReaderWithFetcher(fetcher, logger.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, r.Commit(ctx))

	e, err := r.ReadEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)

	e, err = r.ReadEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e2", e.ID)

	require.NoError(t, r.Commit(ctx))
	require.NoError(t, r.Commit(ctx))
	require.NoError(t, r.Close())
}

func TestReader_CommitFailureIsRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	msg := kafka.Message{Offset: 1, Value: []byte(`{"id":"e1"}`)}
	fetcher := eventpublisher_mock.NewMockMessageFetcher(ctrl)
	gomock.InOrder(
		fetcher.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil),
		fetcher.EXPECT().CommitMessages(gomock.Any(), msg).Return(errors.New("rebalance")),
		fetcher.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil),
		fetcher.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, context.Canceled),
	)

	r := NewReaderWithFetcher(fetcher, logger.NewNopLogger())
	ctx := context.Background()

	_, err := r.ReadEvent(ctx)
	require.NoError(t, err)
	require.Error(t, r.Commit(ctx))
	require.NoError(t, r.Commit(ctx))

	_, err = r.ReadEvent(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
