package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	messages []kafka.Message
	err      error
}

func (f *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func TestDispatch_KeyAndHeaders(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(slog.Default(), producer, "storefront.orders")

	err := d.Dispatch(context.Background(), Event{
		ID:          7,
		AggregateID: "ord_1",
		Type:        "OrderFinalized",
		Payload:     []byte(`{"order_id":"ord_1"}`),
		Headers:     map[string]string{"source": "checkout"},
		Traceparent: "00-abc-def-01",
	})
	require.NoError(t, err)
	require.Len(t, producer.messages, 1)

	msg := producer.messages[0]
	assert.Equal(t, "storefront.orders", msg.Topic)
	assert.Equal(t, []byte("ord_1"), msg.Key)
	assert.JSONEq(t, `{"order_id":"ord_1"}`, string(msg.Value))

	got := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		got[h.Key] = string(h.Value)
	}
	assert.Equal(t, "OrderFinalized", got["event_type"])
	assert.Equal(t, "00-abc-def-01", got["traceparent"])
	assert.Equal(t, "checkout", got["source"])
}

func TestDispatch_OmitsEmptyTraceparent(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(slog.Default(), producer, "storefront.orders")

	require.NoError(t, d.Dispatch(context.Background(), Event{ID: 1, AggregateID: "ord_1", Type: "OrderCancelled"}))
	for _, h := range producer.messages[0].Headers {
		assert.NotEqual(t, "traceparent", h.Key)
	}
}

func TestDispatch_ProducerError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	d := NewDispatcher(slog.Default(), producer, "storefront.orders")

	err := d.Dispatch(context.Background(), Event{ID: 1, AggregateID: "ord_1"})
	assert.Error(t, err)
}
