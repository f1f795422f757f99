package stream

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/pos"
	infraconfig "github.com/restohub/backend/internal/infrastructure/config"
)

func TestNewConsumer_Validation(t *testing.T) {
	sink := &captureSink{}

	t.Run("missing brokers", func(t *testing.T) {
		_, err := NewConsumer(&infraconfig.KafkaConfig{Topic: "pos-events"}, sink, nil)
		assert.Error(t, err)
	})

	t.Run("missing topic", func(t *testing.T) {
		_, err := NewConsumer(&infraconfig.KafkaConfig{Brokers: []string{"localhost:9092"}}, sink, nil)
		assert.Error(t, err)
	})

	t.Run("missing sink", func(t *testing.T) {
		cfg := &infraconfig.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "pos-events"}
		_, err := NewConsumer(cfg, nil, nil)
		assert.Error(t, err)
	})

	t.Run("group id defaults", func(t *testing.T) {
		cfg := &infraconfig.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "pos-events"}
		consumer, err := NewConsumer(cfg, sink, nil)
		require.NoError(t, err)
		defer consumer.Close()

		assert.Equal(t, "restohub-pos-sync", consumer.reader.Config().GroupID)
	})
}

func TestHandleMessage(t *testing.T) {
	connectionID := uuid.New()

	t.Run("valid envelope reaches the sink", func(t *testing.T) {
		sink := &captureSink{}
		c := &Consumer{sink: sink, logger: zap.NewNop()}

		msg := kafka.Message{
			Partition: 1,
			Offset:    42,
			Value: []byte(`{
				"connection_id": "` + connectionID.String() + `",
				"stream": "sales",
				"event": {
					"id": "evt-901",
					"type": "sale",
					"occurred_at": "2025-11-07T09:30:00Z",
					"lines": [{"product_ref": "LH-EGG-12", "quantity": "2", "unit": "dozen"}]
				}
			}`),
		}

		err := c.handleMessage(context.Background(), msg)
		require.NoError(t, err)

		require.Len(t, sink.events, 1)
		assert.Equal(t, connectionID, sink.connections[0])
		event := sink.events[0]
		assert.Equal(t, "evt-901", event.ID)
		assert.Equal(t, pos.StreamSales, event.Stream)
		assert.Equal(t, pos.EventTypeSale, event.Type)
		assert.Equal(t, time.Date(2025, 11, 7, 9, 30, 0, 0, time.UTC), event.OccurredAt)
		require.Len(t, event.Lines, 1)
		assert.Equal(t, "LH-EGG-12", event.Lines[0].ProductRef)
		assert.True(t, event.Lines[0].Quantity.Equal(decimal.NewFromInt(2)))
	})

	t.Run("event without id gets a deterministic one", func(t *testing.T) {
		sink := &captureSink{}
		c := &Consumer{sink: sink, logger: zap.NewNop()}

		value := []byte(`{
			"connection_id": "` + connectionID.String() + `",
			"stream": "inventory",
			"event": {
				"type": "adjustment",
				"occurred_at": "2025-11-07T10:00:00Z",
				"lines": [{"product_ref": "BF-TOM-01", "quantity": "-1"}]
			}
		}`)

		require.NoError(t, c.handleMessage(context.Background(), kafka.Message{Partition: 0, Offset: 7, Value: value}))
		require.NoError(t, c.handleMessage(context.Background(), kafka.Message{Partition: 0, Offset: 7, Value: value}))

		require.Len(t, sink.events, 2)
		assert.NotEmpty(t, sink.events[0].ID)
		// a redelivery of the same offset synthesizes the same id
		assert.Equal(t, sink.events[0].ID, sink.events[1].ID)
	})

	t.Run("malformed JSON is skipped without reaching the sink", func(t *testing.T) {
		sink := &captureSink{}
		c := &Consumer{sink: sink, logger: zap.NewNop()}

		err := c.handleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
		require.NoError(t, err)
		assert.Empty(t, sink.events)
	})

	t.Run("invalid connection id is skipped", func(t *testing.T) {
		sink := &captureSink{}
		c := &Consumer{sink: sink, logger: zap.NewNop()}

		err := c.handleMessage(context.Background(), kafka.Message{
			Value: []byte(`{"connection_id": "not-a-uuid", "stream": "sales", "event": {"type": "sale", "lines": [{"product_ref": "X", "quantity": "1"}]}}`),
		})
		require.NoError(t, err)
		assert.Empty(t, sink.events)
	})

	t.Run("invalid event is skipped", func(t *testing.T) {
		sink := &captureSink{}
		c := &Consumer{sink: sink, logger: zap.NewNop()}

		err := c.handleMessage(context.Background(), kafka.Message{
			Value: []byte(`{"connection_id": "` + connectionID.String() + `", "stream": "sales", "event": {"type": "mystery", "lines": [{"product_ref": "X", "quantity": "1"}]}}`),
		})
		require.NoError(t, err)
		assert.Empty(t, sink.events)
	})

	t.Run("sink failure propagates so the offset is not committed", func(t *testing.T) {
		sink := &captureSink{err: assert.AnError}
		c := &Consumer{sink: sink, logger: zap.NewNop()}

		err := c.handleMessage(context.Background(), kafka.Message{
			Value: []byte(`{"connection_id": "` + connectionID.String() + `", "stream": "sales", "event": {"type": "sale", "occurred_at": "2025-11-07T09:30:00Z", "lines": [{"product_ref": "X", "quantity": "1"}]}}`),
		})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

// captureSink records ingested events and optionally fails
type captureSink struct {
	connections []uuid.UUID
	events      []*pos.SyncEvent
	err         error
}

func (s *captureSink) IngestPushedEvent(ctx context.Context, connectionID uuid.UUID, event *pos.SyncEvent) error {
	if s.err != nil {
		return s.err
	}
	s.connections = append(s.connections, connectionID)
	s.events = append(s.events, event)
	return nil
}
