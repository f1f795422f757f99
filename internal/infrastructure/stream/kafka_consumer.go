// Package stream consumes pushed POS events from Kafka. Push-capable POS
// systems publish to a shared topic; the consumer normalizes each message
// and feeds it into the same ingestion path the polling sync uses, so dedup
// and ledger semantics are identical for both transports.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/pos"
	infraconfig "github.com/restohub/backend/internal/infrastructure/config"
)

// EventSink receives normalized events from the stream. Implementations must
// be idempotent per event id; Kafka delivery is at-least-once.
type EventSink interface {
	IngestPushedEvent(ctx context.Context, connectionID uuid.UUID, event *pos.SyncEvent) error
}

// pushEnvelope is the wire format POS publishers write to the topic
type pushEnvelope struct {
	ConnectionID string    `json:"connection_id"`
	Stream       string    `json:"stream"`
	Event        pushEvent `json:"event"`
}

type pushEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Lines      []pos.EventLine `json:"lines"`
}

// Consumer reads POS push events from a Kafka topic
type Consumer struct {
	reader *kafka.Reader
	sink   EventSink
	logger *zap.Logger
}

// NewConsumer creates a consumer from configuration. The group id defaults to
// a shared one so multiple server instances split partitions rather than
// double-apply events.
func NewConsumer(cfg *infraconfig.KafkaConfig, sink EventSink, logger *zap.Logger) (*Consumer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if sink == nil {
		return nil, errors.New("event sink is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "restohub-pos-sync"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: groupID,
	})

	return &Consumer{
		reader: reader,
		sink:   sink,
		logger: logger,
	}, nil
}

// Run processes messages until the context is cancelled. Offsets are
// committed only after the sink accepts an event, so a crash mid-batch
// replays rather than drops; malformed messages are committed past.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("POS stream consumer started",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group_id", c.reader.Config().GroupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				c.logger.Info("POS stream consumer stopping")
				return nil
			}
			c.logger.Error("failed to fetch from POS stream", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.handleMessage(ctx, msg); err != nil {
			// no commit: the message redelivers and the sink dedups
			c.logger.Error("failed to ingest pushed POS event",
				zap.Error(err),
				zap.Int64("offset", msg.Offset))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit POS stream offset", zap.Error(err))
		}
	}
}

// handleMessage normalizes one Kafka message and hands it to the sink.
// A nil return means the offset is safe to commit.
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var env pushEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		c.logger.Error("malformed POS push message, skipping",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset))
		return nil
	}

	connectionID, err := uuid.Parse(env.ConnectionID)
	if err != nil {
		c.logger.Error("POS push message carries no valid connection id, skipping",
			zap.String("connection_id", env.ConnectionID),
			zap.Int64("offset", msg.Offset))
		return nil
	}

	event := &pos.SyncEvent{
		ID:         env.Event.ID,
		Stream:     pos.StreamType(env.Stream),
		Type:       pos.EventType(env.Event.Type),
		OccurredAt: env.Event.OccurredAt,
		Lines:      env.Event.Lines,
	}
	// partition/offset pin the synthesized id so a redelivery dedups
	event.EnsureID(fmt.Sprintf("push-%d-%d", msg.Partition, msg.Offset))

	if err := event.Validate(); err != nil {
		c.logger.Error("invalid POS push event, skipping",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.Int64("offset", msg.Offset))
		return nil
	}

	return c.sink.IngestPushedEvent(ctx, connectionID, event)
}

// Close shuts down the underlying Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
