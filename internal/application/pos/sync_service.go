package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/inventory"
	"github.com/restohub/backend/internal/domain/pos"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/vault"
	"github.com/restohub/backend/internal/infrastructure/telemetry"
)

// SyncConfig bounds one sync cycle
type SyncConfig struct {
	// BatchLimit is the number of events requested per pull
	BatchLimit int
	// MaxBatches caps the pages one cycle drains before yielding
	MaxBatches int
	// DedupTTL is how long processed event ids are remembered
	DedupTTL time.Duration
}

// DefaultSyncConfig returns the sync defaults
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		BatchLimit: 200,
		MaxBatches: 10,
		DedupTTL:   72 * time.Hour,
	}
}

// SyncService pulls POS event streams and applies them to the inventory
// ledger. The ledger's idempotency keys are the exactly-once guarantee;
// the idempotency store in front of it is an optimization that spares the
// database a transaction per replayed event. Cursor positions move forward
// only after every event in a batch has been applied, so a crash replays a
// batch instead of losing it.
type SyncService struct {
	connections pos.ConnectionRepository
	cursors     pos.CursorRepository
	adapters    pos.AdapterRegistry
	vault       vault.CredentialVault
	ledger      inventory.Ledger
	idempotency shared.IdempotencyStore
	config      SyncConfig
	logger      *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(
	connections pos.ConnectionRepository,
	cursors pos.CursorRepository,
	adapters pos.AdapterRegistry,
	credentialVault vault.CredentialVault,
	ledger inventory.Ledger,
	idempotency shared.IdempotencyStore,
	config SyncConfig,
	logger *zap.Logger,
) *SyncService {
	if config.BatchLimit <= 0 {
		config.BatchLimit = DefaultSyncConfig().BatchLimit
	}
	if config.MaxBatches <= 0 {
		config.MaxBatches = DefaultSyncConfig().MaxBatches
	}
	return &SyncService{
		connections: connections,
		cursors:     cursors,
		adapters:    adapters,
		vault:       credentialVault,
		ledger:      ledger,
		idempotency: idempotency,
		config:      config,
		logger:      logger,
	}
}

// ListSyncable returns connections due for background sync cycles
func (s *SyncService) ListSyncable(ctx context.Context) ([]*pos.Connection, error) {
	return s.connections.FindSyncable(ctx)
}

// RunCycle drains one stream of one connection: pull a batch, apply every
// event, advance the cursor, repeat until the stream is dry or the page
// budget is spent. The scheduler serializes cycles per (connection, stream),
// so the cursor has a single writer.
func (s *SyncService) RunCycle(ctx context.Context, connectionID uuid.UUID, stream pos.StreamType) (*pos.CycleResult, error) {
	if !stream.IsValid() {
		return nil, shared.NewDomainError("INVALID_STREAM", "Unknown stream type "+stream.String())
	}

	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.IsSyncable() {
		return nil, shared.NewDomainError("INVALID_STATE", "Connection is not syncable in status "+conn.Status.String())
	}

	adapter, err := s.adapters.AdapterFor(conn.SystemID)
	if err != nil {
		return nil, err
	}
	creds, err := s.vault.Resolve(ctx, conn.CredentialHandle)
	if err != nil {
		return nil, err
	}
	connCtx := &pos.ConnectionContext{
		TenantID:    conn.TenantID,
		SystemID:    conn.SystemID,
		Credentials: creds,
	}

	cursor, err := s.cursors.Find(ctx, connectionID, stream)
	if errors.Is(err, shared.ErrNotFound) {
		cursor, err = pos.NewCursor(conn.TenantID, connectionID, stream)
	}
	if err != nil {
		return nil, err
	}

	result := &pos.CycleResult{FinalCursor: cursor.Position}
	position := cursor.Position

	for page := 0; page < s.config.MaxBatches; page++ {
		var batch *pos.EventBatch
		telemetry.WithProfilingLabels(ctx, map[string]string{
			telemetry.ProfilingLabelOperation: "pos_pull",
			"pos_system":                      conn.SystemID,
			"sync_stream":                     stream.String(),
		}, func(c context.Context) {
			batch, err = adapter.PullEvents(c, connCtx, stream, position, s.config.BatchLimit)
		})
		if err != nil {
			s.recordCycleFailure(ctx, conn, cursor, err)
			return nil, err
		}

		result.Pages++
		result.Pulled += len(batch.Events)

		applied, duplicates, err := s.applyBatch(ctx, conn, stream, batch.Events, position)
		result.Applied += applied
		result.Duplicates += duplicates
		if err != nil {
			// the cursor stays put; the next cycle replays this batch and
			// the ledger discards what already landed
			cursor.RecordError(err.Error())
			if serr := s.cursors.Save(ctx, cursor); serr != nil {
				s.logger.Error("cursor save failed", zap.Error(serr))
			}
			return nil, err
		}

		if batch.NextCursor != "" && batch.NextCursor != position {
			cursor.Advance(batch.NextCursor, time.Now())
			if err := s.cursors.Save(ctx, cursor); err != nil {
				return nil, err
			}
			position = batch.NextCursor
		}

		if !batch.HasMore {
			break
		}
	}

	conn.MarkSynced(time.Now())
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}

	result.FinalCursor = position
	s.logger.Info("sync cycle complete",
		zap.String("system_id", conn.SystemID),
		zap.String("stream", stream.String()),
		zap.Int("pulled", result.Pulled),
		zap.Int("applied", result.Applied),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("pages", result.Pages))

	return result, nil
}

// IngestPushedEvent applies one provider-pushed event outside a sync cycle.
// Kafka and webhook deliveries both land here; replays fall out as
// duplicates the same way pulled events do.
func (s *SyncService) IngestPushedEvent(ctx context.Context, connectionID uuid.UUID, event *pos.SyncEvent) error {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn.Status == pos.ConnectionStatusUnconfigured {
		return shared.NewDomainError("INVALID_STATE", "Connection is not configured for event ingestion")
	}

	event.EnsureID("push:" + connectionID.String())
	if err := event.Validate(); err != nil {
		return err
	}

	outcome, err := s.applyEvent(ctx, conn, event)
	if err != nil {
		return err
	}

	s.logger.Debug("pushed event ingested",
		zap.String("system_id", conn.SystemID),
		zap.String("event_id", event.ID),
		zap.Bool("duplicate", outcome == eventDuplicate))
	return nil
}

type eventOutcome int

const (
	eventApplied eventOutcome = iota
	eventDuplicate
)

func (s *SyncService) applyBatch(ctx context.Context, conn *pos.Connection, stream pos.StreamType, events []pos.SyncEvent, pullCursor string) (applied, duplicates int, err error) {
	for i := range events {
		event := &events[i]
		if event.Stream == "" {
			event.Stream = stream
		}
		event.EnsureID(pullCursor)

		if verr := event.Validate(); verr != nil {
			// a malformed event cannot block the stream behind it
			s.logger.Warn("dropping invalid sync event",
				zap.String("system_id", conn.SystemID),
				zap.String("event_id", event.ID),
				zap.Error(verr))
			continue
		}

		outcome, aerr := s.applyEvent(ctx, conn, event)
		if aerr != nil {
			return applied, duplicates, aerr
		}
		if outcome == eventApplied {
			applied++
		} else {
			duplicates++
		}
	}
	return applied, duplicates, nil
}

// applyEvent turns one event into ledger mutations, one per line. The
// idempotency store is consulted first but never trusted alone: the ledger
// re-checks per line, so losing the store loses nothing but speed.
func (s *SyncService) applyEvent(ctx context.Context, conn *pos.Connection, event *pos.SyncEvent) (eventOutcome, error) {
	if s.idempotency != nil {
		processed, err := s.idempotency.IsProcessed(ctx, event.ID)
		if err != nil {
			s.logger.Debug("idempotency check failed, falling through to ledger", zap.Error(err))
		} else if processed {
			return eventDuplicate, nil
		}
	}

	newlyApplied := false
	for i := range event.Lines {
		mutation := s.buildMutation(conn, event, i)
		if err := s.ledger.Apply(ctx, mutation); err != nil {
			if errors.Is(err, inventory.ErrAlreadyApplied) {
				continue
			}
			return eventDuplicate, fmt.Errorf("apply event %s: %w", event.ID, err)
		}
		newlyApplied = true
	}

	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, event.ID, s.config.DedupTTL); err != nil {
			s.logger.Debug("idempotency mark failed", zap.Error(err))
		}
	}

	if newlyApplied {
		return eventApplied, nil
	}
	return eventDuplicate, nil
}

func (s *SyncService) buildMutation(conn *pos.Connection, event *pos.SyncEvent, lineIdx int) *inventory.Mutation {
	line := event.Lines[lineIdx]
	mutation := &inventory.Mutation{
		TenantID:       conn.TenantID,
		ProductRef:     line.ProductRef,
		IdempotencyKey: fmt.Sprintf("%s:%d", event.ID, lineIdx),
		Source:         conn.SystemID + ":" + event.Stream.String(),
		OccurredAt:     event.OccurredAt,
	}

	switch event.Type {
	case pos.EventTypeSale:
		mutation.Delta = line.Quantity.Neg()
	case pos.EventTypeAdjustment:
		mutation.Delta = line.Quantity
	case pos.EventTypeRecount:
		quantity := line.Quantity
		mutation.Absolute = &quantity
	}
	return mutation
}

func (s *SyncService) recordCycleFailure(ctx context.Context, conn *pos.Connection, cursor *pos.Cursor, cause error) {
	cursor.RecordError(cause.Error())
	if err := s.cursors.Save(ctx, cursor); err != nil {
		s.logger.Error("cursor save failed", zap.Error(err))
	}

	conn.MarkError(cause.Error())
	if err := s.connections.Save(ctx, conn); err != nil {
		s.logger.Error("connection save failed", zap.Error(err))
	}

	s.logger.Warn("sync cycle failed",
		zap.String("system_id", conn.SystemID),
		zap.String("stream", cursor.Stream.String()),
		zap.Error(cause))
}
