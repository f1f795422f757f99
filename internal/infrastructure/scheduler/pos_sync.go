package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/pos"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// ConnectionLister supplies the POS connections due for background sync
type ConnectionLister interface {
	// ListSyncable returns verified connections across all tenants
	ListSyncable(ctx context.Context) ([]*pos.Connection, error)
}

// SyncCycleRunner executes one sync cycle for a connection stream
type SyncCycleRunner interface {
	RunCycle(ctx context.Context, connectionID uuid.UUID, stream pos.StreamType) (*pos.CycleResult, error)
}

// SyncKey builds the serialization key for a connection and stream. Two jobs
// with the same key never run concurrently, which keeps cursor advancement
// single-writer.
func SyncKey(connectionID uuid.UUID, stream pos.StreamType) string {
	return "pos:" + connectionID.String() + ":" + string(stream)
}

// ---------------------------------------------------------------------------
// POSSyncExecutor
// ---------------------------------------------------------------------------

// POSSyncExecutor runs pos_sync jobs against the sync service
type POSSyncExecutor struct {
	runner SyncCycleRunner
	logger *zap.Logger
}

// NewPOSSyncExecutor creates the executor
func NewPOSSyncExecutor(runner SyncCycleRunner, logger *zap.Logger) *POSSyncExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &POSSyncExecutor{runner: runner, logger: logger}
}

// Execute runs one sync cycle and records its counters on the job
func (e *POSSyncExecutor) Execute(ctx context.Context, job *Job) error {
	stream := pos.StreamType(job.Payload.Stream)
	if !stream.IsValid() {
		return errors.New("job carries an invalid stream: " + job.Payload.Stream)
	}

	result, err := e.runner.RunCycle(ctx, job.Payload.ConnectionID, stream)
	if err != nil {
		return err
	}

	job.Processed = result.Pulled
	job.Succeeded = result.Applied
	job.Skipped = result.Duplicates
	return nil
}

var _ Executor = (*POSSyncExecutor)(nil)

// ---------------------------------------------------------------------------
// POSSyncTrigger
// ---------------------------------------------------------------------------

// SyncTriggerConfig holds trigger timing
type SyncTriggerConfig struct {
	// CheckInterval is how often to scan for due connections
	CheckInterval time.Duration
	// SyncInterval is the spacing between cycles per connection stream
	SyncInterval time.Duration
	// MaxRetries is the retry budget for a failed cycle
	MaxRetries int
}

// DefaultSyncTriggerConfig returns default trigger timing
func DefaultSyncTriggerConfig() SyncTriggerConfig {
	return SyncTriggerConfig{
		CheckInterval: time.Minute,
		SyncInterval:  15 * time.Minute,
		MaxRetries:    2,
	}
}

// POSSyncTrigger periodically enqueues sync cycles for every syncable
// connection and stream
type POSSyncTrigger struct {
	config      SyncTriggerConfig
	scheduler   *Scheduler
	connections ConnectionLister
	logger      *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// last enqueue time per sync key, to honor SyncInterval between cycles
	lastScheduledMu sync.RWMutex
	lastScheduled   map[string]time.Time
}

// NewPOSSyncTrigger creates the trigger
func NewPOSSyncTrigger(config SyncTriggerConfig, sched *Scheduler, connections ConnectionLister, logger *zap.Logger) *POSSyncTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &POSSyncTrigger{
		config:        config,
		scheduler:     sched,
		connections:   connections,
		logger:        logger,
		lastScheduled: make(map[string]time.Time),
	}
}

// Start starts the periodic scan
func (t *POSSyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("POS sync trigger started",
		zap.Duration("check_interval", t.config.CheckInterval),
		zap.Duration("sync_interval", t.config.SyncInterval))

	return nil
}

// Stop stops the trigger
func (t *POSSyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("POS sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop periodically checks and enqueues due cycles
func (t *POSSyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	t.checkAndSchedule(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndSchedule(ctx)
		}
	}
}

// checkAndSchedule enqueues a cycle for every due connection stream
func (t *POSSyncTrigger) checkAndSchedule(ctx context.Context) {
	connections, err := t.connections.ListSyncable(ctx)
	if err != nil {
		t.logger.Error("failed to list syncable POS connections", zap.Error(err))
		return
	}
	if len(connections) == 0 {
		return
	}

	now := time.Now()
	for _, conn := range connections {
		if !conn.IsSyncable() {
			continue
		}

		for _, stream := range pos.Streams() {
			key := SyncKey(conn.ID, stream)

			t.lastScheduledMu.RLock()
			last, seen := t.lastScheduled[key]
			t.lastScheduledMu.RUnlock()
			if seen && now.Sub(last) < t.config.SyncInterval {
				continue
			}

			job := NewJob(JobKindPOSSync, key, conn.TenantID, JobPayload{
				ConnectionID: conn.ID,
				Stream:       string(stream),
			}, t.config.MaxRetries)

			err := t.scheduler.Submit(job)
			switch {
			case err == nil:
				t.markScheduled(key, now)
				t.logger.Debug("sync cycle enqueued",
					zap.String("connection_id", conn.ID.String()),
					zap.String("stream", string(stream)))
			case errors.Is(err, ErrSyncInProgress):
				// the running cycle counts as this interval's sync
				t.markScheduled(key, now)
			default:
				t.logger.Error("failed to enqueue sync cycle",
					zap.String("connection_id", conn.ID.String()),
					zap.String("stream", string(stream)),
					zap.Error(err))
			}
		}
	}
}

func (t *POSSyncTrigger) markScheduled(key string, at time.Time) {
	t.lastScheduledMu.Lock()
	t.lastScheduled[key] = at
	t.lastScheduledMu.Unlock()
}

// TriggerManualSync enqueues an immediate cycle for one connection stream,
// bypassing the interval check. Returns ErrSyncInProgress when a cycle for
// the pair is already queued or running.
func (t *POSSyncTrigger) TriggerManualSync(tenantID, connectionID uuid.UUID, stream pos.StreamType) (*Job, error) {
	key := SyncKey(connectionID, stream)
	job := NewJob(JobKindPOSSync, key, tenantID, JobPayload{
		ConnectionID: connectionID,
		Stream:       string(stream),
	}, 0)

	if err := t.scheduler.Submit(job); err != nil {
		return nil, err
	}

	t.markScheduled(key, time.Now())
	t.logger.Info("manual sync cycle enqueued",
		zap.String("connection_id", connectionID.String()),
		zap.String("stream", string(stream)))

	return job, nil
}
