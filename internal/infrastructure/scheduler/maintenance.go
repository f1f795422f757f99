package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// OrderRequeuer resubmits orders whose submission stalled, typically because
// the process died between record creation and provider acknowledgement
type OrderRequeuer interface {
	// RequeueStuck returns the number of orders pushed back into submission
	RequeueStuck(ctx context.Context) (int, error)
}

// OrderStatusPoller refreshes remote status for submitted API-channel orders
type OrderStatusPoller interface {
	// PollSubmitted returns the number of orders whose status was checked
	PollSubmitted(ctx context.Context, limit int) (int, error)
}

// CatalogWarmer refreshes supplier catalogs that are stale or near expiry
type CatalogWarmer interface {
	// RefreshStale returns the number of catalogs refreshed
	RefreshStale(ctx context.Context) (int, error)
}

// ---------------------------------------------------------------------------
// Executors
// ---------------------------------------------------------------------------

// OrderRequeueExecutor runs order_requeue jobs
type OrderRequeueExecutor struct {
	requeuer OrderRequeuer
}

// NewOrderRequeueExecutor creates the executor
func NewOrderRequeueExecutor(requeuer OrderRequeuer) *OrderRequeueExecutor {
	return &OrderRequeueExecutor{requeuer: requeuer}
}

// Execute resubmits stuck orders
func (e *OrderRequeueExecutor) Execute(ctx context.Context, job *Job) error {
	requeued, err := e.requeuer.RequeueStuck(ctx)
	if err != nil {
		return err
	}
	job.Processed = requeued
	job.Succeeded = requeued
	return nil
}

// StatusPollExecutor runs status_poll jobs
type StatusPollExecutor struct {
	poller OrderStatusPoller
	limit  int
}

// NewStatusPollExecutor creates the executor. Limit bounds how many orders
// one job polls.
func NewStatusPollExecutor(poller OrderStatusPoller, limit int) *StatusPollExecutor {
	if limit <= 0 {
		limit = 20
	}
	return &StatusPollExecutor{poller: poller, limit: limit}
}

// Execute polls a batch of submitted orders
func (e *StatusPollExecutor) Execute(ctx context.Context, job *Job) error {
	polled, err := e.poller.PollSubmitted(ctx, e.limit)
	if err != nil {
		return err
	}
	job.Processed = polled
	job.Succeeded = polled
	return nil
}

// CatalogWarmupExecutor runs catalog_warmup jobs
type CatalogWarmupExecutor struct {
	warmer CatalogWarmer
}

// NewCatalogWarmupExecutor creates the executor
func NewCatalogWarmupExecutor(warmer CatalogWarmer) *CatalogWarmupExecutor {
	return &CatalogWarmupExecutor{warmer: warmer}
}

// Execute refreshes stale catalogs
func (e *CatalogWarmupExecutor) Execute(ctx context.Context, job *Job) error {
	refreshed, err := e.warmer.RefreshStale(ctx)
	if err != nil {
		return err
	}
	job.Processed = refreshed
	job.Succeeded = refreshed
	return nil
}

var (
	_ Executor = (*OrderRequeueExecutor)(nil)
	_ Executor = (*StatusPollExecutor)(nil)
	_ Executor = (*CatalogWarmupExecutor)(nil)
)

// ---------------------------------------------------------------------------
// MaintenanceTrigger
// ---------------------------------------------------------------------------

// MaintenanceConfig holds the periodic maintenance intervals. A zero interval
// disables that duty.
type MaintenanceConfig struct {
	RequeueInterval    time.Duration
	StatusPollInterval time.Duration
	WarmupInterval     time.Duration
}

// DefaultMaintenanceConfig returns default maintenance timing
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		RequeueInterval:    time.Minute,
		StatusPollInterval: 2 * time.Minute,
		WarmupInterval:     10 * time.Minute,
	}
}

// MaintenanceTrigger periodically enqueues the housekeeping jobs: stuck-order
// requeue, order status polling, and catalog warmup
type MaintenanceTrigger struct {
	config    MaintenanceConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewMaintenanceTrigger creates the trigger
func NewMaintenanceTrigger(config MaintenanceConfig, sched *Scheduler, logger *zap.Logger) *MaintenanceTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceTrigger{
		config:    config,
		scheduler: sched,
		logger:    logger,
	}
}

// Start launches one loop per enabled duty
func (t *MaintenanceTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	if t.config.RequeueInterval > 0 {
		t.startLoop(ctx, JobKindOrderRequeue, t.config.RequeueInterval)
	}
	if t.config.StatusPollInterval > 0 {
		t.startLoop(ctx, JobKindStatusPoll, t.config.StatusPollInterval)
	}
	if t.config.WarmupInterval > 0 {
		t.startLoop(ctx, JobKindCatalogWarmup, t.config.WarmupInterval)
	}

	t.logger.Info("maintenance trigger started",
		zap.Duration("requeue_interval", t.config.RequeueInterval),
		zap.Duration("status_poll_interval", t.config.StatusPollInterval),
		zap.Duration("warmup_interval", t.config.WarmupInterval))

	return nil
}

// Stop stops all loops
func (t *MaintenanceTrigger) Stop(ctx context.Context) error {
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
		t.logger.Info("maintenance trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLoop ticks one duty on its interval
func (t *MaintenanceTrigger) startLoop(ctx context.Context, kind JobKind, interval time.Duration) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.enqueue(kind)
			}
		}
	}()
}

// enqueue submits one maintenance job; an in-flight duplicate is normal and
// just means the previous run is still going
func (t *MaintenanceTrigger) enqueue(kind JobKind) {
	job := NewJob(kind, "maintenance:"+string(kind), uuid.Nil, JobPayload{}, 0)

	err := t.scheduler.Submit(job)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		t.logger.Debug("maintenance job still running, skipping tick",
			zap.String("kind", string(kind)))
	default:
		t.logger.Error("failed to enqueue maintenance job",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
