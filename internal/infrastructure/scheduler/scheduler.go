// Package scheduler runs the platform's background work: periodic POS sync
// cycles, stuck-order requeues, and catalog warmups. Jobs flow through a
// bounded worker pool; jobs that share a key never run concurrently.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Job Types
// ---------------------------------------------------------------------------

// JobKind identifies what a job does
type JobKind string

const (
	// JobKindPOSSync pulls one stream of one POS connection
	JobKindPOSSync JobKind = "pos_sync"
	// JobKindOrderRequeue resubmits orders stuck awaiting submission
	JobKindOrderRequeue JobKind = "order_requeue"
	// JobKindStatusPoll refreshes the remote status of submitted API orders
	JobKindStatusPoll JobKind = "status_poll"
	// JobKindCatalogWarmup refreshes supplier catalogs nearing expiry
	JobKindCatalogWarmup JobKind = "catalog_warmup"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one unit of background work. Key, when set, serializes execution:
// the scheduler never queues or runs two jobs with the same key at once.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Key         string
	TenantID    uuid.UUID
	Payload     JobPayload
	Status      JobStatus
	Error       string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	// Result counters filled by the executor
	Processed int
	Succeeded int
	Skipped   int
}

// JobPayload carries kind-specific parameters
type JobPayload struct {
	// ConnectionID and Stream target a POS sync cycle
	ConnectionID uuid.UUID
	Stream       string
	// SupplierID targets a catalog warmup
	SupplierID string
}

// NewJob creates a pending job
func NewJob(kind JobKind, key string, tenantID uuid.UUID, payload JobPayload, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       kind,
		Key:        key,
		TenantID:   tenantID,
		Payload:    payload,
		Status:     JobStatusPending,
		EnqueuedAt: time.Now(),
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job has retry budget left
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff:
// baseDelay * 2^(retryCount-1), capped at 30 minutes.
func (j *Job) ScheduleRetry(baseDelay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// ---------------------------------------------------------------------------
// Executor Interface
// ---------------------------------------------------------------------------

// Executor runs jobs of one kind
type Executor interface {
	// Execute performs the work and fills the job's result counters
	Execute(ctx context.Context, job *Job) error
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds scheduler pool configuration
type Config struct {
	// Workers is the number of concurrent job workers
	Workers int
	// JobTimeout is the maximum time a single job can run
	JobTimeout time.Duration
	// RetryAttempts is the retry budget for failed jobs
	RetryAttempts int
	// RetryDelay is the base delay between retries (exponential backoff)
	RetryDelay time.Duration
	// QueueSize is the job channel capacity
	QueueSize int
	// HistorySize is how many completed jobs to keep for inspection
	HistorySize int
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		JobTimeout:    10 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    30 * time.Second,
		QueueSize:     200,
		HistorySize:   100,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scheduler
// ---------------------------------------------------------------------------

// Scheduler is the background job pool
type Scheduler struct {
	config    Config
	executors map[JobKind]Executor
	logger    *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// inflight holds the keys of queued and running jobs
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	// Completed jobs, newest first, for monitoring
	historyMu sync.RWMutex
	history   []*Job
}

// New creates a scheduler with the given executors keyed by job kind
func New(config Config, executors map[JobKind]Executor, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		config:    config,
		executors: executors,
		logger:    logger,
		jobs:      make(chan *Job, config.QueueSize),
		inflight:  make(map[string]struct{}),
		history:   make([]*Job, 0, config.HistorySize),
	}, nil
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout))

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job for execution. Jobs with a key already in flight are
// rejected with ErrSyncInProgress; callers treat that as "already happening".
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	if _, ok := s.executors[job.Kind]; !ok {
		return ErrNoExecutor
	}

	if job.Key != "" {
		s.inflightMu.Lock()
		if _, busy := s.inflight[job.Key]; busy {
			s.inflightMu.Unlock()
			return ErrSyncInProgress
		}
		s.inflight[job.Key] = struct{}{}
		s.inflightMu.Unlock()
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.String("key", job.Key))
		return nil
	default:
		s.releaseKey(job.Key)
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job, handling retry scheduling
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		// not due yet; hand it back to the queue when its time comes so
		// the worker is free meanwhile
		delay := time.Until(*job.NextRetryAt)
		time.AfterFunc(delay, func() { s.requeue(job) })
		return
	}

	job.Start()
	s.logger.Info("processing job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.String("key", job.Key),
		zap.Int("retry_count", job.RetryCount))

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	executor := s.executors[job.Kind]
	err := executor.Execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.String("key", job.Key),
			zap.Error(err))

		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("next_retry_at", *job.NextRetryAt))
			// the key stays held so nothing overtakes the retry
			s.requeue(job)
		} else {
			s.releaseKey(job.Key)
		}

		s.addToHistory(job)
		return
	}

	job.Complete()
	s.releaseKey(job.Key)

	s.logger.Info("job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.String("key", job.Key),
		zap.Int("processed", job.Processed),
		zap.Int("succeeded", job.Succeeded),
		zap.Int("skipped", job.Skipped))

	s.addToHistory(job)
}

// requeue puts a job back on the queue without touching its key reservation.
// If the queue is full or closed the key is released so the pair is not
// locked out forever.
func (s *Scheduler) requeue(job *Job) {
	defer func() {
		if recover() != nil {
			// channel closed during shutdown
			s.releaseKey(job.Key)
		}
	}()

	select {
	case s.jobs <- job:
	default:
		s.logger.Warn("failed to requeue job, queue full",
			zap.String("job_id", job.ID.String()),
			zap.String("key", job.Key))
		s.releaseKey(job.Key)
	}
}

func (s *Scheduler) releaseKey(key string) {
	if key == "" {
		return
	}
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}

// InFlight reports whether a key is currently queued or running
func (s *Scheduler) InFlight(key string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	_, busy := s.inflight[key]
	return busy
}

// addToHistory records a completed job attempt, newest first
func (s *Scheduler) addToHistory(job *Job) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*Job{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// History returns recent job attempts
func (s *Scheduler) History(limit int) []*Job {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*Job, limit)
	copy(result, s.history[:limit])
	return result
}

// Stats returns counters for the health endpoint
func (s *Scheduler) Stats() map[string]interface{} {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()

	s.inflightMu.Lock()
	inflight := len(s.inflight)
	s.inflightMu.Unlock()

	s.historyMu.RLock()
	historyLen := len(s.history)
	s.historyMu.RUnlock()

	return map[string]interface{}{
		"running":     running,
		"workers":     s.config.Workers,
		"queue_depth": len(s.jobs),
		"in_flight":   inflight,
		"history":     historyLen,
	}
}
