package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNoExecutor is returned when a job kind has no registered executor
	ErrNoExecutor = errors.New("no executor registered for job kind")

	// ErrSyncInProgress is returned when a cycle for the same connection and
	// stream is already queued or running
	ErrSyncInProgress = errors.New("sync already in progress for this connection and stream")
)
