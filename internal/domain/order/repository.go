package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows order listings
type ListFilter struct {
	SupplierID string
	Status     Status
	Limit      int
	Offset     int
}

// Repository defines the persistence port for order records
type Repository interface {
	// FindByOrderID returns the record for a caller-supplied order ID, or
	// shared.ErrNotFound. Lookup is always tenant scoped.
	FindByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*Record, error)

	// FindAllForTenant lists records for a tenant, newest first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]*Record, int64, error)

	// FindPendingSubmission returns created records never attempted or last
	// attempted before olderThan, across all tenants, for the scheduler.
	// Per-attempt backoff beyond this coarse cutoff is the caller's job.
	FindPendingSubmission(ctx context.Context, olderThan time.Time, limit int) ([]*Record, error)

	// FindActiveByChannel returns non-terminal submitted orders on the given
	// channel, used by the status poller.
	FindActiveByChannel(ctx context.Context, channel Channel, limit int) ([]*Record, error)

	// Save persists the record
	Save(ctx context.Context, record *Record) error
}
