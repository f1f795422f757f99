package catalog

import (
	"context"

	"github.com/google/uuid"
)

// EntryRepository persists cached catalog entries
type EntryRepository interface {
	// FindBySupplier returns a tenant's cached entries for a supplier,
	// optionally filtered to one category. Category matching is exact.
	FindBySupplier(ctx context.Context, tenantID uuid.UUID, supplierID, category string) ([]Entry, error)

	// ReplaceForSupplier atomically swaps a tenant's cached entries for a
	// supplier. Concurrent readers see either the previous set or the new
	// one, never a partial overwrite.
	ReplaceForSupplier(ctx context.Context, tenantID uuid.UUID, supplierID string, entries []Entry) error

	// DeleteForSupplier drops a tenant's cached entries for a supplier,
	// used when the supplier connection is removed.
	DeleteForSupplier(ctx context.Context, tenantID uuid.UUID, supplierID string) error
}
