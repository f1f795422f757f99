package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockRepository defines the persistence port for stock levels
type StockRepository interface {
	// FindByProduct returns the level for a product, or shared.ErrNotFound
	FindByProduct(ctx context.Context, tenantID uuid.UUID, productRef string) (*StockLevel, error)

	// FindAllForTenant lists the tenant's tracked products ordered by reference
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*StockLevel, error)

	// FindBelowReorder returns levels at or below their reorder threshold
	FindBelowReorder(ctx context.Context, tenantID uuid.UUID) ([]*StockLevel, error)

	// Save persists the level
	Save(ctx context.Context, level *StockLevel) error
}

// LedgerRepository provides read access to applied ledger entries
type LedgerRepository interface {
	// FindByKey returns the entry for an idempotency key, or shared.ErrNotFound
	FindByKey(ctx context.Context, key string) (*LedgerEntry, error)

	// FindForProduct lists entries for a product, newest first
	FindForProduct(ctx context.Context, tenantID uuid.UUID, productRef string, limit int) ([]*LedgerEntry, error)

	// UsageBetween aggregates ledger movement per product over a period
	UsageBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]UsageRow, error)
}
