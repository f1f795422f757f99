package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/inventory"
	"github.com/restohub/backend/internal/domain/shared"
)

// GormLedgerRepository implements inventory.LedgerRepository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// FindByKey returns the entry applied under an idempotency key
func (r *GormLedgerRepository) FindByKey(ctx context.Context, key string) (*inventory.LedgerEntry, error) {
	var entry inventory.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindForProduct lists entries for a product, newest movement first
func (r *GormLedgerRepository) FindForProduct(ctx context.Context, tenantID uuid.UUID, productRef string, limit int) ([]*inventory.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_ref = ?", tenantID, productRef).
		Order("occurred_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []*inventory.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// UsageBetween aggregates ledger movement per product over [from, to).
// Recounts carry an absolute quantity and are excluded; they correct the
// level rather than move stock.
func (r *GormLedgerRepository) UsageBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]inventory.UsageRow, error) {
	type usageByProduct struct {
		ProductRef string
		Consumed   decimal.Decimal
		Received   decimal.Decimal
	}
	var results []usageByProduct

	if err := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Select(`
			product_ref,
			COALESCE(SUM(CASE WHEN delta < 0 THEN -delta ELSE 0 END), 0) as consumed,
			COALESCE(SUM(CASE WHEN delta > 0 THEN delta ELSE 0 END), 0) as received
		`).
		Where("tenant_id = ?", tenantID).
		Where("occurred_at >= ? AND occurred_at < ?", from, to).
		Where("absolute IS NULL").
		Group("product_ref").
		Order("product_ref ASC").
		Scan(&results).Error; err != nil {
		return nil, err
	}

	rows := make([]inventory.UsageRow, len(results))
	for i, res := range results {
		rows[i] = inventory.UsageRow{
			ProductRef: res.ProductRef,
			Consumed:   res.Consumed,
			Received:   res.Received,
			NetChange:  res.Received.Sub(res.Consumed),
		}
	}
	return rows, nil
}

// Ensure GormLedgerRepository implements inventory.LedgerRepository
var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)
