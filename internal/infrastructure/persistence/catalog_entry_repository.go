package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/catalog"
)

// GormCatalogEntryRepository implements catalog.EntryRepository using GORM
type GormCatalogEntryRepository struct {
	db *gorm.DB
}

// NewGormCatalogEntryRepository creates a new GormCatalogEntryRepository
func NewGormCatalogEntryRepository(db *gorm.DB) *GormCatalogEntryRepository {
	return &GormCatalogEntryRepository{db: db}
}

// FindBySupplier returns a tenant's cached entries for a supplier, ordered
// by product id. An empty category means no category filter.
func (r *GormCatalogEntryRepository) FindBySupplier(ctx context.Context, tenantID uuid.UUID, supplierID, category string) ([]catalog.Entry, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var entries []catalog.Entry
	if err := query.Order("product_id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ReplaceForSupplier swaps the cached entries inside one transaction so a
// failed fetch never leaves the cache half written.
func (r *GormCatalogEntryRepository) ReplaceForSupplier(ctx context.Context, tenantID uuid.UUID, supplierID string, entries []catalog.Entry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID).
			Delete(&catalog.Entry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, 200).Error
	})
}

// DeleteForSupplier drops a tenant's cached entries for a supplier
func (r *GormCatalogEntryRepository) DeleteForSupplier(ctx context.Context, tenantID uuid.UUID, supplierID string) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID).
		Delete(&catalog.Entry{}).Error
}

// Ensure GormCatalogEntryRepository implements catalog.EntryRepository
var _ catalog.EntryRepository = (*GormCatalogEntryRepository)(nil)
