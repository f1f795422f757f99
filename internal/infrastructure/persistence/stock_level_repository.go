package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/inventory"
	"github.com/restohub/backend/internal/domain/shared"
)

// GormStockLevelRepository implements inventory.StockRepository using GORM
type GormStockLevelRepository struct {
	db *gorm.DB
}

// NewGormStockLevelRepository creates a new GormStockLevelRepository
func NewGormStockLevelRepository(db *gorm.DB) *GormStockLevelRepository {
	return &GormStockLevelRepository{db: db}
}

// FindByProduct returns the stock level for a product
func (r *GormStockLevelRepository) FindByProduct(ctx context.Context, tenantID uuid.UUID, productRef string) (*inventory.StockLevel, error) {
	var level inventory.StockLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_ref = ?", tenantID, productRef).
		First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindAllForTenant lists the tenant's tracked products ordered by reference
func (r *GormStockLevelRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*inventory.StockLevel, error) {
	var levels []*inventory.StockLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("product_ref ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindBelowReorder returns levels at or below their reorder threshold.
// Products without a threshold never count as low.
func (r *GormStockLevelRepository) FindBelowReorder(ctx context.Context, tenantID uuid.UUID) ([]*inventory.StockLevel, error) {
	var levels []*inventory.StockLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("reorder_level > 0 AND current_qty <= reorder_level").
		Order("product_ref ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// Save persists the stock level
func (r *GormStockLevelRepository) Save(ctx context.Context, level *inventory.StockLevel) error {
	return r.db.WithContext(ctx).Save(level).Error
}

// Ensure GormStockLevelRepository implements inventory.StockRepository
var _ inventory.StockRepository = (*GormStockLevelRepository)(nil)
