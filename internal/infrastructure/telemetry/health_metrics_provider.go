// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormHealthMetricsProvider implements HealthMetricsProvider using GORM.
// It queries the stock_levels and order_records tables directly for
// aggregated metrics.
type GormHealthMetricsProvider struct {
	db *gorm.DB
}

// NewGormHealthMetricsProvider creates a new GormHealthMetricsProvider.
func NewGormHealthMetricsProvider(db *gorm.DB) *GormHealthMetricsProvider {
	return &GormHealthMetricsProvider{db: db}
}

// GetLowStockCount returns the number of products at or below their reorder
// level for a tenant. Products with a zero reorder level are not tracked.
func (p *GormHealthMetricsProvider) GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("stock_levels").
		Where("tenant_id = ?", tenantID).
		Where("reorder_level > 0 AND current_qty <= reorder_level").
		Count(&count).Error

	return count, err
}

// GetPendingOrderCount returns the number of orders still awaiting submission
// for a tenant.
func (p *GormHealthMetricsProvider) GetPendingOrderCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("order_records").
		Where("tenant_id = ? AND status = ?", tenantID, "created").
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
// Tenants are implicit in this platform; any tenant with at least one
// supplier connection counts as active.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all tenant IDs with at least one supplier connection.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("supplier_connections").
		Distinct("tenant_id").
		Find(&ids).Error

	return ids, err
}
