package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/supplier"
)

// GormSupplierConnectionRepository implements supplier.ConnectionRepository using GORM
type GormSupplierConnectionRepository struct {
	db *gorm.DB
}

// NewGormSupplierConnectionRepository creates a new GormSupplierConnectionRepository
func NewGormSupplierConnectionRepository(db *gorm.DB) *GormSupplierConnectionRepository {
	return &GormSupplierConnectionRepository{db: db}
}

// FindBySupplier finds a tenant's connection for a supplier
func (r *GormSupplierConnectionRepository) FindBySupplier(ctx context.Context, tenantID uuid.UUID, supplierID string) (*supplier.Connection, error) {
	var conn supplier.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindAllForTenant finds all connections for a tenant
func (r *GormSupplierConnectionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]supplier.Connection, error) {
	var conns []supplier.Connection
	query := r.applyFilter(r.db.WithContext(ctx).Model(&supplier.Connection{}).Where("tenant_id = ?", tenantID), filter)

	if err := query.Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// FindVerified returns every verified connection across tenants
func (r *GormSupplierConnectionRepository) FindVerified(ctx context.Context) ([]supplier.Connection, error) {
	var conns []supplier.Connection
	if err := r.db.WithContext(ctx).
		Where("status = ?", supplier.ConnectionStatusVerified).
		Order("tenant_id ASC, supplier_id ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save creates or updates a connection
func (r *GormSupplierConnectionRepository) Save(ctx context.Context, conn *supplier.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

// Delete removes a tenant's connection for a supplier
func (r *GormSupplierConnectionRepository) Delete(ctx context.Context, tenantID uuid.UUID, supplierID string) error {
	result := r.db.WithContext(ctx).
		Delete(&supplier.Connection{}, "tenant_id = ? AND supplier_id = ?", tenantID, supplierID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormSupplierConnectionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, SupplierConnectionSortFields, "supplier_id")
		sortOrder := ValidateSortOrder(filter.OrderDir)
		query = query.Order(sortField + " " + sortOrder)
	} else {
		query = query.Order("supplier_id ASC")
	}

	return query
}

// Ensure GormSupplierConnectionRepository implements supplier.ConnectionRepository
var _ supplier.ConnectionRepository = (*GormSupplierConnectionRepository)(nil)
