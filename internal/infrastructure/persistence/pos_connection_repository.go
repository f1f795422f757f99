package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/pos"
	"github.com/restohub/backend/internal/domain/shared"
)

// GormPOSConnectionRepository implements pos.ConnectionRepository using GORM
type GormPOSConnectionRepository struct {
	db *gorm.DB
}

// NewGormPOSConnectionRepository creates a new GormPOSConnectionRepository
func NewGormPOSConnectionRepository(db *gorm.DB) *GormPOSConnectionRepository {
	return &GormPOSConnectionRepository{db: db}
}

// FindBySystem finds a tenant's connection to a POS system
func (r *GormPOSConnectionRepository) FindBySystem(ctx context.Context, tenantID uuid.UUID, systemID string) (*pos.Connection, error) {
	var conn pos.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND system_id = ?", tenantID, systemID).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindByID finds a connection by aggregate ID
func (r *GormPOSConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*pos.Connection, error) {
	var conn pos.Connection
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindAllForTenant lists a tenant's POS connections
func (r *GormPOSConnectionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*pos.Connection, error) {
	var conns []*pos.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("system_id ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// FindSyncable returns connections the scheduler should run cycles for.
// Errored connections stay in the set so transient provider outages heal
// without operator action.
func (r *GormPOSConnectionRepository) FindSyncable(ctx context.Context) ([]*pos.Connection, error) {
	var conns []*pos.Connection
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []pos.ConnectionStatus{pos.ConnectionStatusVerified, pos.ConnectionStatusError}).
		Order("tenant_id ASC, system_id ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save creates or updates a connection
func (r *GormPOSConnectionRepository) Save(ctx context.Context, conn *pos.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

// Delete removes a connection
func (r *GormPOSConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&pos.Connection{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormPOSConnectionRepository implements pos.ConnectionRepository
var _ pos.ConnectionRepository = (*GormPOSConnectionRepository)(nil)
