package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/shared"
)

// GormOrderRecordRepository implements order.Repository using GORM
type GormOrderRecordRepository struct {
	db *gorm.DB
}

// NewGormOrderRecordRepository creates a new GormOrderRecordRepository
func NewGormOrderRecordRepository(db *gorm.DB) *GormOrderRecordRepository {
	return &GormOrderRecordRepository{db: db}
}

// FindByOrderID finds a record by its caller-supplied order ID
func (r *GormOrderRecordRepository) FindByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*order.Record, error) {
	var record order.Record
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindAllForTenant lists records for a tenant, newest first, with the total
// count before pagination
func (r *GormOrderRecordRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter order.ListFilter) ([]*order.Record, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Record{}).Where("tenant_id = ?", tenantID)
	if filter.SupplierID != "" {
		query = query.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []*order.Record
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FindPendingSubmission returns created records whose last attempt is absent
// or older than the cutoff. Never-attempted records sort first so a fresh
// order is not starved by a long retry queue.
func (r *GormOrderRecordRepository) FindPendingSubmission(ctx context.Context, olderThan time.Time, limit int) ([]*order.Record, error) {
	var records []*order.Record
	if err := r.db.WithContext(ctx).
		Where("status = ?", order.StatusCreated).
		Where("last_attempt_at IS NULL OR last_attempt_at <= ?", olderThan).
		Order("COALESCE(last_attempt_at, created_at) ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindActiveByChannel returns submitted orders on a channel for status polling
func (r *GormOrderRecordRepository) FindActiveByChannel(ctx context.Context, channel order.Channel, limit int) ([]*order.Record, error) {
	var records []*order.Record
	if err := r.db.WithContext(ctx).
		Where("status = ? AND channel = ?", order.StatusSubmitted, channel).
		Order("submitted_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save persists the record
func (r *GormOrderRecordRepository) Save(ctx context.Context, record *order.Record) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// Ensure GormOrderRecordRepository implements order.Repository
var _ order.Repository = (*GormOrderRecordRepository)(nil)
