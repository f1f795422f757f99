package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/pos"
	"github.com/restohub/backend/internal/domain/shared"
)

// GormPOSCursorRepository implements pos.CursorRepository using GORM
type GormPOSCursorRepository struct {
	db *gorm.DB
}

// NewGormPOSCursorRepository creates a new GormPOSCursorRepository
func NewGormPOSCursorRepository(db *gorm.DB) *GormPOSCursorRepository {
	return &GormPOSCursorRepository{db: db}
}

// Find returns the cursor for a (connection, stream) pair
func (r *GormPOSCursorRepository) Find(ctx context.Context, connectionID uuid.UUID, stream pos.StreamType) (*pos.Cursor, error) {
	var cursor pos.Cursor
	if err := r.db.WithContext(ctx).
		Where("connection_id = ? AND stream = ?", connectionID, stream).
		First(&cursor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &cursor, nil
}

// FindForConnection returns all cursors of a connection
func (r *GormPOSCursorRepository) FindForConnection(ctx context.Context, connectionID uuid.UUID) ([]*pos.Cursor, error) {
	var cursors []*pos.Cursor
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("stream ASC").
		Find(&cursors).Error; err != nil {
		return nil, err
	}
	return cursors, nil
}

// Save creates or updates a cursor
func (r *GormPOSCursorRepository) Save(ctx context.Context, cursor *pos.Cursor) error {
	return r.db.WithContext(ctx).Save(cursor).Error
}

// Ensure GormPOSCursorRepository implements pos.CursorRepository
var _ pos.CursorRepository = (*GormPOSCursorRepository)(nil)
