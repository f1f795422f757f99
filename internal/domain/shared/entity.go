// Package shared holds the domain building blocks every bounded context
// uses: entities, aggregate roots, events, repository contracts, and the
// idempotency and retry primitives the sync paths depend on.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything with identity and timestamps.
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity carries the identity fields an entity embeds.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns a BaseEntity with a fresh id and both timestamps
// set to now.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetID implements Entity.
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt implements Entity.
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt implements Entity.
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}
