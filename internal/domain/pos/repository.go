package pos

import (
	"context"

	"github.com/google/uuid"
)

// ConnectionRepository defines the persistence port for POS connections
type ConnectionRepository interface {
	// FindBySystem returns the tenant's connection to a POS system, or shared.ErrNotFound
	FindBySystem(ctx context.Context, tenantID uuid.UUID, systemID string) (*Connection, error)

	// FindByID returns a connection by aggregate ID, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Connection, error)

	// FindAllForTenant lists the tenant's POS connections
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Connection, error)

	// FindSyncable returns connections eligible for sync cycles across all
	// tenants, for the scheduler.
	FindSyncable(ctx context.Context) ([]*Connection, error)

	// Save persists the connection
	Save(ctx context.Context, conn *Connection) error

	// Delete removes the connection
	Delete(ctx context.Context, id uuid.UUID) error
}

// CursorRepository defines the persistence port for sync cursors
type CursorRepository interface {
	// Find returns the cursor for a (connection, stream) pair, or shared.ErrNotFound
	Find(ctx context.Context, connectionID uuid.UUID, stream StreamType) (*Cursor, error)

	// FindForConnection returns all cursors of a connection
	FindForConnection(ctx context.Context, connectionID uuid.UUID) ([]*Cursor, error)

	// Save persists the cursor
	Save(ctx context.Context, cursor *Cursor) error
}
