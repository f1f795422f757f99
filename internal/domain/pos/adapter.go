package pos

import (
	"context"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/vault"
)

// ConnectionContext carries the resolved state an adapter needs for one call.
// Assembled per call from the aggregate and the vault, mirroring how supplier
// adapters receive their context.
type ConnectionContext struct {
	// TenantID identifies the tenant the call runs for
	TenantID uuid.UUID
	// SystemID names the POS system
	SystemID string
	// Credentials is the resolved configuration for this connection
	Credentials vault.Credentials
}

// Adapter defines the port interface for pulling events out of a POS system.
// Implementations live in the infrastructure layer. Failures use the shared
// adapter error taxonomy: unreachable or unauthenticated systems return
// integration.ErrConnectionFailed, retrieval problems integration.ErrFetchFailed.
type Adapter interface {
	// SystemID returns the POS system this adapter handles
	SystemID() string

	// TestConnection verifies the connection context can reach the POS system
	TestConnection(ctx context.Context, conn *ConnectionContext) error

	// PullEvents returns events after the cursor position, oldest first.
	// An empty cursor means the beginning of the stream. The batch's
	// NextCursor must be persisted only after every event has been applied.
	PullEvents(ctx context.Context, conn *ConnectionContext, stream StreamType, cursor string, limit int) (*EventBatch, error)
}

// AdapterRegistry provides access to the configured POS adapters
type AdapterRegistry interface {
	// AdapterFor returns the adapter for a POS system ID
	AdapterFor(systemID string) (Adapter, error)

	// All returns every registered adapter
	All() []Adapter
}
