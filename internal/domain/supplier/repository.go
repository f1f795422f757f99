package supplier

import (
	"context"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
)

// ConnectionRepository persists tenant supplier connections
type ConnectionRepository interface {
	// FindBySupplier finds a tenant's connection for a supplier
	FindBySupplier(ctx context.Context, tenantID uuid.UUID, supplierID string) (*Connection, error)

	// FindAllForTenant returns all connections for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Connection, error)

	// FindVerified returns every verified connection across tenants,
	// used by the scheduler for catalog warmup
	FindVerified(ctx context.Context) ([]Connection, error)

	// Save creates or updates a connection
	Save(ctx context.Context, conn *Connection) error

	// Delete removes a tenant's connection for a supplier
	Delete(ctx context.Context, tenantID uuid.UUID, supplierID string) error
}
