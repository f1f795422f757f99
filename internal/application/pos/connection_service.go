// Package pos links restaurant point-of-sale systems to the inventory
// ledger. ConnectionService manages the tenant's POS connections and their
// vaulted credentials; SyncService pulls event streams through the adapters
// and applies them exactly once.
package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/pos"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/vault"
)

// ConnectionService manages POS connections
type ConnectionService struct {
	connections pos.ConnectionRepository
	cursors     pos.CursorRepository
	adapters    pos.AdapterRegistry
	vault       vault.CredentialVault
	logger      *zap.Logger
}

// NewConnectionService creates a new ConnectionService
func NewConnectionService(
	connections pos.ConnectionRepository,
	cursors pos.CursorRepository,
	adapters pos.AdapterRegistry,
	credentialVault vault.CredentialVault,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		cursors:     cursors,
		adapters:    adapters,
		vault:       credentialVault,
		logger:      logger,
	}
}

// List returns the tenant's POS connections with their sync cursors
func (s *ConnectionService) List(ctx context.Context, tenantID uuid.UUID) ([]ConnectionView, error) {
	conns, err := s.connections.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	views := make([]ConnectionView, 0, len(conns))
	for _, conn := range conns {
		cursors, err := s.cursors.FindForConnection(ctx, conn.ID)
		if err != nil {
			s.logger.Warn("cursor lookup failed",
				zap.String("connection_id", conn.ID.String()),
				zap.Error(err))
			cursors = nil
		}
		views = append(views, toConnectionView(conn, cursors))
	}
	return views, nil
}

// Get returns one connection scoped to the tenant
func (s *ConnectionService) Get(ctx context.Context, tenantID, connectionID uuid.UUID) (*ConnectionView, error) {
	conn, err := s.findForTenant(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}

	cursors, err := s.cursors.FindForConnection(ctx, conn.ID)
	if err != nil {
		cursors = nil
	}
	view := toConnectionView(conn, cursors)
	return &view, nil
}

// Create links the tenant to a POS system and stores its credentials. The
// connection starts configured; Verify runs the first connection test.
func (s *ConnectionService) Create(ctx context.Context, tenantID uuid.UUID, req CreateConnectionRequest) (*ConnectionView, error) {
	if _, err := s.adapters.AdapterFor(req.SystemID); err != nil {
		return nil, err
	}

	if _, err := s.connections.FindBySystem(ctx, tenantID, req.SystemID); err == nil {
		return nil, fmt.Errorf("%w: connection to %s already exists", shared.ErrAlreadyExists, req.SystemID)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	conn, err := pos.NewConnection(tenantID, req.SystemID, req.Name)
	if err != nil {
		return nil, err
	}

	handle, err := s.vault.Store(ctx, vault.Credentials(req.Fields))
	if err != nil {
		return nil, err
	}
	if err := conn.Configure(handle); err != nil {
		return nil, err
	}

	if err := s.connections.Save(ctx, conn); err != nil {
		// the handle is orphaned if the save failed; revoke it so the vault
		// does not accumulate unreachable secrets
		if rerr := s.vault.Revoke(ctx, handle); rerr != nil {
			s.logger.Warn("orphaned credential revoke failed", zap.Error(rerr))
		}
		return nil, err
	}

	s.logger.Info("pos connection created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("system_id", req.SystemID),
		zap.Strings("fields", vault.Credentials(req.Fields).FieldNames()))

	view := toConnectionView(conn, nil)
	return &view, nil
}

// Verify runs a connection test. A failed test is recorded on the
// connection, not returned as an error; the view's status carries the
// outcome.
func (s *ConnectionService) Verify(ctx context.Context, tenantID, connectionID uuid.UUID) (*ConnectionView, error) {
	conn, err := s.findForTenant(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.Status == pos.ConnectionStatusUnconfigured {
		return nil, shared.NewDomainError("INVALID_STATE", "Connection has no stored credentials")
	}

	adapter, err := s.adapters.AdapterFor(conn.SystemID)
	if err != nil {
		return nil, err
	}
	creds, err := s.vault.Resolve(ctx, conn.CredentialHandle)
	if err != nil {
		return nil, err
	}

	connCtx := &pos.ConnectionContext{
		TenantID:    conn.TenantID,
		SystemID:    conn.SystemID,
		Credentials: creds,
	}
	if testErr := adapter.TestConnection(ctx, connCtx); testErr != nil {
		conn.MarkError(testErr.Error())
		if err := s.connections.Save(ctx, conn); err != nil {
			return nil, err
		}
		s.logger.Warn("pos connection test failed",
			zap.String("system_id", conn.SystemID),
			zap.Error(testErr))
		view := toConnectionView(conn, nil)
		return &view, nil
	}

	if err := conn.MarkVerified(time.Now()); err != nil {
		return nil, err
	}
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("pos connection verified",
		zap.String("tenant_id", conn.TenantID.String()),
		zap.String("system_id", conn.SystemID))

	view := toConnectionView(conn, nil)
	return &view, nil
}

// Remove deletes the connection and revokes its credentials. Cursors stay
// behind so reconnecting the same system does not replay history.
func (s *ConnectionService) Remove(ctx context.Context, tenantID, connectionID uuid.UUID) error {
	conn, err := s.findForTenant(ctx, tenantID, connectionID)
	if err != nil {
		return err
	}

	if err := s.connections.Delete(ctx, conn.ID); err != nil {
		return err
	}

	if conn.CredentialHandle != "" {
		if err := s.vault.Revoke(ctx, conn.CredentialHandle); err != nil {
			s.logger.Warn("credential revoke failed",
				zap.String("system_id", conn.SystemID),
				zap.Error(err))
		}
	}

	s.logger.Info("pos connection removed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("system_id", conn.SystemID))
	return nil
}

// findForTenant loads a connection and hides other tenants' connections
// behind not-found
func (s *ConnectionService) findForTenant(ctx context.Context, tenantID, connectionID uuid.UUID) (*pos.Connection, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return conn, nil
}
