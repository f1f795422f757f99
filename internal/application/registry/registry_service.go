// Package registry exposes the supplier integration registry: the merge of
// static supplier definitions with per-tenant connection state, credential
// configuration through the vault, and adapter resolution for the catalog
// and order services.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/catalog"
	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/domain/vault"
)

// SupplierRegistryService handles supplier definition lookup, connection
// configuration, and adapter resolution
type SupplierRegistryService struct {
	definitions supplier.DefinitionCatalog
	connections supplier.ConnectionRepository
	vault       vault.CredentialVault
	adapters    integration.AdapterRegistry
	catalogRepo catalog.EntryRepository
	logger      *zap.Logger
}

// NewSupplierRegistryService creates a new SupplierRegistryService
func NewSupplierRegistryService(
	definitions supplier.DefinitionCatalog,
	connections supplier.ConnectionRepository,
	credentialVault vault.CredentialVault,
	adapters integration.AdapterRegistry,
	catalogRepo catalog.EntryRepository,
	logger *zap.Logger,
) *SupplierRegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierRegistryService{
		definitions: definitions,
		connections: connections,
		vault:       credentialVault,
		adapters:    adapters,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// List returns every supplier definition merged with the tenant's connection
// status, ordered by definition id
func (s *SupplierRegistryService) List(ctx context.Context, tenantID uuid.UUID) ([]SupplierView, error) {
	conns, err := s.connections.FindAllForTenant(ctx, tenantID, shared.DefaultFilter())
	if err != nil {
		return nil, err
	}

	bySupplier := make(map[string]*supplier.Connection, len(conns))
	for i := range conns {
		bySupplier[conns[i].SupplierID] = &conns[i]
	}

	defs := s.definitions.All()
	views := make([]SupplierView, 0, len(defs))
	for i := range defs {
		views = append(views, toSupplierView(&defs[i], bySupplier[defs[i].ID]))
	}
	return views, nil
}

// Get returns one supplier merged with the tenant's connection status
func (s *SupplierRegistryService) Get(ctx context.Context, tenantID uuid.UUID, supplierID string) (*SupplierView, error) {
	def, err := s.definitions.Get(supplierID)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.FindBySupplier(ctx, tenantID, supplierID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	view := toSupplierView(def, conn)
	return &view, nil
}

// Configure stores a credential set for a tenant's supplier connection. The
// fields must cover the definition's required configuration; anything less is
// rejected before a vault write happens. A reconfigured connection drops back
// to configured and must pass a fresh verify to become verified again.
func (s *SupplierRegistryService) Configure(ctx context.Context, tenantID uuid.UUID, supplierID string, fields map[string]string) (*SupplierView, error) {
	def, err := s.definitions.Get(supplierID)
	if err != nil {
		return nil, err
	}

	if missing := def.MissingConfig(fields); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s",
			integration.ErrNotConfigured, strings.Join(missing, ", "))
	}

	conn, err := s.connections.FindBySupplier(ctx, tenantID, supplierID)
	if errors.Is(err, shared.ErrNotFound) {
		conn, err = supplier.NewConnection(tenantID, supplierID)
	}
	if err != nil {
		return nil, err
	}
	previousHandle := conn.CredentialHandle

	handle, err := s.vault.Store(ctx, vault.Credentials(fields))
	if err != nil {
		return nil, fmt.Errorf("%w: storing credentials: %v", integration.ErrNotConfigured, err)
	}

	if err := conn.Configure(handle); err != nil {
		return nil, err
	}
	if err := s.connections.Save(ctx, conn); err != nil {
		// The fresh handle is orphaned if the save failed; revoke it so the
		// vault does not accumulate unreachable secrets.
		_ = s.vault.Revoke(ctx, handle)
		return nil, err
	}

	// The old handle is dead once the connection points at the new one.
	if previousHandle != "" {
		if err := s.vault.Revoke(ctx, previousHandle); err != nil {
			s.logger.Warn("failed to revoke replaced credential handle",
				zap.String("supplier_id", supplierID),
				zap.String("handle", previousHandle.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("supplier connection configured",
		zap.String("tenant_id", tenantID.String()),
		zap.String("supplier_id", supplierID),
		zap.Strings("fields", vault.Credentials(fields).FieldNames()))

	view := toSupplierView(def, conn)
	return &view, nil
}

// Verify runs the adapter's connection test and records the outcome on the
// connection. A failed test is not an error of this operation: the returned
// view carries status error and the reason.
func (s *SupplierRegistryService) Verify(ctx context.Context, tenantID uuid.UUID, supplierID string) (*SupplierView, error) {
	def, err := s.definitions.Get(supplierID)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.FindBySupplier(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}
	if !conn.IsConfigured() {
		return nil, fmt.Errorf("%w: supplier %s has no stored credentials", integration.ErrNotConfigured, supplierID)
	}

	connCtx, adapter, err := s.resolve(ctx, tenantID, def, conn)
	if err != nil {
		return nil, err
	}

	if testErr := adapter.TestConnection(ctx, connCtx); testErr != nil {
		conn.MarkError(testErr.Error())
		if err := s.connections.Save(ctx, conn); err != nil {
			return nil, err
		}
		s.logger.Warn("supplier connection test failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("supplier_id", supplierID),
			zap.Error(testErr))
		view := toSupplierView(def, conn)
		return &view, nil
	}

	if err := conn.MarkVerified(time.Now()); err != nil {
		return nil, err
	}
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("supplier connection verified",
		zap.String("tenant_id", tenantID.String()),
		zap.String("supplier_id", supplierID))

	view := toSupplierView(def, conn)
	return &view, nil
}

// Remove deletes the tenant's connection, revokes its credentials, and drops
// the cached catalog for the supplier
func (s *SupplierRegistryService) Remove(ctx context.Context, tenantID uuid.UUID, supplierID string) error {
	conn, err := s.connections.FindBySupplier(ctx, tenantID, supplierID)
	if err != nil {
		return err
	}

	if err := s.connections.Delete(ctx, tenantID, supplierID); err != nil {
		return err
	}

	if conn.CredentialHandle != "" {
		if err := s.vault.Revoke(ctx, conn.CredentialHandle); err != nil {
			s.logger.Warn("failed to revoke credential handle on removal",
				zap.String("supplier_id", supplierID),
				zap.Error(err))
		}
	}

	if err := s.catalogRepo.DeleteForSupplier(ctx, tenantID, supplierID); err != nil {
		s.logger.Warn("failed to drop cached catalog on removal",
			zap.String("supplier_id", supplierID),
			zap.Error(err))
	}

	s.logger.Info("supplier connection removed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("supplier_id", supplierID))

	return nil
}

// Resolve assembles the connection context and adapter for one tenant's
// supplier. Every catalog and order operation funnels through here, so the
// required-config check holds at each use, not just at configure time.
func (s *SupplierRegistryService) Resolve(ctx context.Context, tenantID uuid.UUID, supplierID string) (*integration.ConnectionContext, integration.ProviderAdapter, error) {
	def, err := s.definitions.Get(supplierID)
	if err != nil {
		return nil, nil, err
	}

	conn, err := s.connections.FindBySupplier(ctx, tenantID, supplierID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: supplier %s is not connected", integration.ErrNotConfigured, supplierID)
	}
	if err != nil {
		return nil, nil, err
	}
	if !conn.IsConfigured() {
		return nil, nil, fmt.Errorf("%w: supplier %s has no stored credentials", integration.ErrNotConfigured, supplierID)
	}

	return s.resolve(ctx, tenantID, def, conn)
}

// VerifiedConnections returns every verified connection across tenants,
// paired with its definition, for the catalog warmup schedule
func (s *SupplierRegistryService) VerifiedConnections(ctx context.Context) ([]supplier.Connection, error) {
	return s.connections.FindVerified(ctx)
}

// Definition returns the static definition for a supplier id
func (s *SupplierRegistryService) Definition(supplierID string) (*supplier.SupplierDefinition, error) {
	return s.definitions.Get(supplierID)
}

func (s *SupplierRegistryService) resolve(ctx context.Context, tenantID uuid.UUID, def *supplier.SupplierDefinition, conn *supplier.Connection) (*integration.ConnectionContext, integration.ProviderAdapter, error) {
	creds, err := s.vault.Resolve(ctx, conn.CredentialHandle)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: resolving credentials: %v", integration.ErrNotConfigured, err)
	}

	connCtx := &integration.ConnectionContext{
		TenantID:    tenantID,
		Definition:  def,
		Credentials: creds,
	}
	if err := connCtx.Validate(); err != nil {
		return nil, nil, err
	}

	adapter, err := s.adapters.AdapterFor(def.Kind)
	if err != nil {
		return nil, nil, err
	}
	return connCtx, adapter, nil
}
