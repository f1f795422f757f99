package registry

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/catalog"
	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/domain/vault"
	infravault "github.com/restohub/backend/internal/infrastructure/vault"
)

func TestList_MergesConnectionStatus(t *testing.T) {
	svc, deps := newTestService(t)
	tenantID := uuid.New()

	conn, err := supplier.NewConnection(tenantID, "bidfood")
	require.NoError(t, err)
	require.NoError(t, conn.Configure("vlt-abc"))
	require.NoError(t, deps.connections.Save(context.Background(), conn))

	views, err := svc.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "bidfood", views[0].ID)
	assert.Equal(t, "configured", views[0].Status)
	assert.True(t, views[0].SupportsOrders)

	assert.Equal(t, "localharvest", views[1].ID)
	assert.Equal(t, "unconfigured", views[1].Status)
	assert.True(t, views[1].DocumentChannel)
}

func TestConfigure_StoresCredentialsAndCreatesConnection(t *testing.T) {
	svc, deps := newTestService(t)
	tenantID := uuid.New()

	view, err := svc.Configure(context.Background(), tenantID, "bidfood", map[string]string{
		"client_id":     "cid-1",
		"client_secret": "very-secret",
		"location_id":   "loc-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "configured", view.Status)

	conn, err := deps.connections.FindBySupplier(context.Background(), tenantID, "bidfood")
	require.NoError(t, err)
	assert.NotEmpty(t, conn.CredentialHandle)

	// the vault round-trips the stored fields
	creds, err := deps.vault.Resolve(context.Background(), conn.CredentialHandle)
	require.NoError(t, err)
	assert.Equal(t, "very-secret", creds.Get("client_secret"))
}

func TestConfigure_RejectsIncompleteFields(t *testing.T) {
	svc, deps := newTestService(t)

	_, err := svc.Configure(context.Background(), uuid.New(), "bidfood", map[string]string{
		"client_id": "cid-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
	assert.Contains(t, err.Error(), "client_secret")
	assert.Contains(t, err.Error(), "location_id")
	// nothing reached the vault
	assert.Equal(t, 0, deps.vault.Size())
}

func TestConfigure_UnknownSupplier(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Configure(context.Background(), uuid.New(), "nosuch", map[string]string{"x": "y"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConfigure_ReplacingCredentialsRevokesOldHandle(t *testing.T) {
	svc, deps := newTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.Configure(ctx, tenantID, "bidfood", map[string]string{
		"client_id": "a", "client_secret": "b", "location_id": "c",
	})
	require.NoError(t, err)
	first, err := deps.connections.FindBySupplier(ctx, tenantID, "bidfood")
	require.NoError(t, err)
	oldHandle := first.CredentialHandle

	_, err = svc.Configure(ctx, tenantID, "bidfood", map[string]string{
		"client_id": "a2", "client_secret": "b2", "location_id": "c2",
	})
	require.NoError(t, err)

	second, err := deps.connections.FindBySupplier(ctx, tenantID, "bidfood")
	require.NoError(t, err)
	assert.NotEqual(t, oldHandle, second.CredentialHandle)

	_, err = deps.vault.Resolve(ctx, oldHandle)
	assert.ErrorIs(t, err, vault.ErrHandleNotFound)
	assert.Equal(t, 1, deps.vault.Size())
}

func TestVerify_MarksVerifiedOnSuccess(t *testing.T) {
	svc, deps := newTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.Configure(ctx, tenantID, "bidfood", map[string]string{
		"client_id": "a", "client_secret": "b", "location_id": "c",
	})
	require.NoError(t, err)

	view, err := svc.Verify(ctx, tenantID, "bidfood")
	require.NoError(t, err)
	assert.Equal(t, "verified", view.Status)
	assert.NotNil(t, view.LastVerifiedAt)
	assert.Equal(t, 1, deps.adapter.testCalls)
}

func TestVerify_RecordsFailureWithoutError(t *testing.T) {
	svc, deps := newTestService(t)
	deps.adapter.testErr = integration.ErrConnectionFailed
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.Configure(ctx, tenantID, "bidfood", map[string]string{
		"client_id": "a", "client_secret": "b", "location_id": "c",
	})
	require.NoError(t, err)

	view, err := svc.Verify(ctx, tenantID, "bidfood")
	require.NoError(t, err)
	assert.Equal(t, "error", view.Status)
	assert.Contains(t, view.LastError, "connection failed")
}

func TestVerify_RequiresConfiguration(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Verify(context.Background(), uuid.New(), "bidfood")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemove_RevokesAndDropsCatalog(t *testing.T) {
	svc, deps := newTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.Configure(ctx, tenantID, "bidfood", map[string]string{
		"client_id": "a", "client_secret": "b", "location_id": "c",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, tenantID, "bidfood"))

	_, err = deps.connections.FindBySupplier(ctx, tenantID, "bidfood")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, 0, deps.vault.Size())
	assert.Contains(t, deps.catalogRepo.dropped, tenantID.String()+"|bidfood")

	// removing again reports not found
	err = svc.Remove(ctx, tenantID, "bidfood")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolve_ReturnsContextAndAdapter(t *testing.T) {
	svc, deps := newTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.Configure(ctx, tenantID, "bidfood", map[string]string{
		"client_id": "a", "client_secret": "b", "location_id": "c",
	})
	require.NoError(t, err)

	connCtx, adapter, err := svc.Resolve(ctx, tenantID, "bidfood")
	require.NoError(t, err)
	assert.Equal(t, tenantID, connCtx.TenantID)
	assert.Equal(t, "bidfood", connCtx.Definition.ID)
	assert.Equal(t, "b", connCtx.Credentials.Get("client_secret"))
	assert.Same(t, deps.adapter, adapter)
}

func TestResolve_UnconnectedSupplier(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Resolve(context.Background(), uuid.New(), "bidfood")
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
}

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type testDeps struct {
	connections *fakeConnectionRepo
	vault       *infravault.MemoryVault
	adapter     *fakeAdapter
	catalogRepo *fakeCatalogRepo
}

func newTestService(t *testing.T) (*SupplierRegistryService, *testDeps) {
	t.Helper()

	memVault, err := infravault.NewMemoryVault(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	deps := &testDeps{
		connections: &fakeConnectionRepo{conns: make(map[string]*supplier.Connection)},
		vault:       memVault,
		adapter:     &fakeAdapter{kind: supplier.KindAPIOAuth2},
		catalogRepo: &fakeCatalogRepo{},
	}

	registry := &fakeAdapterRegistry{adapters: map[supplier.IntegrationKind]integration.ProviderAdapter{
		supplier.KindAPIOAuth2: deps.adapter,
	}}

	svc := NewSupplierRegistryService(
		testDefinitions(), deps.connections, deps.vault, registry, deps.catalogRepo, zap.NewNop())
	return svc, deps
}

type fakeDefinitionCatalog struct {
	defs []supplier.SupplierDefinition
}

func (f *fakeDefinitionCatalog) Get(id string) (*supplier.SupplierDefinition, error) {
	for i := range f.defs {
		if f.defs[i].ID == id {
			return &f.defs[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeDefinitionCatalog) All() []supplier.SupplierDefinition {
	return f.defs
}

func testDefinitions() *fakeDefinitionCatalog {
	return &fakeDefinitionCatalog{defs: []supplier.SupplierDefinition{
		{
			ID:             "bidfood",
			Name:           "Bidfood Australia",
			Kind:           supplier.KindAPIOAuth2,
			RequiredConfig: []string{"client_id", "client_secret", "location_id"},
		},
		{
			ID:             "localharvest",
			Name:           "Local Harvest Co",
			Kind:           supplier.KindEmail,
			RequiredConfig: []string{"supplier_name", "supplier_email"},
		},
	}}
}

type fakeConnectionRepo struct {
	mu    sync.Mutex
	conns map[string]*supplier.Connection
}

func connKey(tenantID uuid.UUID, supplierID string) string {
	return tenantID.String() + "|" + supplierID
}

func (f *fakeConnectionRepo) FindBySupplier(_ context.Context, tenantID uuid.UUID, supplierID string) (*supplier.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connKey(tenantID, supplierID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *conn
	return &copied, nil
}

func (f *fakeConnectionRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]supplier.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []supplier.Connection
	for _, conn := range f.conns {
		if conn.TenantID == tenantID {
			out = append(out, *conn)
		}
	}
	return out, nil
}

func (f *fakeConnectionRepo) FindVerified(_ context.Context) ([]supplier.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []supplier.Connection
	for _, conn := range f.conns {
		if conn.IsVerified() {
			out = append(out, *conn)
		}
	}
	return out, nil
}

func (f *fakeConnectionRepo) Save(_ context.Context, conn *supplier.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *conn
	f.conns[connKey(conn.TenantID, conn.SupplierID)] = &copied
	return nil
}

func (f *fakeConnectionRepo) Delete(_ context.Context, tenantID uuid.UUID, supplierID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := connKey(tenantID, supplierID)
	if _, ok := f.conns[key]; !ok {
		return shared.ErrNotFound
	}
	delete(f.conns, key)
	return nil
}

type fakeAdapter struct {
	kind      supplier.IntegrationKind
	testErr   error
	testCalls int
}

func (f *fakeAdapter) Kind() supplier.IntegrationKind { return f.kind }

func (f *fakeAdapter) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(integration.CapabilityCatalogFetch, integration.CapabilityOrderSubmit)
}

func (f *fakeAdapter) TestConnection(_ context.Context, _ *integration.ConnectionContext) error {
	f.testCalls++
	return f.testErr
}

func (f *fakeAdapter) FetchCatalog(_ context.Context, _ *integration.ConnectionContext) ([]integration.Product, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) SubmitOrder(_ context.Context, _ *integration.ConnectionContext, _ *order.Request) (*integration.OrderAck, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) CheckOrderStatus(_ context.Context, _ *integration.ConnectionContext, _ string) (*integration.StatusReport, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) DeliverDocument(_ context.Context, _ *integration.ConnectionContext, _ *order.Request, _ *integration.Document) error {
	return errors.New("not implemented")
}

type fakeAdapterRegistry struct {
	adapters map[supplier.IntegrationKind]integration.ProviderAdapter
}

func (f *fakeAdapterRegistry) AdapterFor(kind supplier.IntegrationKind) (integration.ProviderAdapter, error) {
	adapter, ok := f.adapters[kind]
	if !ok {
		return nil, integration.ErrCapabilityNotSupported
	}
	return adapter, nil
}

func (f *fakeAdapterRegistry) All() []integration.ProviderAdapter {
	var out []integration.ProviderAdapter
	for _, a := range f.adapters {
		out = append(out, a)
	}
	return out
}

type fakeCatalogRepo struct {
	mu      sync.Mutex
	dropped []string
}

func (f *fakeCatalogRepo) FindBySupplier(_ context.Context, _ uuid.UUID, _, _ string) ([]catalog.Entry, error) {
	return nil, nil
}

func (f *fakeCatalogRepo) ReplaceForSupplier(_ context.Context, _ uuid.UUID, _ string, _ []catalog.Entry) error {
	return nil
}

func (f *fakeCatalogRepo) DeleteForSupplier(_ context.Context, tenantID uuid.UUID, supplierID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, tenantID.String()+"|"+supplierID)
	return nil
}
