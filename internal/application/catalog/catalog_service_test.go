package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/catalog"
	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
)

func TestTTLForKind(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, config.APITTL, config.TTLForKind(supplier.KindAPIOAuth2))
	assert.Equal(t, config.APITTL, config.TTLForKind(supplier.KindAPIKey))
	assert.Equal(t, config.ScrapeTTL, config.TTLForKind(supplier.KindWebScrape))
	assert.Equal(t, config.DocumentTTL, config.TTLForKind(supplier.KindEmail))
	assert.Equal(t, config.DocumentTTL, config.TTLForKind(supplier.KindManual))
}

func TestGetProducts_FetchesOnEmptyCache(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	tenantID := uuid.New()

	set, err := svc.GetProducts(context.Background(), tenantID, "bidfood", "")
	require.NoError(t, err)

	assert.Equal(t, "bidfood", set.SupplierID)
	assert.False(t, set.Stale)
	require.Len(t, set.Entries, 2)
	assert.Equal(t, "BF-TOM-01", set.Entries[0].ProductID)
	assert.Equal(t, "Roma Tomatoes 5kg", set.Entries[0].Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&deps.adapter.fetchCalls))

	// the refresh populated the cache
	cached, err := deps.entries.FindBySupplier(context.Background(), tenantID, "bidfood", "")
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestGetProducts_ServesFreshCacheWithoutFetching(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)

	set, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)
	assert.Len(t, set.Entries, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&deps.adapter.fetchCalls))
}

func TestGetProducts_RefreshesExpiredCache(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)

	deps.entries.age(tenantID, "bidfood", 10*time.Minute)

	set, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)
	assert.False(t, set.Stale)
	assert.Equal(t, int32(2), atomic.LoadInt32(&deps.adapter.fetchCalls))
}

func TestGetProducts_CategoryFilter(t *testing.T) {
	svc, _ := newCatalogTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	set, err := svc.GetProducts(ctx, tenantID, "bidfood", "produce")
	require.NoError(t, err)
	require.Len(t, set.Entries, 1)
	assert.Equal(t, "BF-TOM-01", set.Entries[0].ProductID)

	// an empty category on a fresh cache is not a miss
	set, err = svc.GetProducts(ctx, tenantID, "bidfood", "hardware")
	require.NoError(t, err)
	assert.Empty(t, set.Entries)
}

func TestGetProducts_EmptyCategoryDoesNotForceRefresh(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)

	_, err = svc.GetProducts(ctx, tenantID, "bidfood", "hardware")
	require.NoError(t, err)
	_, err = svc.GetProducts(ctx, tenantID, "bidfood", "hardware")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&deps.adapter.fetchCalls))
}

func TestGetProducts_CoalescesConcurrentRefreshes(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	deps.adapter.delay = 50 * time.Millisecond
	tenantID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := svc.GetProducts(context.Background(), tenantID, "bidfood", "")
			assert.NoError(t, err)
			assert.Len(t, set.Entries, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&deps.adapter.fetchCalls))
}

func TestGetProducts_StaleFallbackOnFetchFailure(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)

	deps.entries.age(tenantID, "bidfood", 10*time.Minute)
	deps.adapter.fetchErr = integration.ErrFetchFailed

	set, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)
	assert.True(t, set.Stale)
	assert.Len(t, set.Entries, 2)
}

func TestGetProducts_SchemaChangePreservesCache(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)

	deps.entries.age(tenantID, "bidfood", 10*time.Minute)
	deps.adapter.fetchErr = integration.ErrSchemaChanged

	set, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)
	assert.True(t, set.Stale)

	// the misparse never replaced the cached entries
	cached, err := deps.entries.FindBySupplier(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestGetProducts_FailureWithoutCachePropagates(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	deps.adapter.fetchErr = integration.ErrFetchFailed

	_, err := svc.GetProducts(context.Background(), uuid.New(), "bidfood", "")
	assert.ErrorIs(t, err, integration.ErrFetchFailed)
}

func TestGetProducts_ResolveFailurePropagates(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	deps.resolver.err = integration.ErrNotConfigured

	_, err := svc.GetProducts(context.Background(), uuid.New(), "bidfood", "")
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
}

func TestRefresh_BypassesFreshCache(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, tenantID, "bidfood", "")
	require.NoError(t, err)

	set, err := svc.Refresh(ctx, tenantID, "bidfood")
	require.NoError(t, err)
	assert.False(t, set.Stale)
	assert.Equal(t, int32(2), atomic.LoadInt32(&deps.adapter.fetchCalls))
}

func TestRefresh_DropsMalformedProducts(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	deps.adapter.products = []integration.Product{
		{ProductID: "BF-TOM-01", Name: "Roma Tomatoes 5kg", Price: decimal.NewFromFloat(18.50), Category: "produce"},
		{ProductID: "", Name: "Mystery Item", Price: decimal.NewFromInt(1)},
	}

	set, err := svc.Refresh(context.Background(), uuid.New(), "bidfood")
	require.NoError(t, err)
	require.Len(t, set.Entries, 1)
	assert.Equal(t, "BF-TOM-01", set.Entries[0].ProductID)
}

func TestRefreshStale_SweepsExpiredVerifiedConnections(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	deps.verified.conns = []supplier.Connection{
		verifiedConnection(t, tenantA, "bidfood"),
		verifiedConnection(t, tenantB, "bidfood"),
	}

	// tenant A has a fresh cache; tenant B's is expired
	_, err := svc.GetProducts(ctx, tenantA, "bidfood", "")
	require.NoError(t, err)
	_, err = svc.GetProducts(ctx, tenantB, "bidfood", "")
	require.NoError(t, err)
	deps.entries.age(tenantB, "bidfood", 10*time.Minute)

	refreshed, err := svc.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&deps.adapter.fetchCalls))
}

func TestRefreshStale_FailingSupplierDoesNotStopSweep(t *testing.T) {
	svc, deps := newCatalogTestService(t)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	deps.verified.conns = []supplier.Connection{
		verifiedConnection(t, tenantA, "bidfood"),
		verifiedConnection(t, tenantB, "bidfood"),
	}

	// tenant A resolves to a failing adapter, tenant B succeeds
	deps.resolver.errForTenant = map[uuid.UUID]error{tenantA: integration.ErrConnectionFailed}

	refreshed, err := svc.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)
}

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type catalogTestDeps struct {
	resolver *fakeResolver
	verified *fakeVerifiedLister
	entries  *memoryEntryRepo
	adapter  *fakeCatalogAdapter
}

func newCatalogTestService(t *testing.T) (*CatalogService, *catalogTestDeps) {
	t.Helper()

	adapter := &fakeCatalogAdapter{
		kind: supplier.KindAPIOAuth2,
		products: []integration.Product{
			{ProductID: "BF-TOM-01", Name: "Roma Tomatoes 5kg", Price: decimal.NewFromFloat(18.50), Unit: "case", Category: "produce", InStock: true},
			{ProductID: "BF-OIL-02", Name: "Olive Oil 4L", Price: decimal.NewFromFloat(42.00), Unit: "tin", Category: "pantry", InStock: true},
		},
	}
	deps := &catalogTestDeps{
		resolver: &fakeResolver{adapter: adapter, definition: &supplier.SupplierDefinition{
			ID: "bidfood", Name: "Bidfood Australia", Kind: supplier.KindAPIOAuth2,
		}},
		verified: &fakeVerifiedLister{},
		entries:  newMemoryEntryRepo(),
		adapter:  adapter,
	}

	config := DefaultConfig()
	config.APITTL = 5 * time.Minute
	svc := NewCatalogService(deps.resolver, deps.verified, deps.entries, config, zap.NewNop())
	return svc, deps
}

func verifiedConnection(t *testing.T, tenantID uuid.UUID, supplierID string) supplier.Connection {
	t.Helper()
	conn, err := supplier.NewConnection(tenantID, supplierID)
	require.NoError(t, err)
	require.NoError(t, conn.Configure("vlt-test"))
	require.NoError(t, conn.MarkVerified(time.Now()))
	return *conn
}

type fakeResolver struct {
	adapter      *fakeCatalogAdapter
	definition   *supplier.SupplierDefinition
	err          error
	errForTenant map[uuid.UUID]error
}

func (f *fakeResolver) Resolve(_ context.Context, tenantID uuid.UUID, _ string) (*integration.ConnectionContext, integration.ProviderAdapter, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if err, ok := f.errForTenant[tenantID]; ok {
		return nil, nil, err
	}
	return &integration.ConnectionContext{
		TenantID:    tenantID,
		Definition:  f.definition,
		Credentials: map[string]string{"client_id": "x", "client_secret": "y", "location_id": "z"},
	}, f.adapter, nil
}

type fakeVerifiedLister struct {
	conns []supplier.Connection
}

func (f *fakeVerifiedLister) VerifiedConnections(_ context.Context) ([]supplier.Connection, error) {
	return f.conns, nil
}

type fakeCatalogAdapter struct {
	kind       supplier.IntegrationKind
	products   []integration.Product
	fetchErr   error
	delay      time.Duration
	fetchCalls int32
}

func (f *fakeCatalogAdapter) Kind() supplier.IntegrationKind { return f.kind }

func (f *fakeCatalogAdapter) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(integration.CapabilityCatalogFetch)
}

func (f *fakeCatalogAdapter) TestConnection(_ context.Context, _ *integration.ConnectionContext) error {
	return nil
}

func (f *fakeCatalogAdapter) FetchCatalog(_ context.Context, _ *integration.ConnectionContext) ([]integration.Product, error) {
	atomic.AddInt32(&f.fetchCalls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.products, nil
}

func (f *fakeCatalogAdapter) SubmitOrder(_ context.Context, _ *integration.ConnectionContext, _ *order.Request) (*integration.OrderAck, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalogAdapter) CheckOrderStatus(_ context.Context, _ *integration.ConnectionContext, _ string) (*integration.StatusReport, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalogAdapter) DeliverDocument(_ context.Context, _ *integration.ConnectionContext, _ *order.Request, _ *integration.Document) error {
	return errors.New("not implemented")
}

// memoryEntryRepo is a map-backed catalog.EntryRepository
type memoryEntryRepo struct {
	mu   sync.Mutex
	sets map[string][]catalog.Entry
}

func newMemoryEntryRepo() *memoryEntryRepo {
	return &memoryEntryRepo{sets: make(map[string][]catalog.Entry)}
}

func entryKey(tenantID uuid.UUID, supplierID string) string {
	return tenantID.String() + "|" + supplierID
}

func (r *memoryEntryRepo) FindBySupplier(_ context.Context, tenantID uuid.UUID, supplierID, category string) ([]catalog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.sets[entryKey(tenantID, supplierID)]
	var out []catalog.Entry
	for _, e := range stored {
		if category == "" || e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEntryRepo) ReplaceForSupplier(_ context.Context, tenantID uuid.UUID, supplierID string, entries []catalog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]catalog.Entry, len(entries))
	copy(copied, entries)
	r.sets[entryKey(tenantID, supplierID)] = copied
	return nil
}

func (r *memoryEntryRepo) DeleteForSupplier(_ context.Context, tenantID uuid.UUID, supplierID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, entryKey(tenantID, supplierID))
	return nil
}

// age pushes a cached set's fetch time into the past
func (r *memoryEntryRepo) age(tenantID uuid.UUID, supplierID string, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.sets[entryKey(tenantID, supplierID)]
	for i := range entries {
		entries[i].FetchedAt = entries[i].FetchedAt.Add(-by)
	}
}
