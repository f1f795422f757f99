// Package catalog serves supplier product catalogs from a TTL-bounded cache,
// refreshing through the provider adapters. Concurrent refreshes for the same
// tenant and supplier coalesce into one adapter call, and a failed refresh
// falls back to stale cache rather than an empty answer.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/restohub/backend/internal/domain/catalog"
	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/infrastructure/telemetry"
)

// Config holds catalog cache behavior. TTLs are per integration kind: API
// catalogs stay fresh within minutes, scraped portals within hours,
// document suppliers within a day.
type Config struct {
	APITTL       time.Duration
	ScrapeTTL    time.Duration
	DocumentTTL  time.Duration
	FetchTimeout time.Duration
}

// DefaultConfig returns the default cache behavior
func DefaultConfig() Config {
	return Config{
		APITTL:       5 * time.Minute,
		ScrapeTTL:    6 * time.Hour,
		DocumentTTL:  24 * time.Hour,
		FetchTimeout: 60 * time.Second,
	}
}

// TTLForKind returns the cache validity window for an integration kind
func (c Config) TTLForKind(kind supplier.IntegrationKind) time.Duration {
	switch kind {
	case supplier.KindWebScrape:
		return c.ScrapeTTL
	case supplier.KindEmail, supplier.KindManual:
		return c.DocumentTTL
	default:
		return c.APITTL
	}
}

// ConnectionResolver assembles the adapter call context for a tenant's
// supplier, enforcing configuration completeness on every use
type ConnectionResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, supplierID string) (*integration.ConnectionContext, integration.ProviderAdapter, error)
}

// VerifiedLister supplies the verified connections for catalog warmup
type VerifiedLister interface {
	VerifiedConnections(ctx context.Context) ([]supplier.Connection, error)
}

// CatalogService serves cached supplier catalogs and coordinates refreshes
type CatalogService struct {
	resolver ConnectionResolver
	verified VerifiedLister
	entries  catalog.EntryRepository
	config   Config
	logger   *zap.Logger

	// one in-flight refresh per tenant and supplier
	flights singleflight.Group
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	resolver ConnectionResolver,
	verified VerifiedLister,
	entries catalog.EntryRepository,
	config Config,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		resolver: resolver,
		verified: verified,
		entries:  entries,
		config:   config,
		logger:   logger,
	}
}

// GetProducts returns the supplier's catalog for a tenant, from cache when
// fresh, refreshing through the adapter when expired or empty. Category
// filtering happens after the freshness decision so an empty category never
// looks like a cache miss.
func (s *CatalogService) GetProducts(ctx context.Context, tenantID uuid.UUID, supplierID, category string) (*catalog.ProductSet, error) {
	cached, err := s.entries.FindBySupplier(ctx, tenantID, supplierID, "")
	if err != nil {
		return nil, err
	}

	if len(cached) > 0 && cached[0].IsFresh(time.Now()) {
		return filterCategory(freshSet(supplierID, cached), category), nil
	}

	set, err := s.refreshFlight(ctx, tenantID, supplierID, false)
	if err != nil {
		return nil, err
	}
	return filterCategory(set, category), nil
}

// Refresh forces a catalog refresh regardless of freshness. Concurrent
// forced refreshes for the same tenant and supplier still coalesce.
func (s *CatalogService) Refresh(ctx context.Context, tenantID uuid.UUID, supplierID string) (*catalog.ProductSet, error) {
	return s.refreshFlight(ctx, tenantID, supplierID, true)
}

// RefreshStale refreshes the catalog of every verified connection whose
// cache has expired, returning how many were refreshed. One failing supplier
// does not stop the sweep.
func (s *CatalogService) RefreshStale(ctx context.Context) (int, error) {
	conns, err := s.verified.VerifiedConnections(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for i := range conns {
		conn := &conns[i]

		cached, err := s.entries.FindBySupplier(ctx, conn.TenantID, conn.SupplierID, "")
		if err != nil {
			s.logger.Warn("catalog warmup cache read failed",
				zap.String("supplier_id", conn.SupplierID),
				zap.Error(err))
			continue
		}
		if len(cached) > 0 && cached[0].IsFresh(time.Now()) {
			continue
		}

		if _, err := s.refreshFlight(ctx, conn.TenantID, conn.SupplierID, true); err != nil {
			s.logger.Warn("catalog warmup refresh failed",
				zap.String("tenant_id", conn.TenantID.String()),
				zap.String("supplier_id", conn.SupplierID),
				zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// refreshFlight coalesces refreshes per (tenant, supplier) pair
func (s *CatalogService) refreshFlight(ctx context.Context, tenantID uuid.UUID, supplierID string, force bool) (*catalog.ProductSet, error) {
	key := tenantID.String() + "|" + supplierID
	result, err, _ := s.flights.Do(key, func() (interface{}, error) {
		return s.doRefresh(ctx, tenantID, supplierID, force)
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.ProductSet), nil
}

func (s *CatalogService) doRefresh(ctx context.Context, tenantID uuid.UUID, supplierID string, force bool) (*catalog.ProductSet, error) {
	// A caller that queued behind another flight may find the work already
	// done; re-check before touching the adapter.
	if !force {
		cached, err := s.entries.FindBySupplier(ctx, tenantID, supplierID, "")
		if err == nil && len(cached) > 0 && cached[0].IsFresh(time.Now()) {
			return freshSet(supplierID, cached), nil
		}
	}

	connCtx, adapter, err := s.resolver.Resolve(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}

	fetchCtx := ctx
	if s.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.config.FetchTimeout)
		defer cancel()
	}

	// Label the fetch so slow connectors show up per supplier in profiles
	var products []integration.Product
	telemetry.WithProfilingLabels(fetchCtx, map[string]string{
		telemetry.ProfilingLabelOperation: "catalog_fetch",
		telemetry.ProfilingLabelSupplier:  supplierID,
	}, func(c context.Context) {
		products, err = adapter.FetchCatalog(c, connCtx)
	})
	if err != nil {
		return s.serveStaleAfter(ctx, tenantID, supplierID, err)
	}

	ttl := s.config.TTLForKind(connCtx.Definition.Kind)
	entries := make([]catalog.Entry, 0, len(products))
	for i := range products {
		entry, err := toEntry(tenantID, supplierID, &products[i], ttl)
		if err != nil {
			s.logger.Warn("dropping malformed catalog product",
				zap.String("supplier_id", supplierID),
				zap.String("product_id", products[i].ProductID),
				zap.Error(err))
			continue
		}
		entries = append(entries, *entry)
	}

	if err := s.entries.ReplaceForSupplier(ctx, tenantID, supplierID, entries); err != nil {
		return nil, err
	}

	s.logger.Info("catalog refreshed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("supplier_id", supplierID),
		zap.Int("products", len(entries)))

	return freshSet(supplierID, entries), nil
}

// serveStaleAfter answers a failed refresh from the expired cache when one
// exists. A portal layout change also lands here: the cache is preserved, not
// overwritten with a misparse.
func (s *CatalogService) serveStaleAfter(ctx context.Context, tenantID uuid.UUID, supplierID string, fetchErr error) (*catalog.ProductSet, error) {
	cached, err := s.entries.FindBySupplier(ctx, tenantID, supplierID, "")
	if err != nil || len(cached) == 0 {
		return nil, fetchErr
	}

	s.logger.Warn("serving stale catalog after refresh failure",
		zap.String("tenant_id", tenantID.String()),
		zap.String("supplier_id", supplierID),
		zap.String("code", integration.CodeOf(fetchErr)),
		zap.Error(fetchErr))

	set := freshSet(supplierID, cached)
	set.Stale = true
	return set, nil
}

func toEntry(tenantID uuid.UUID, supplierID string, p *integration.Product, ttl time.Duration) (*catalog.Entry, error) {
	entry, err := catalog.NewEntry(tenantID, supplierID, p.ProductID, p.Name, p.Price, ttl)
	if err != nil {
		return nil, err
	}
	entry.Unit = p.Unit
	entry.Category = p.Category
	entry.InStock = p.InStock
	if p.MinOrderQty.IsPositive() {
		entry.MinOrderQty = p.MinOrderQty
	}
	entry.LeadTimeDays = p.LeadTimeDays
	return entry, nil
}

func freshSet(supplierID string, entries []catalog.Entry) *catalog.ProductSet {
	set := &catalog.ProductSet{
		SupplierID: supplierID,
		Entries:    entries,
	}
	if len(entries) > 0 {
		set.FetchedAt = entries[0].FetchedAt
	}
	return set
}

// filterCategory narrows a set to one category, copying so flight-shared
// results stay untouched
func filterCategory(set *catalog.ProductSet, category string) *catalog.ProductSet {
	if category == "" {
		return set
	}
	filtered := &catalog.ProductSet{
		SupplierID: set.SupplierID,
		Stale:      set.Stale,
		FetchedAt:  set.FetchedAt,
	}
	for i := range set.Entries {
		if set.Entries[i].Category == category {
			filtered.Entries = append(filtered.Entries, set.Entries[i])
		}
	}
	return filtered
}

