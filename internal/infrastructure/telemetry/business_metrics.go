// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the integration platform.
// It tracks order submissions, catalog refreshes, POS sync activity, and
// inventory health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	orderSubmittedTotal *Counter
	orderFailedTotal    *Counter
	catalogRefreshTotal *Counter
	posEventsTotal      *Counter

	// Gauge metrics (point-in-time values)
	lowStockCount     *Gauge
	pendingOrderCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	healthProvider HealthMetricsProvider
}

// HealthMetricsProvider provides platform health data for periodic metrics
// collection. The interface lets the telemetry layer query aggregate state
// without depending on the domain repositories directly.
type HealthMetricsProvider interface {
	// GetLowStockCount returns the number of products at or below their reorder level for a tenant
	GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetPendingOrderCount returns the number of orders still awaiting submission for a tenant
	GetPendingOrderCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	HealthProvider  HealthMetricsProvider
}

// CatalogOutcome labels how a catalog request was satisfied.
type CatalogOutcome string

const (
	CatalogOutcomeFresh      CatalogOutcome = "fresh"       // served from a live cache entry
	CatalogOutcomeRefreshed  CatalogOutcome = "refreshed"   // fetched from the supplier
	CatalogOutcomeStale      CatalogOutcome = "stale"       // refresh failed, stale entry served
	CatalogOutcomeFetchError CatalogOutcome = "fetch_error" // refresh failed with nothing cached
)

// POSEventResult labels the outcome of applying one POS event line.
type POSEventResult string

const (
	POSEventApplied   POSEventResult = "applied"
	POSEventDuplicate POSEventResult = "duplicate"
	POSEventRejected  POSEventResult = "rejected"
)

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		healthProvider: cfg.HealthProvider,
	}

	// Initialize counter metrics
	var err error

	// Order metrics
	bm.orderSubmittedTotal, err = NewCounter(
		cfg.Meter,
		"restohub_order_submitted_total",
		"Total number of orders submitted to suppliers",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderFailedTotal, err = NewCounter(
		cfg.Meter,
		"restohub_order_failed_total",
		"Total number of order submissions that exhausted their attempts",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	// Catalog metrics
	bm.catalogRefreshTotal, err = NewCounter(
		cfg.Meter,
		"restohub_catalog_refresh_total",
		"Total number of catalog requests by outcome",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	// POS sync metrics
	bm.posEventsTotal, err = NewCounter(
		cfg.Meter,
		"restohub_pos_events_total",
		"Total number of POS sync events processed by result",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	// Health gauge metrics
	bm.lowStockCount, err = NewGauge(
		cfg.Meter,
		"restohub_low_stock_count",
		"Number of products at or below their reorder level",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	bm.pendingOrderCount, err = NewGauge(
		cfg.Meter,
		"restohub_pending_order_count",
		"Number of orders still awaiting submission",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Order Metrics
// =============================================================================

// RecordOrderSubmitted records a successful order submission.
// This should be called from the application layer once a supplier accepts an
// order or its document leaves the building.
func (bm *BusinessMetrics) RecordOrderSubmitted(ctx context.Context, tenantID uuid.UUID, supplierID, channel string) {
	bm.orderSubmittedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrSupplierID.String(supplierID),
		AttrOrderChannel.String(channel),
	)
}

// RecordOrderFailed records an order that exhausted its submission attempts.
// The errorCode is one of the platform error taxonomy codes.
func (bm *BusinessMetrics) RecordOrderFailed(ctx context.Context, tenantID uuid.UUID, supplierID, errorCode string) {
	bm.orderFailedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrSupplierID.String(supplierID),
		AttrErrorCode.String(errorCode),
	)
}

// =============================================================================
// Catalog Metrics
// =============================================================================

// RecordCatalogRequest records one catalog request and how it was satisfied.
func (bm *BusinessMetrics) RecordCatalogRequest(ctx context.Context, supplierID, kind string, outcome CatalogOutcome) {
	bm.catalogRefreshTotal.Inc(ctx,
		AttrSupplierID.String(supplierID),
		AttrIntegrationKind.String(kind),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// POS Sync Metrics
// =============================================================================

// RecordPOSEvents records a batch of processed POS sync events.
// Duplicates are counted separately so sync health dashboards can spot a
// connector replaying history.
func (bm *BusinessMetrics) RecordPOSEvents(ctx context.Context, tenantID uuid.UUID, stream string, result POSEventResult, count int64) {
	if count <= 0 {
		return
	}
	bm.posEventsTotal.Add(ctx, count,
		AttrTenantID.String(tenantID.String()),
		AttrSyncStream.String(stream),
		AttrOutcome.String(string(result)),
	)
}

// =============================================================================
// Health Gauges
// =============================================================================

// RecordLowStockCount records the number of products at or below reorder level.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordLowStockCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.lowStockCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordPendingOrderCount records the number of orders awaiting submission.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordPendingOrderCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.pendingOrderCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects health metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectHealthMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectHealthMetrics(ctx, tenantProvider)
		}
	}
}

// collectHealthMetrics collects health gauge metrics for all tenants.
func (bm *BusinessMetrics) collectHealthMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.healthProvider == nil {
		bm.logger.Debug("No health provider configured, skipping health metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantHealthMetrics(ctx, tenantID)
	}
}

// collectTenantHealthMetrics collects health metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantHealthMetrics(ctx context.Context, tenantID uuid.UUID) {
	lowStock, err := bm.healthProvider.GetLowStockCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get low stock count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordLowStockCount(ctx, tenantID, lowStock)
	}

	pending, err := bm.healthProvider.GetPendingOrderCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get pending order count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordPendingOrderCount(ctx, tenantID, pending)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
