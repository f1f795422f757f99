package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "select", "orders", 5*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "select", "orders", 2*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "", "orders", time.Millisecond, nil)

	m := collectMetric(t, reader, "db_query_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		if op, found := dp.Attributes.Value(AttrDBOperation); found {
			totals[op.AsString()] = dp.Value
		}
	}
	// Operation names are uppercased, blanks become UNKNOWN
	assert.Equal(t, int64(2), totals["SELECT"])
	assert.Equal(t, int64(1), totals["UNKNOWN"])
}

func TestDBMetrics_SlowQueryCounter(t *testing.T) {
	reader, provider := newManualMeter(t)

	cfg := DefaultDBMetricsConfig()
	cfg.SlowQueryThreshold = 10 * time.Millisecond
	metrics, err := NewDBMetrics(provider.Meter("test"), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "SELECT", "ledger_entries", 50*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "SELECT", "ledger_entries", time.Millisecond, nil)
	metrics.RecordQuery(ctx, "UPDATE", "", 50*time.Millisecond, nil)

	m := collectMetric(t, reader, "db_slow_query_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	slow := map[string]int64{}
	for _, dp := range sum.DataPoints {
		if table, found := dp.Attributes.Value(AttrDBTable); found {
			slow[table.AsString()] = dp.Value
		}
	}
	assert.Equal(t, int64(1), slow["ledger_entries"])
	assert.Equal(t, int64(1), slow["unknown"])
}

func TestDBMetrics_QueryDurationSeconds(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	metrics.RecordQuery(context.Background(), "INSERT", "orders", 250*time.Millisecond, nil)

	m := collectMetric(t, reader, "db_query_duration_seconds")
	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.InDelta(t, 0.25, data.DataPoints[0].Sum, 1e-9)
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	db := newMockGormDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	metrics.SetSQLDB(sqlDB)

	metrics.collectPoolStats(context.Background())

	m := collectMetric(t, reader, "db_pool_connections")
	data, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)

	states := map[string]bool{}
	for _, dp := range data.DataPoints {
		if state, found := dp.Attributes.Value(attribute.Key("db.pool.state")); found {
			states[state.AsString()] = true
		}
	}
	assert.True(t, states["idle"])
	assert.True(t, states["in_use"])
	assert.True(t, states["open"])
}

func TestDBMetrics_PoolStatsCollectionLifecycle(t *testing.T) {
	_, provider := newManualMeter(t)

	cfg := DefaultDBMetricsConfig()
	cfg.PoolStatsInterval = 10 * time.Millisecond
	metrics, err := NewDBMetrics(provider.Meter("test"), cfg, zap.NewNop())
	require.NoError(t, err)

	db := newMockGormDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	metrics.SetSQLDB(sqlDB)

	metrics.StartPoolStatsCollection(context.Background())
	time.Sleep(30 * time.Millisecond)

	// Stop blocks until the goroutine exits and tolerates repeat calls
	metrics.Stop()
	metrics.Stop()
}

func TestDBMetrics_StartWithoutPoolIsNoop(t *testing.T) {
	_, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	metrics.StartPoolStatsCollection(context.Background())
	metrics.Stop()
}

func TestDBMetricsPlugin_Initialize(t *testing.T) {
	reader, provider := newManualMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	plugin := NewDBMetricsPlugin(metrics, zap.NewNop())
	assert.Equal(t, "restohub:db_metrics", plugin.Name())

	db := newMockGormDB(t)
	require.NoError(t, plugin.Initialize(db))

	assert.NotNil(t, db.Callback().Query().Get("db_metrics:before_query"))
	assert.NotNil(t, db.Callback().Create().Get("db_metrics:after_create"))
	assert.NotNil(t, db.Callback().Raw().Get("db_metrics:after_raw"))

	// Feed a statement through recordMetrics directly to close the loop
	ctx := context.WithValue(context.Background(), dbMetricsStartTimeKey, time.Now())
	plugin.recordMetrics(&gorm.DB{Statement: &gorm.Statement{Context: ctx, Table: "orders"}}, "SELECT")

	m := collectMetric(t, reader, "db_query_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM orders", "SELECT"},
		{"  select 1", "SELECT"},
		{"INSERT INTO ledger_entries VALUES ($1)", "INSERT"},
		{"update orders set status = $1", "UPDATE"},
		{"DELETE FROM catalog_snapshots WHERE expired", "DELETE"},
		{"TRUNCATE sync_cursors", "OTHER"},
		{"", "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectOperationType(tt.sql), "sql %q", tt.sql)
	}
}
