package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockGormDB(t *testing.T) *gorm.DB {
	t.Helper()

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables)
}

func TestDBTracingPlugin_Name(t *testing.T) {
	p := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	assert.Equal(t, "restohub:db_tracing", p.Name())
}

func TestDBTracingPlugin_Initialize(t *testing.T) {
	t.Run("disabled config registers nothing", func(t *testing.T) {
		db := newMockGormDB(t)
		p := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())

		require.NoError(t, p.Initialize(db))
		assert.Nil(t, db.Callback().Query().Get("db_tracing:before_query"))
	})

	t.Run("enabled config installs callbacks", func(t *testing.T) {
		db := newMockGormDB(t)
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		p := NewDBTracingPlugin(cfg, zap.NewNop())

		require.NoError(t, p.Initialize(db))
		assert.NotNil(t, db.Callback().Query().Get("db_tracing:before_query"))
		assert.NotNil(t, db.Callback().Create().Get("db_tracing:after_create"))
		assert.NotNil(t, db.Callback().Raw().Get("db_tracing:after_raw"))
	})
}

// withDBSpan starts a recorded span and returns the context carrying it.
func withDBSpan(t *testing.T) (*tracetest.SpanRecorder, context.Context, func() sdktrace.ReadOnlySpan) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := provider.Tracer("test").Start(context.Background(), "gorm.query")
	return recorder, ctx, func() sdktrace.ReadOnlySpan {
		span.End()
		spans := recorder.Ended()
		require.Len(t, spans, 1)
		return spans[0]
	}
}

func TestDBTracingPlugin_After(t *testing.T) {
	t.Run("annotates rows and table", func(t *testing.T) {
		_, ctx, ended := withDBSpan(t)

		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		p := NewDBTracingPlugin(cfg, zap.NewNop())

		db := &gorm.DB{Statement: &gorm.Statement{
			Context: ctx,
			Table:   "supplier_connections",
		}}
		db.RowsAffected = 3
		p.after(db)

		attrs := ended().Attributes()
		assert.Contains(t, attrs, attribute.Int64("db.rows_affected", 3))
		assert.Contains(t, attrs, attribute.String("db.sql.table", "supplier_connections"))
	})

	t.Run("record-not-found keeps the span clean", func(t *testing.T) {
		_, ctx, ended := withDBSpan(t)

		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		p := NewDBTracingPlugin(cfg, zap.NewNop())

		db := &gorm.DB{Statement: &gorm.Statement{Context: ctx, Table: "orders"}}
		db.Error = gorm.ErrRecordNotFound
		p.after(db)

		assert.Equal(t, codes.Unset, ended().Status().Code)
	})

	t.Run("real errors mark the span", func(t *testing.T) {
		_, ctx, ended := withDBSpan(t)

		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		p := NewDBTracingPlugin(cfg, zap.NewNop())

		db := &gorm.DB{Statement: &gorm.Statement{Context: ctx, Table: "orders"}}
		db.Error = gorm.ErrInvalidTransaction
		p.after(db)

		span := ended()
		assert.Equal(t, codes.Error, span.Status().Code)
		require.NotEmpty(t, span.Events())
	})

	t.Run("flags queries over the threshold", func(t *testing.T) {
		_, ctx, ended := withDBSpan(t)
		ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))

		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		cfg.SlowQueryThresh = 100 * time.Millisecond
		p := NewDBTracingPlugin(cfg, zap.NewNop())

		p.after(&gorm.DB{Statement: &gorm.Statement{Context: ctx, Table: "ledger_entries"}})

		span := ended()
		assert.Contains(t, span.Attributes(), attribute.Bool("db.slow_query", true))

		var sawWarning bool
		for _, ev := range span.Events() {
			if ev.Name == "slow_query_warning" {
				sawWarning = true
			}
		}
		assert.True(t, sawWarning)
	})

	t.Run("nil context is a no-op", func(t *testing.T) {
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		p := NewDBTracingPlugin(cfg, zap.NewNop())

		assert.NotPanics(t, func() {
			p.after(&gorm.DB{Statement: &gorm.Statement{}})
		})
	})
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := WithQueryStartTime(context.Background())

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), start, time.Second)
}
