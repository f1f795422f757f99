package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newGormTestLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func sqlOf(query string, rows int64) func() (string, int64) {
	return func() (string, int64) { return query, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("routine queries log at debug", func(t *testing.T) {
		gl, logs := newGormTestLogger(gormlogger.Info)
		gl.Trace(ctx, time.Now(), sqlOf("SELECT * FROM supplier_connections WHERE tenant_id = $1", 3), nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		assert.Equal(t, "SQL Query", entry.Message)
		assert.Equal(t, int64(3), entry.ContextMap()["rows"])
	})

	t.Run("errors log with the statement", func(t *testing.T) {
		gl, logs := newGormTestLogger(gormlogger.Error)
		gl.Trace(ctx, time.Now(), sqlOf("INSERT INTO ledger_entries VALUES ($1)", 0), assert.AnError)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		assert.Equal(t, "SQL Error", entry.Message)
	})

	t.Run("record-not-found is suppressed by default", func(t *testing.T) {
		gl, logs := newGormTestLogger(gormlogger.Error)
		gl.Trace(ctx, time.Now(), sqlOf("SELECT * FROM sync_cursors WHERE id = $1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("record-not-found logs when suppression is off", func(t *testing.T) {
		gl, logs := newGormTestLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))
		gl.Trace(ctx, time.Now(), sqlOf("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("slow queries promote to warn", func(t *testing.T) {
		gl, logs := newGormTestLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlOf("SELECT * FROM catalog_snapshots", 5000), nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Contains(t, entry.Message, "SLOW SQL")
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		gl, logs := newGormTestLogger(gormlogger.Silent)
		gl.Trace(ctx, time.Now(), sqlOf("SELECT 1", 1), assert.AnError)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("request id from context is carried", func(t *testing.T) {
		gl, logs := newGormTestLogger(gormlogger.Info)
		reqCtx := context.WithValue(ctx, RequestIDKey, "req-42")
		gl.Trace(reqCtx, time.Now(), sqlOf("SELECT 1", 1), nil)

		assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, logs := newGormTestLogger(gormlogger.Silent)

	upgraded := gl.LogMode(gormlogger.Info)
	upgraded.Info(context.Background(), "migration %s applied", "000003")

	// LogMode returns a copy; the original stays silent
	gl.Info(context.Background(), "still silent")
	assert.Equal(t, 1, logs.Len())
}

func TestGormLogger_LeveledMethods(t *testing.T) {
	gl, logs := newGormTestLogger(gormlogger.Warn)

	gl.Info(context.Background(), "dropped")
	gl.Warn(context.Background(), "kept %d", 1)
	gl.Error(context.Background(), "kept %d", 2)

	assert.Equal(t, 2, logs.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
