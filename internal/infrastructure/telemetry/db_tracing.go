package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures per-query span enrichment.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL includes bind variables in span statements; never enable
	// in production, credential handles travel through queries
	LogFullSQL       bool
	SlowQueryThresh  time.Duration
	DBSystem         string
	WithoutVariables bool
}

// DefaultDBTracingConfig returns the secure defaults.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin is a gorm plugin that layers otelgorm spans with slow-query
// flagging and error status. Install with db.Use.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin; it is inert until Initialize runs.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// Name implements gorm.Plugin.
func (p *DBTracingPlugin) Name() string {
	return "restohub:db_tracing"
}

// Initialize implements gorm.Plugin: it installs otelgorm and then the
// timing callbacks that enrich each query span.
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	if !p.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// registerTimingCallbacks hooks every gorm operation: before marks the start
// time, after enriches the otelgorm span. The gorm callback API types are
// unexported, so each processor is wired explicitly.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("db_tracing:before_create", p.before); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("db_tracing:before_query", p.before); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("db_tracing:before_update", p.before); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("db_tracing:before_delete", p.before); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("db_tracing:before_row", p.before); err != nil {
		return err
	}
	if err := db.Callback().Raw().Before("gorm:raw").Register("db_tracing:before_raw", p.before); err != nil {
		return err
	}

	if err := db.Callback().Create().After("gorm:create").Register("db_tracing:after_create", p.after); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("db_tracing:after_query", p.after); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("db_tracing:after_update", p.after); err != nil {
		return err
	}
	if err := db.Callback().Delete().After("gorm:delete").Register("db_tracing:after_delete", p.after); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("db_tracing:after_row", p.after); err != nil {
		return err
	}
	if err := db.Callback().Raw().After("gorm:raw").Register("db_tracing:after_raw", p.after); err != nil {
		return err
	}

	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = WithQueryStartTime(db.Statement.Context)
	}
}

// after annotates the active span with row counts, the table, errors, and a
// slow-query event when the threshold is crossed. Record-not-found is an
// answer, not a failure, and never marks the span errored.
func (p *DBTracingPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

// queryStartTimeKey carries the statement start time between the before and
// after callbacks.
const queryStartTimeKey contextKey = "db_query_start_time"

// WithQueryStartTime stamps the context with the current time for slow-query
// accounting.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}
