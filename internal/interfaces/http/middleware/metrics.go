package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/restohub/backend/internal/infrastructure/telemetry"
)

// httpMetrics holds the request-level instruments
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
}

// Metrics records request count and latency per route and status. Routes are
// recorded by their gin pattern, never the raw path, so tenant ids and order
// ids stay out of metric labels.
func Metrics(mp *telemetry.MeterProvider) gin.HandlerFunc {
	if mp == nil || !mp.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}

	meter := mp.Meter("restohub/http")
	requestTotal, err := telemetry.NewCounter(meter,
		"http.server.requests", "Total HTTP requests", "{request}")
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}
	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http.server.duration",
		Description: "HTTP request duration",
		Unit:        "s",
	})
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	m := &httpMetrics{requestTotal: requestTotal, requestDuration: requestDuration}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
		}
		ctx := c.Request.Context()
		m.requestTotal.Inc(ctx, attrs...)
		m.requestDuration.RecordDuration(ctx, time.Since(start), attrs...)
	}
}
