package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/shared"
)

// OrderMetricsRecorder records order lifecycle outcomes. The telemetry
// layer's business metrics satisfy this.
type OrderMetricsRecorder interface {
	// RecordOrderSubmitted counts one successful submission
	RecordOrderSubmitted(ctx context.Context, tenantID uuid.UUID, supplierID, channel string)
	// RecordOrderFailed counts one terminal failure
	RecordOrderFailed(ctx context.Context, tenantID uuid.UUID, supplierID, errorCode string)
}

// OrderMetricsHandler turns order lifecycle events into log lines and
// counters. It rides the event bus so the order service stays free of
// telemetry concerns.
type OrderMetricsHandler struct {
	logger  *zap.Logger
	metrics OrderMetricsRecorder
}

// NewOrderMetricsHandler creates a handler that only logs
func NewOrderMetricsHandler(logger *zap.Logger) *OrderMetricsHandler {
	return &OrderMetricsHandler{logger: logger}
}

// WithRecorder sets the metrics recorder
func (h *OrderMetricsHandler) WithRecorder(metrics OrderMetricsRecorder) *OrderMetricsHandler {
	h.metrics = metrics
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *OrderMetricsHandler) EventTypes() []string {
	return []string{order.EventOrderSubmitted, order.EventOrderFailed}
}

// Handle processes an order lifecycle event
func (h *OrderMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch evt := event.(type) {
	case *order.SubmittedEvent:
		h.logger.Info("order handed to supplier",
			zap.String("tenant_id", evt.TenantID().String()),
			zap.String("order_id", evt.OrderID),
			zap.String("supplier_id", evt.SupplierID),
			zap.String("channel", evt.Channel.String()),
			zap.String("total_amount", evt.TotalAmount.String()))
		if h.metrics != nil {
			h.metrics.RecordOrderSubmitted(ctx, evt.TenantID(), evt.SupplierID, evt.Channel.String())
		}
	case *order.FailedEvent:
		h.logger.Warn("order terminated without reaching supplier",
			zap.String("tenant_id", evt.TenantID().String()),
			zap.String("order_id", evt.OrderID),
			zap.String("supplier_id", evt.SupplierID),
			zap.Int("attempts", evt.Attempts),
			zap.String("reason", evt.Reason))
		if h.metrics != nil {
			// the reason is free text, so the counter gets a fixed label
			h.metrics.RecordOrderFailed(ctx, evt.TenantID(), evt.SupplierID, "submission_failed")
		}
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// Ensure OrderMetricsHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderMetricsHandler)(nil)
