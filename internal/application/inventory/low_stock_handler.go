package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/inventory"
	"github.com/restohub/backend/internal/domain/shared"
)

// LowStockHandler reacts to stock dropping to its reorder level. The warning
// always lands in the log; a notifier, when configured, carries it further.
type LowStockHandler struct {
	logger   *zap.Logger
	notifier RestockNotifier
}

// RestockNotifier delivers low-stock alerts to the restaurant's staff.
// Implementations can back onto mail, chat or anything else reachable.
type RestockNotifier interface {
	// NotifyLowStock sends one low-stock alert
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// LowStockAlert is the notification payload for one product running low
type LowStockAlert struct {
	TenantID     string `json:"tenant_id"`
	ProductRef   string `json:"product_ref"`
	Name         string `json:"name"`
	CurrentQty   string `json:"current_qty"`
	ReorderLevel string `json:"reorder_level"`
	Unit         string `json:"unit"`
	Urgency      string `json:"urgency"`
}

// NewLowStockHandler creates a handler that only logs
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	return &LowStockHandler{logger: logger}
}

// WithNotifier sets the notifier for outbound alerts
func (h *LowStockHandler) WithNotifier(notifier RestockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventStockLevelLow}
}

// Handle processes a StockLevelLowEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	lowEvent, ok := event.(*inventory.StockLevelLowEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventStockLevelLow),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventStockLevelLow, event.EventType())
	}

	h.logger.Warn("stock at or below reorder level",
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("product_ref", lowEvent.ProductRef),
		zap.String("current_qty", lowEvent.CurrentQty.String()),
		zap.String("reorder_level", lowEvent.ReorderLevel.String()),
		zap.String("urgency", lowEvent.Urgency.String()))

	if h.notifier == nil {
		return nil
	}

	alert := LowStockAlert{
		TenantID:     event.TenantID().String(),
		ProductRef:   lowEvent.ProductRef,
		Name:         lowEvent.Name,
		CurrentQty:   lowEvent.CurrentQty.String(),
		ReorderLevel: lowEvent.ReorderLevel.String(),
		Unit:         lowEvent.Unit,
		Urgency:      lowEvent.Urgency.String(),
	}
	if err := h.notifier.NotifyLowStock(ctx, alert); err != nil {
		// a lost notification must not fail the event; the warning is
		// already in the log
		h.logger.Error("low stock notification failed",
			zap.String("product_ref", alert.ProductRef),
			zap.Error(err))
	}
	return nil
}

// Ensure LowStockHandler implements shared.EventHandler
var _ shared.EventHandler = (*LowStockHandler)(nil)

// LoggingRestockNotifier logs alerts. This is the default wiring until a
// real channel is configured.
type LoggingRestockNotifier struct {
	logger *zap.Logger
}

// NewLoggingRestockNotifier creates a new logging notifier
func NewLoggingRestockNotifier(logger *zap.Logger) *LoggingRestockNotifier {
	return &LoggingRestockNotifier{logger: logger}
}

// NotifyLowStock logs the alert
func (n *LoggingRestockNotifier) NotifyLowStock(ctx context.Context, alert LowStockAlert) error {
	n.logger.Warn("RESTOCK NEEDED",
		zap.String("product_ref", alert.ProductRef),
		zap.String("name", alert.Name),
		zap.String("current_qty", alert.CurrentQty),
		zap.String("reorder_level", alert.ReorderLevel),
		zap.String("urgency", alert.Urgency))
	return nil
}

// Ensure LoggingRestockNotifier implements RestockNotifier
var _ RestockNotifier = (*LoggingRestockNotifier)(nil)
