package order

import (
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventOrderSubmitted = "order.submitted"
	EventOrderFailed    = "order.failed"
)

// SubmittedEvent is raised once an order has been handed to the supplier
type SubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID     string          `json:"order_id"`
	SupplierID  string          `json:"supplier_id"`
	Channel     Channel         `json:"channel"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ExternalRef *string         `json:"external_ref,omitempty"`
}

// NewSubmittedEvent creates a new order submitted event
func NewSubmittedEvent(r *Record) *SubmittedEvent {
	return &SubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderSubmitted, "OrderRecord", r.ID, r.TenantID),
		OrderID:         r.OrderID,
		SupplierID:      r.SupplierID,
		Channel:         r.Channel,
		TotalAmount:     r.TotalAmount,
		ExternalRef:     r.ExternalRef,
	}
}

// FailedEvent is raised when an order terminates without reaching the supplier
type FailedEvent struct {
	shared.BaseDomainEvent
	OrderID    string `json:"order_id"`
	SupplierID string `json:"supplier_id"`
	Reason     string `json:"reason"`
	Attempts   int    `json:"attempts"`
}

// NewFailedEvent creates a new order failed event
func NewFailedEvent(r *Record, reason string) *FailedEvent {
	return &FailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderFailed, "OrderRecord", r.ID, r.TenantID),
		OrderID:         r.OrderID,
		SupplierID:      r.SupplierID,
		Reason:          reason,
		Attempts:        r.Attempts,
	}
}
