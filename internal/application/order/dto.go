package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restohub/backend/internal/domain/order"
)

// SubmitOrderRequest is the payload for placing an order. OrderID is chosen
// by the caller and acts as the idempotency key; resubmitting the same id
// returns the existing order instead of placing a second one.
type SubmitOrderRequest struct {
	OrderID         string           `json:"order_id" binding:"required,min=1,max=100"`
	SupplierID      string           `json:"supplier_id" binding:"required,min=1,max=100"`
	Items           []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress string           `json:"delivery_address"`
	RequestedDate   *time.Time       `json:"requested_date"`
	Contact         ContactInput     `json:"contact"`
	Notes           string           `json:"notes"`
	Urgent          bool             `json:"urgent"`
}

// OrderItemInput is one line of the order payload
type OrderItemInput struct {
	ProductID string          `json:"product_id" binding:"required,min=1,max=100"`
	Name      string          `json:"name" binding:"max=200"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Unit      string          `json:"unit" binding:"max=20"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes"`
}

// ContactInput is the ordering restaurant's contact block
type ContactInput struct {
	Name  string `json:"name" binding:"max=200"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"max=50"`
}

// AdvanceOrderRequest records an externally observed status change. Manual
// and email sources require an actor.
type AdvanceOrderRequest struct {
	Target     string     `json:"target" binding:"required,oneof=confirmed shipped delivered"`
	Source     string     `json:"source" binding:"required,oneof=api_poll webhook manual email"`
	Reference  string     `json:"reference"`
	Actor      string     `json:"actor"`
	Note       string     `json:"note"`
	ObservedAt *time.Time `json:"observed_at"`
}

// CancelOrderRequest carries the reason an order is being withdrawn
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// OrderView is the outward representation of an order record
type OrderView struct {
	OrderID         string                `json:"order_id"`
	SupplierID      string                `json:"supplier_id"`
	Status          string                `json:"status"`
	Channel         string                `json:"channel"`
	Items           []order.Item          `json:"items"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	ExternalRef     *string               `json:"external_ref,omitempty"`
	FailureReason   string                `json:"failure_reason,omitempty"`
	Urgent          bool                  `json:"urgent"`
	DeliveryAddress string                `json:"delivery_address,omitempty"`
	RequestedDate   *time.Time            `json:"requested_date,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	HasDocument     bool                  `json:"has_document"`
	Attempts        int                   `json:"attempts"`
	CreatedAt       time.Time             `json:"created_at"`
	SubmittedAt     *time.Time            `json:"submitted_at,omitempty"`
	ConfirmedAt     *time.Time            `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time            `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	FailedAt        *time.Time            `json:"failed_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	LastEvidence    *order.StatusEvidence `json:"last_evidence,omitempty"`
}

// OrderListResult is a page of orders plus the total match count
type OrderListResult struct {
	Orders []OrderView `json:"orders"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// DocumentLink points at an archived order sheet for download
type DocumentLink struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toOrderView(r *order.Record) OrderView {
	return OrderView{
		OrderID:         r.OrderID,
		SupplierID:      r.SupplierID,
		Status:          r.Status.String(),
		Channel:         r.Channel.String(),
		Items:           r.Items,
		TotalAmount:     r.TotalAmount,
		ExternalRef:     r.ExternalRef,
		FailureReason:   r.FailureReason,
		Urgent:          r.Urgent,
		DeliveryAddress: r.DeliveryAddress,
		RequestedDate:   r.RequestedDate,
		Notes:           r.Notes,
		HasDocument:     r.DocumentKey != "",
		Attempts:        r.Attempts,
		CreatedAt:       r.CreatedAt,
		SubmittedAt:     r.SubmittedAt,
		ConfirmedAt:     r.ConfirmedAt,
		ShippedAt:       r.ShippedAt,
		DeliveredAt:     r.DeliveredAt,
		FailedAt:        r.FailedAt,
		CancelledAt:     r.CancelledAt,
		LastEvidence:    r.LastEvidence,
	}
}

func (r *SubmitOrderRequest) toDomainRequest(tenantID uuid.UUID) *order.Request {
	items := make([]order.Item, 0, len(r.Items))
	for _, in := range r.Items {
		items = append(items, order.Item{
			ProductID: in.ProductID,
			Name:      in.Name,
			Quantity:  in.Quantity,
			Unit:      in.Unit,
			UnitPrice: in.UnitPrice,
			Notes:     in.Notes,
		})
	}
	return &order.Request{
		ID:              r.OrderID,
		TenantID:        tenantID,
		SupplierID:      r.SupplierID,
		Items:           items,
		DeliveryAddress: r.DeliveryAddress,
		RequestedDate:   r.RequestedDate,
		Contact: order.Contact{
			Name:  r.Contact.Name,
			Email: r.Contact.Email,
			Phone: r.Contact.Phone,
		},
		Notes:  r.Notes,
		Urgent: r.Urgent,
	}
}

func (r *AdvanceOrderRequest) toEvidence() order.StatusEvidence {
	observedAt := time.Now()
	if r.ObservedAt != nil {
		observedAt = *r.ObservedAt
	}
	return order.StatusEvidence{
		Source:     order.EvidenceSource(r.Source),
		Reference:  r.Reference,
		Actor:      r.Actor,
		Note:       r.Note,
		ObservedAt: observedAt,
	}
}
