package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Item is one order line. Unit price is captured at request time from the
// catalog the caller saw; the supplier's invoice remains authoritative.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes,omitempty"`
}

// Validate checks the line for usable values
func (i *Item) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return shared.NewDomainError("INVALID_ITEM", "Order item requires a product reference")
	}
	if i.Quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_ITEM", "Order item quantity must be positive")
	}
	if i.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_ITEM", "Order item unit price cannot be negative")
	}
	return nil
}

// LineTotal returns quantity * unit price
func (i *Item) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Contact is the ordering restaurant's contact block, forwarded to the
// supplier on the order or the rendered order sheet.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Request is the immutable input to order submission. ID is caller-generated
// and doubles as the idempotency key: resubmitting the same id must never
// produce a second record.
type Request struct {
	ID              string     `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	SupplierID      string     `json:"supplier_id"`
	Items           []Item     `json:"items"`
	DeliveryAddress string     `json:"delivery_address"`
	RequestedDate   *time.Time `json:"requested_date,omitempty"`
	Contact         Contact    `json:"contact"`
	Notes           string     `json:"notes,omitempty"`
	Urgent          bool       `json:"urgent"`
}

// Validate checks the request before a record is created. A request that
// fails validation is rejected outright and leaves no trace.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return shared.NewDomainError("INVALID_ORDER", "Order id cannot be empty")
	}
	if r.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_ORDER", "Order requires a tenant")
	}
	if strings.TrimSpace(r.SupplierID) == "" {
		return shared.NewDomainError("INVALID_ORDER", "Order requires a supplier")
	}
	if len(r.Items) == 0 {
		return shared.NewDomainError("INVALID_ORDER", "Order requires at least one item")
	}
	for idx := range r.Items {
		if err := r.Items[idx].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CheckMinimum rejects the request when its total falls short of the
// supplier's minimum order amount. A zero minimum means no floor.
func (r *Request) CheckMinimum(minimum decimal.Decimal) error {
	if minimum.IsPositive() && r.Total().LessThan(minimum) {
		return shared.NewDomainError("BELOW_MINIMUM_ORDER",
			"Order total "+r.Total().StringFixed(2)+" is below the supplier minimum "+minimum.StringFixed(2))
	}
	return nil
}

// Total returns the sum of all line totals
func (r *Request) Total() decimal.Decimal {
	total := decimal.Zero
	for idx := range r.Items {
		total = total.Add(r.Items[idx].LineTotal())
	}
	return total
}
