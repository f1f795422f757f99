package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/vault"
)

// Endpoint paths of the uniform supplier REST convention. Suppliers onboard
// by exposing these routes under their api_base_url; per-supplier quirks stay
// on the supplier's side of the boundary.
const (
	restCatalogPath     = "/catalog"
	restOrdersPath      = "/orders"
	restOrderStatusPath = "/orders/%s"
	restPingPath        = "/ping"
)

// restProduct is one catalog item on the wire. InStock is a pointer so an
// absent field defaults to available rather than zero.
type restProduct struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit"`
	Category     string          `json:"category"`
	InStock      *bool           `json:"in_stock"`
	MinOrderQty  decimal.Decimal `json:"min_order_qty"`
	LeadTimeDays int             `json:"lead_time_days"`
}

type restCatalogResponse struct {
	Products []restProduct `json:"products"`
}

type restContact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type restOrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes,omitempty"`
}

type restOrderPayload struct {
	OrderID         string            `json:"order_id"`
	Account         map[string]string `json:"account,omitempty"`
	Items           []restOrderItem   `json:"items"`
	DeliveryAddress string            `json:"delivery_address,omitempty"`
	RequestedDate   string            `json:"requested_date,omitempty"`
	Contact         restContact       `json:"contact"`
	Notes           string            `json:"notes,omitempty"`
	Urgent          bool              `json:"urgent"`
}

type restOrderAck struct {
	Reference  string `json:"reference"`
	AcceptedAt string `json:"accepted_at"`
	Message    string `json:"message"`
}

type restStatusResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

type restErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// apiBaseURL extracts the supplier's API root from the static definition
func apiBaseURL(conn *integration.ConnectionContext) (string, error) {
	if conn.Definition == nil || strings.TrimSpace(conn.Definition.APIBaseURL) == "" {
		return "", fmt.Errorf("%w: supplier definition has no api_base_url", integration.ErrNotConfigured)
	}
	return strings.TrimRight(conn.Definition.APIBaseURL, "/"), nil
}

// accountFields returns the non-secret credential fields that identify the
// tenant's account with the supplier (location, account number, restaurant
// id). Secrets are stripped so they travel only in auth headers.
func accountFields(creds vault.Credentials, secrets ...string) map[string]string {
	out := make(map[string]string, len(creds))
	for name, value := range creds {
		out[name] = value
	}
	for _, s := range secrets {
		delete(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// buildOrderPayload converts a validated order request to the wire shape
func buildOrderPayload(req *order.Request, account map[string]string) *restOrderPayload {
	items := make([]restOrderItem, 0, len(req.Items))
	for i := range req.Items {
		item := &req.Items[i]
		items = append(items, restOrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			Notes:     item.Notes,
		})
	}

	payload := &restOrderPayload{
		OrderID:         req.ID,
		Account:         account,
		Items:           items,
		DeliveryAddress: req.DeliveryAddress,
		Contact: restContact{
			Name:  req.Contact.Name,
			Email: req.Contact.Email,
			Phone: req.Contact.Phone,
		},
		Notes:  req.Notes,
		Urgent: req.Urgent,
	}
	if req.RequestedDate != nil {
		payload.RequestedDate = req.RequestedDate.Format("2006-01-02")
	}
	return payload
}

// mapRestProducts converts wire products to the domain shape. A row without
// an identifier or name marks the whole body malformed; partial catalogs are
// worse than failed fetches because they silently shrink the product list.
func mapRestProducts(rows []restProduct) ([]integration.Product, error) {
	products := make([]integration.Product, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if strings.TrimSpace(row.ProductID) == "" {
			return nil, fmt.Errorf("product at index %d has no product_id", i)
		}
		if strings.TrimSpace(row.Name) == "" {
			return nil, fmt.Errorf("product %s has no name", row.ProductID)
		}

		inStock := true
		if row.InStock != nil {
			inStock = *row.InStock
		}

		products = append(products, integration.Product{
			ProductID:    row.ProductID,
			Name:         row.Name,
			Price:        row.Price,
			Unit:         row.Unit,
			Category:     row.Category,
			InStock:      inStock,
			MinOrderQty:  row.MinOrderQty,
			LeadTimeDays: row.LeadTimeDays,
		})
	}
	return products, nil
}

// mapRemoteOrderStatus translates a supplier status string to the lifecycle
// model. The second return reports whether the string was recognized.
func mapRemoteOrderStatus(raw string) (order.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "submitted", "received", "pending", "processing":
		return order.StatusSubmitted, true
	case "confirmed", "accepted":
		return order.StatusConfirmed, true
	case "shipped", "dispatched", "in_transit":
		return order.StatusShipped, true
	case "delivered", "completed":
		return order.StatusDelivered, true
	case "cancelled":
		return order.StatusCancelled, true
	case "rejected", "failed":
		return order.StatusFailed, true
	default:
		return "", false
	}
}

// rejectionDetail pulls a human-readable reason out of an error response
// body, falling back to the HTTP status.
func rejectionDetail(resp *response) string {
	var errResp restErrorResponse
	if err := json.Unmarshal(resp.body, &errResp); err == nil {
		if errResp.Error != "" {
			return errResp.Error
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	return fmt.Sprintf("HTTP %d", resp.status)
}

// parseAckTime reads the supplier's acceptance timestamp, defaulting to now
// when absent or unparsable.
func parseAckTime(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Now()
}
