package registry

import (
	"time"

	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/shopspring/decimal"
)

// SupplierView merges a static supplier definition with the tenant's
// connection state for API responses
type SupplierView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Kind            string          `json:"kind"`
	RequiredConfig  []string        `json:"required_config"`
	MinOrderAmount  decimal.Decimal `json:"min_order_amount"`
	LeadTimeDays    int             `json:"lead_time_days"`
	Categories      []string        `json:"categories"`
	Status          string          `json:"status"`
	LastVerifiedAt  *time.Time      `json:"last_verified_at,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
	SupportsOrders  bool            `json:"supports_orders"`
	DocumentChannel bool            `json:"document_channel"`
}

// ConfigureRequest carries the credential fields for a supplier connection.
// Field values go straight to the vault and are never echoed back.
type ConfigureRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// toSupplierView builds the merged view. conn may be nil for suppliers the
// tenant has never configured.
func toSupplierView(def *supplier.SupplierDefinition, conn *supplier.Connection) SupplierView {
	view := SupplierView{
		ID:              def.ID,
		Name:            def.Name,
		Kind:            def.Kind.String(),
		RequiredConfig:  def.RequiredConfig,
		MinOrderAmount:  def.MinOrderAmount,
		LeadTimeDays:    def.LeadTimeDays,
		Categories:      def.Categories,
		Status:          supplier.ConnectionStatusUnconfigured.String(),
		SupportsOrders:  def.Kind.SupportsOrderSubmission(),
		DocumentChannel: def.Kind.UsesDocumentChannel(),
	}
	if conn != nil {
		view.Status = conn.Status.String()
		view.LastVerifiedAt = conn.LastVerifiedAt
		view.LastError = conn.LastError
	}
	return view
}
