package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/restohub/backend/internal/domain/inventory"
)

// RestockRequest records a manual stock receipt. The idempotency key makes
// retried submissions safe; without one every call applies.
type RestockRequest struct {
	ProductRef     string           `json:"product_ref" binding:"required,max=200"`
	Quantity       decimal.Decimal  `json:"quantity" binding:"required"`
	Name           string           `json:"name" binding:"max=200"`
	Unit           string           `json:"unit" binding:"max=50"`
	ReorderLevel   *decimal.Decimal `json:"reorder_level"`
	IdempotencyKey string           `json:"idempotency_key" binding:"max=300"`
	Note           string           `json:"note" binding:"max=500"`
}

// StockLevelView is the read model for one tracked product
type StockLevelView struct {
	ProductRef     string          `json:"product_ref"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	CurrentQty     decimal.Decimal `json:"current_qty"`
	ReorderLevel   decimal.Decimal `json:"reorder_level"`
	Low            bool            `json:"low"`
	Urgency        string          `json:"urgency,omitempty"`
	LastMovementAt *time.Time      `json:"last_movement_at,omitempty"`
}

// UsageRowView is ledger movement for one product with stockout projection
type UsageRowView struct {
	ProductRef    string          `json:"product_ref"`
	Consumed      decimal.Decimal `json:"consumed"`
	Received      decimal.Decimal `json:"received"`
	NetChange     decimal.Decimal `json:"net_change"`
	AvgDailyUsage decimal.Decimal `json:"avg_daily_usage"`
	// DaysUntilStockout is nil for products with no consumption in the period
	DaysUntilStockout *int64 `json:"days_until_stockout,omitempty"`
}

// UsageReportView summarizes ledger movement over a reporting period
type UsageReportView struct {
	From time.Time      `json:"from"`
	To   time.Time      `json:"to"`
	Days int64          `json:"days"`
	Rows []UsageRowView `json:"rows"`
}

func toStockView(level *inventory.StockLevel) StockLevelView {
	view := StockLevelView{
		ProductRef:     level.ProductRef,
		Name:           level.Name,
		Unit:           level.Unit,
		CurrentQty:     level.CurrentQty,
		ReorderLevel:   level.ReorderLevel,
		Low:            level.IsLow(),
		LastMovementAt: level.LastMovementAt,
	}
	if view.Low {
		view.Urgency = level.RestockUrgency().String()
	}
	return view
}
