package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockWarning describes one product that needs restocking
type LowStockWarning struct {
	ProductRef   string          `json:"product_ref"`
	Name         string          `json:"name"`
	CurrentQty   decimal.Decimal `json:"current_qty"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Unit         string          `json:"unit"`
	Urgency      Urgency         `json:"urgency"`
}

// WarningFor builds the low-stock warning for a level known to be low
func WarningFor(s *StockLevel) LowStockWarning {
	return LowStockWarning{
		ProductRef:   s.ProductRef,
		Name:         s.Name,
		CurrentQty:   s.CurrentQty,
		ReorderLevel: s.ReorderLevel,
		Unit:         s.Unit,
		Urgency:      s.RestockUrgency(),
	}
}

// UsageRow summarizes ledger movement for one product over a period.
// Consumed aggregates negative deltas, Received positive ones; recounts
// contribute to neither since they correct rather than move stock.
type UsageRow struct {
	ProductRef string          `json:"product_ref"`
	Consumed   decimal.Decimal `json:"consumed"`
	Received   decimal.Decimal `json:"received"`
	NetChange  decimal.Decimal `json:"net_change"`
}

// UsageReport is ledger movement for a tenant over a period
type UsageReport struct {
	From time.Time  `json:"from"`
	To   time.Time  `json:"to"`
	Rows []UsageRow `json:"rows"`
}
