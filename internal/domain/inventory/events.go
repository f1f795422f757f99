package inventory

import (
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventStockLevelLow = "inventory.stock_level_low"
)

// StockLevelLowEvent is raised when an applied mutation leaves a product at
// or below its reorder level
type StockLevelLowEvent struct {
	shared.BaseDomainEvent
	ProductRef   string          `json:"product_ref"`
	Name         string          `json:"name"`
	CurrentQty   decimal.Decimal `json:"current_qty"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Unit         string          `json:"unit"`
	Urgency      Urgency         `json:"urgency"`
}

// NewStockLevelLowEvent creates a new stock level low event
func NewStockLevelLowEvent(s *StockLevel) *StockLevelLowEvent {
	return &StockLevelLowEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStockLevelLow, "StockLevel", s.ID, s.TenantID),
		ProductRef:      s.ProductRef,
		Name:            s.Name,
		CurrentQty:      s.CurrentQty,
		ReorderLevel:    s.ReorderLevel,
		Unit:            s.Unit,
		Urgency:         s.RestockUrgency(),
	}
}
