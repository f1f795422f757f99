package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Urgency grades how badly a product needs restocking
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// String returns the string representation
func (u Urgency) String() string {
	return string(u)
}

// StockLevel is the running quantity of one product at one tenant. The
// quantity moves only through Apply, which takes a ledger mutation; writing
// it any other way would break the idempotency guarantee the ledger provides.
type StockLevel struct {
	shared.TenantAggregateRoot
	ProductRef     string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_stock_tenant_product,priority:2"`
	Name           string          `gorm:"type:varchar(200)"`
	Unit           string          `gorm:"type:varchar(50)"`
	CurrentQty     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderLevel   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastMovementAt *time.Time
}

// TableName returns the table name for GORM
func (StockLevel) TableName() string {
	return "stock_levels"
}

// NewStockLevel opens tracking for a product at zero quantity
func NewStockLevel(tenantID uuid.UUID, productRef, name, unit string, reorderLevel decimal.Decimal) (*StockLevel, error) {
	if productRef == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product reference cannot be empty")
	}
	if reorderLevel.IsNegative() {
		return nil, shared.NewDomainError("INVALID_REORDER_LEVEL", "Reorder level cannot be negative")
	}

	return &StockLevel{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductRef:          productRef,
		Name:                name,
		Unit:                unit,
		CurrentQty:          decimal.Zero,
		ReorderLevel:        reorderLevel,
	}, nil
}

// SetReorderLevel updates the restock threshold
func (s *StockLevel) SetReorderLevel(level decimal.Decimal) error {
	if level.IsNegative() {
		return shared.NewDomainError("INVALID_REORDER_LEVEL", "Reorder level cannot be negative")
	}

	s.ReorderLevel = level
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// Apply executes a validated ledger mutation against the level. Deltas may
// drive the quantity negative; a sale recorded before its delivery is a
// timing gap, not an error, and the next recount straightens it out.
func (s *StockLevel) Apply(m *Mutation) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if m.Absolute != nil {
		s.CurrentQty = *m.Absolute
	} else {
		s.CurrentQty = s.CurrentQty.Add(m.Delta)
	}
	s.LastMovementAt = &m.OccurredAt
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.raiseIfLow()

	return nil
}

func (s *StockLevel) raiseIfLow() {
	if s.IsLow() {
		s.AddDomainEvent(NewStockLevelLowEvent(s))
	}
}

// IsLow reports whether the product is at or below its reorder level.
// Products without a reorder level never report low.
func (s *StockLevel) IsLow() bool {
	if s.ReorderLevel.IsZero() {
		return false
	}
	return s.CurrentQty.LessThanOrEqual(s.ReorderLevel)
}

// RestockUrgency grades the shortfall against the reorder level
func (s *StockLevel) RestockUrgency() Urgency {
	if s.ReorderLevel.IsZero() {
		return UrgencyLow
	}

	ratio := s.CurrentQty.Div(s.ReorderLevel)
	switch {
	case ratio.LessThanOrEqual(decimal.NewFromFloat(0.25)):
		return UrgencyCritical
	case ratio.LessThanOrEqual(decimal.NewFromFloat(0.5)):
		return UrgencyHigh
	case ratio.LessThanOrEqual(decimal.NewFromFloat(0.75)):
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
