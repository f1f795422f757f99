package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Ledger errors
var (
	// ErrAlreadyApplied means a mutation with the same idempotency key has
	// already taken effect. Callers treat this as success.
	ErrAlreadyApplied = errors.New("inventory: mutation already applied")
)

// Mutation is one stock movement to be applied exactly once. The idempotency
// key is the at-most-once guarantee: two mutations with the same key have the
// same effect as one, whichever arrives first wins.
type Mutation struct {
	// TenantID scopes the mutation
	TenantID uuid.UUID
	// ProductRef identifies the product being moved
	ProductRef string
	// Delta is the signed quantity change, ignored when Absolute is set
	Delta decimal.Decimal
	// Absolute, when set, replaces the level with a counted quantity
	Absolute *decimal.Decimal
	// IdempotencyKey uniquely identifies this mutation across retries
	IdempotencyKey string
	// Source names where the mutation came from (pos system, stream, order)
	Source string
	// OccurredAt is when the underlying movement happened
	OccurredAt time.Time
}

// Validate checks the mutation is structurally applicable
func (m *Mutation) Validate() error {
	if m.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if strings.TrimSpace(m.ProductRef) == "" {
		return shared.NewDomainError("INVALID_PRODUCT", "Product reference cannot be empty")
	}
	if strings.TrimSpace(m.IdempotencyKey) == "" {
		return shared.NewDomainError("INVALID_MUTATION", "Idempotency key cannot be empty")
	}
	if m.Absolute != nil && m.Absolute.IsNegative() {
		return shared.NewDomainError("INVALID_MUTATION", "Absolute quantity cannot be negative")
	}
	if m.OccurredAt.IsZero() {
		return shared.NewDomainError("INVALID_MUTATION", "Mutation requires an occurrence time")
	}
	return nil
}

// LedgerEntry is the immutable record of one applied mutation. The unique
// index on the idempotency key is what makes Apply at-most-once: a replayed
// mutation collides on insert and never touches the stock level again.
type LedgerEntry struct {
	shared.BaseEntity
	TenantID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_tenant_time,priority:1"`
	ProductRef     string           `gorm:"type:varchar(200);not null;index"`
	Delta          decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Absolute       *decimal.Decimal `gorm:"type:decimal(18,4)"`
	IdempotencyKey string           `gorm:"type:varchar(300);not null;uniqueIndex"`
	Source         string           `gorm:"type:varchar(200)"`
	OccurredAt     time.Time        `gorm:"type:timestamptz;not null;index:idx_ledger_tenant_time,priority:2"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "inventory_ledger_entries"
}

// NewLedgerEntry records an applied mutation
func NewLedgerEntry(m *Mutation) *LedgerEntry {
	return &LedgerEntry{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       m.TenantID,
		ProductRef:     m.ProductRef,
		Delta:          m.Delta,
		Absolute:       m.Absolute,
		IdempotencyKey: m.IdempotencyKey,
		Source:         m.Source,
		OccurredAt:     m.OccurredAt,
	}
}

// Ledger applies stock mutations with an at-most-once guarantee per
// idempotency key. Implementations must make the entry insert and the stock
// level update atomic; a mutation either fully takes effect or not at all.
type Ledger interface {
	// Apply executes the mutation. A duplicate idempotency key returns
	// ErrAlreadyApplied and changes nothing.
	Apply(ctx context.Context, m *Mutation) error
}
