package persistence

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/restohub/backend/internal/domain/inventory"
	"github.com/restohub/backend/internal/domain/shared"
)

// GormLedger implements inventory.Ledger using GORM. The entry insert and the
// stock level update share one transaction, and the unique index on the
// idempotency key makes a replayed mutation collide instead of double apply.
type GormLedger struct {
	db             *gorm.DB
	eventPublisher shared.EventPublisher
}

// NewGormLedger creates a new GormLedger
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// SetEventPublisher sets the event publisher for low-stock events
func (l *GormLedger) SetEventPublisher(publisher shared.EventPublisher) {
	l.eventPublisher = publisher
}

// Apply executes the mutation exactly once. The stock row is locked for the
// duration of the transaction so concurrent sync cycles serialize on the
// product rather than lose an update.
func (l *GormLedger) Apply(ctx context.Context, m *inventory.Mutation) error {
	if err := m.Validate(); err != nil {
		return err
	}

	var level inventory.StockLevel
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&inventory.LedgerEntry{}).
			Where("idempotency_key = ?", m.IdempotencyKey).
			Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return inventory.ErrAlreadyApplied
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND product_ref = ?", m.TenantID, m.ProductRef).
			First(&level).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First movement for an untracked product opens tracking at zero
			fresh, cerr := inventory.NewStockLevel(m.TenantID, m.ProductRef, m.ProductRef, "", decimal.Zero)
			if cerr != nil {
				return cerr
			}
			level = *fresh
		case err != nil:
			return err
		}

		if err := level.Apply(m); err != nil {
			return err
		}

		if err := tx.Create(inventory.NewLedgerEntry(m)).Error; err != nil {
			// A racing transaction can pass the count check before either
			// inserts; the unique index settles who won
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return inventory.ErrAlreadyApplied
			}
			return err
		}

		return tx.Save(&level).Error
	})
	if err != nil {
		return err
	}

	if l.eventPublisher != nil {
		if events := level.GetDomainEvents(); len(events) > 0 {
			// delivery is best effort; a missed warning resurfaces on the
			// next movement that leaves the product low
			_ = l.eventPublisher.Publish(ctx, events...)
			level.ClearDomainEvents()
		}
	}
	return nil
}

// Ensure GormLedger implements inventory.Ledger
var _ inventory.Ledger = (*GormLedger)(nil)
