package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Entry is one cached supplier product. Entries are disposable: they are
// replaced wholesale on refresh and are never the source of truth for a
// price beyond their validity window.
type Entry struct {
	shared.TenantAggregateRoot
	SupplierID  string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_catalog_tenant_product,priority:2;index:idx_catalog_supplier"`
	ProductID   string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_catalog_tenant_product,priority:3"`
	Name        string          `gorm:"type:varchar(300);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit        string          `gorm:"type:varchar(50)"`
	Category    string          `gorm:"type:varchar(100);index"`
	InStock     bool            `gorm:"not null;default:true"`
	MinOrderQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	LeadTimeDays int            `gorm:"not null;default:0"`
	FetchedAt   time.Time       `gorm:"not null"`
	TTLSeconds  int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "catalog_entries"
}

// NewEntry builds a cache entry from adapter output
func NewEntry(tenantID uuid.UUID, supplierID, productID, name string, price decimal.Decimal, ttl time.Duration) (*Entry, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY", "Catalog entry requires a supplier id")
	}
	if strings.TrimSpace(productID) == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY", "Catalog entry requires a product id")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY", "Catalog entry requires a product name")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_ENTRY", "Catalog entry price cannot be negative")
	}
	if ttl <= 0 {
		return nil, shared.NewDomainError("INVALID_ENTRY", "Catalog entry TTL must be positive")
	}

	return &Entry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SupplierID:          supplierID,
		ProductID:           productID,
		Name:                name,
		Price:               price,
		MinOrderQty:         decimal.NewFromInt(1),
		FetchedAt:           time.Now(),
		TTLSeconds:          int(ttl.Seconds()),
	}, nil
}

// ExpiresAt returns the instant the entry stops being fresh
func (e *Entry) ExpiresAt() time.Time {
	return e.FetchedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
}

// IsFresh reports whether the entry is still inside its validity window
func (e *Entry) IsFresh(now time.Time) bool {
	return now.Before(e.ExpiresAt())
}

// ProductSet is the result of a catalog lookup. Stale is set when the cache
// served entries past their TTL because a refresh attempt failed; callers
// must treat stale prices as indicative only.
type ProductSet struct {
	SupplierID string    `json:"supplier_id"`
	Entries    []Entry   `json:"entries"`
	Stale      bool      `json:"stale"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// IsEmpty reports whether the set carries no entries
func (s *ProductSet) IsEmpty() bool {
	return len(s.Entries) == 0
}
