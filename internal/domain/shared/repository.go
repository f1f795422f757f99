package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the generic persistence contract for an aggregate type.
type Repository[T Entity] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindAll(ctx context.Context, filter Filter) (*Paginated[T], error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter Filter) (int64, error)
}

// TenantRepository narrows lookups to one tenant. Supplier connections,
// orders and stock rows are all tenant-owned, so most repositories in the
// platform implement this rather than the plain Repository.
type TenantRepository[T Entity] interface {
	Repository[T]
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*T, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter Filter) (*Paginated[T], error)
}

// Filter carries pagination, ordering and free-form predicates for list
// queries. OrderBy values are validated against per-model allowlists in
// the persistence layer before they reach SQL.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// DefaultFilter returns the list defaults: first page of twenty, newest
// first.
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Paginated is one page of results plus the totals a client needs to
// render paging controls.
type Paginated[T Entity] struct {
	Items      []*T  `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated assembles a page from a result slice and the overall count.
func NewPaginated[T Entity](items []*T, total int64, page, pageSize int) *Paginated[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (int(total) + pageSize - 1) / pageSize
	}
	return &Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
