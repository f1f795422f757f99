package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/domain/vault"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Capabilities
// ---------------------------------------------------------------------------

// Capability names one operation a provider adapter may support
type Capability string

const (
	// CapabilityCatalogFetch means the adapter can retrieve the supplier's product list
	CapabilityCatalogFetch Capability = "catalog_fetch"
	// CapabilityOrderSubmit means the adapter can push an order to the supplier
	CapabilityOrderSubmit Capability = "order_submit"
	// CapabilityStatusCheck means the adapter can query the state of a submitted order
	CapabilityStatusCheck Capability = "status_check"
	// CapabilityDocumentDelivery means the adapter hands orders over as rendered documents
	CapabilityDocumentDelivery Capability = "document_delivery"
)

// CapabilitySet is the set of operations one adapter supports
type CapabilitySet map[Capability]bool

// NewCapabilitySet builds a set from the listed capabilities
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Has reports whether the capability is in the set
func (s CapabilitySet) Has(c Capability) bool {
	return s[c]
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// ConnectionContext carries everything an adapter needs to act on behalf of
// one tenant's supplier connection. It is assembled per call from the static
// definition and the vault; adapters never load credentials themselves.
type ConnectionContext struct {
	// TenantID identifies the tenant the call runs for
	TenantID uuid.UUID
	// Definition is the static descriptor of the supplier
	Definition *supplier.SupplierDefinition
	// Credentials is the resolved configuration for this connection
	Credentials vault.Credentials
}

// Validate checks the context carries the definition's required fields
func (c *ConnectionContext) Validate() error {
	if c.Definition == nil {
		return ErrNotConfigured
	}
	if missing := c.Definition.MissingConfig(c.Credentials); len(missing) > 0 {
		return ErrNotConfigured
	}
	return nil
}

// Product is a catalog item exactly as the supplier reports it. The catalog
// layer converts products into cached entries; adapters never touch the cache.
type Product struct {
	// ProductID is the supplier's identifier for the item
	ProductID string
	// Name is the display name
	Name string
	// Price is the unit price in the supplier's currency
	Price decimal.Decimal
	// Unit is the order unit (kg, case, each)
	Unit string
	// Category is the supplier's category label
	Category string
	// InStock reports availability as of the fetch
	InStock bool
	// MinOrderQty is the smallest orderable quantity, zero when unconstrained
	MinOrderQty decimal.Decimal
	// LeadTimeDays overrides the definition lead time when the supplier reports one
	LeadTimeDays int
}

// OrderAck is the supplier's acknowledgment of a submitted order
type OrderAck struct {
	// ExternalRef is the supplier-assigned order reference
	ExternalRef string
	// AcceptedAt is when the supplier accepted the order
	AcceptedAt time.Time
	// Message is optional human-readable detail from the supplier
	Message string
}

// StatusReport is the outcome of one external status check
type StatusReport struct {
	// Status is the lifecycle state the supplier reports, mapped to our model
	Status order.Status
	// Evidence records where the signal came from
	Evidence order.StatusEvidence
}

// Document is a rendered order sheet ready for delivery or archival
type Document struct {
	// Filename is the suggested name for the file
	Filename string
	// ContentType is the MIME type of the content
	ContentType string
	// Content is the document bytes
	Content []byte
}

// ---------------------------------------------------------------------------
// ProviderAdapter Port Interface
// ---------------------------------------------------------------------------

// ProviderAdapter defines the port interface every supplier connector
// implements, one adapter per integration kind. The interface is defined in
// the domain layer; concrete implementations (OAuth2 API, keyed API, portal
// scraper, email, manual) live in the infrastructure layer.
//
// Operations an adapter does not support return ErrCapabilityNotSupported so
// callers can branch on capability without type switches.
type ProviderAdapter interface {
	// Kind returns the integration kind this adapter handles
	Kind() supplier.IntegrationKind

	// Capabilities returns the operations this adapter supports
	Capabilities() CapabilitySet

	// TestConnection verifies the connection context can reach the supplier.
	// Failures return ErrNotConfigured or ErrConnectionFailed.
	TestConnection(ctx context.Context, conn *ConnectionContext) error

	// FetchCatalog retrieves the supplier's current product list.
	// Failures return ErrFetchFailed, or ErrSchemaChanged for scraped portals
	// whose page structure no longer matches expectations.
	FetchCatalog(ctx context.Context, conn *ConnectionContext) ([]Product, error)

	// SubmitOrder pushes an order to the supplier and returns its acknowledgment.
	// A definitive supplier refusal returns ErrOrderRejected; transport
	// failures return ErrOrderUnreachable and are safe to retry.
	SubmitOrder(ctx context.Context, conn *ConnectionContext, req *order.Request) (*OrderAck, error)

	// CheckOrderStatus queries the supplier for the state of a submitted order
	CheckOrderStatus(ctx context.Context, conn *ConnectionContext, externalRef string) (*StatusReport, error)

	// DeliverDocument hands a rendered order sheet to the supplier on document
	// channels (email dispatch, manual download staging).
	DeliverDocument(ctx context.Context, conn *ConnectionContext, req *order.Request, doc *Document) error
}

// AdapterRegistry provides access to the configured provider adapters.
// One adapter is registered per integration kind at startup.
type AdapterRegistry interface {
	// AdapterFor returns the adapter for the given kind, or ErrCapabilityNotSupported
	AdapterFor(kind supplier.IntegrationKind) (ProviderAdapter, error)

	// All returns every registered adapter
	All() []ProviderAdapter
}

// ChannelForKind maps an integration kind to the channel its orders travel on
func ChannelForKind(kind supplier.IntegrationKind) order.Channel {
	switch kind {
	case supplier.KindEmail:
		return order.ChannelEmail
	case supplier.KindManual:
		return order.ChannelPDF
	default:
		return order.ChannelAPI
	}
}
