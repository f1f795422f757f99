package supplier

import (
	"strings"

	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// IntegrationKind identifies how a supplier is reached: a structured API,
// a scraped web portal, outbound email, or a fully manual process.
type IntegrationKind string

const (
	KindAPIOAuth2 IntegrationKind = "api_oauth2" // OAuth2 client-credentials API
	KindAPIKey    IntegrationKind = "api_key"    // static API key header
	KindWebScrape IntegrationKind = "web_scrape" // portal without an API, scraped
	KindEmail     IntegrationKind = "email"      // orders dispatched by email
	KindManual    IntegrationKind = "manual"     // paper process, documents only
)

// IsValid checks if the integration kind is a known value
func (k IntegrationKind) IsValid() bool {
	switch k {
	case KindAPIOAuth2, KindAPIKey, KindWebScrape, KindEmail, KindManual:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (k IntegrationKind) String() string {
	return string(k)
}

// SupportsOrderSubmission reports whether adapters of this kind can push an
// order to the supplier synchronously. Email and manual suppliers have no
// submission endpoint; orders travel as rendered documents instead.
func (k IntegrationKind) SupportsOrderSubmission() bool {
	switch k {
	case KindAPIOAuth2, KindAPIKey, KindWebScrape:
		return true
	default:
		return false
	}
}

// UsesDocumentChannel reports whether orders for this kind are delivered as
// rendered documents rather than API calls.
func (k IntegrationKind) UsesDocumentChannel() bool {
	return k == KindEmail || k == KindManual
}

// SupplierDefinition is the static descriptor of a supplier the platform can
// integrate with. Definitions are loaded from configuration at startup and
// never mutated afterwards; per-tenant state lives on SupplierConnection.
type SupplierDefinition struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Kind           IntegrationKind `json:"kind" yaml:"kind"`
	RequiredConfig []string        `json:"required_config" yaml:"required_config"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount" yaml:"min_order_amount"`
	LeadTimeDays   int             `json:"lead_time_days" yaml:"lead_time_days"`
	Categories     []string        `json:"categories" yaml:"categories"`
	// APIBaseURL is the supplier's API root for api_oauth2 and api_key kinds.
	// Scraped portals carry their URL in per-tenant credentials instead.
	APIBaseURL string `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty"`
}

// Validate checks the definition for structural problems. Called once at
// catalog load; a bad definition fails startup rather than surfacing later.
func (d *SupplierDefinition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return shared.NewDomainError("INVALID_DEFINITION", "Supplier definition requires an id")
	}
	if strings.TrimSpace(d.Name) == "" {
		return shared.NewDomainError("INVALID_DEFINITION", "Supplier definition requires a name")
	}
	if !d.Kind.IsValid() {
		return shared.NewDomainError("INVALID_DEFINITION", "Unknown integration kind: "+string(d.Kind))
	}
	if d.MinOrderAmount.IsNegative() {
		return shared.NewDomainError("INVALID_DEFINITION", "Minimum order amount cannot be negative")
	}
	if d.LeadTimeDays < 0 {
		return shared.NewDomainError("INVALID_DEFINITION", "Lead time cannot be negative")
	}
	for _, field := range d.RequiredConfig {
		if strings.TrimSpace(field) == "" {
			return shared.NewDomainError("INVALID_DEFINITION", "Required config field names cannot be blank")
		}
	}
	return nil
}

// MissingConfig returns the names of required configuration fields that are
// absent or blank in the supplied field map, in definition order.
func (d *SupplierDefinition) MissingConfig(fields map[string]string) []string {
	var missing []string
	for _, name := range d.RequiredConfig {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// DefinitionCatalog provides read access to the static supplier definitions.
// Implementations load the catalog once at startup.
type DefinitionCatalog interface {
	// Get returns the definition with the given id, or shared.ErrNotFound.
	Get(id string) (*SupplierDefinition, error)
	// All returns every definition, ordered by id.
	All() []SupplierDefinition
}
