package supplier

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/vault"
)

// ConnectionStatus represents the lifecycle of a tenant's supplier binding
type ConnectionStatus string

const (
	ConnectionStatusUnconfigured ConnectionStatus = "unconfigured"
	ConnectionStatusConfigured   ConnectionStatus = "configured"
	ConnectionStatusVerified     ConnectionStatus = "verified"
	ConnectionStatusError        ConnectionStatus = "error"
)

// IsValid checks if the status is a known value
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusUnconfigured, ConnectionStatusConfigured, ConnectionStatusVerified, ConnectionStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (s ConnectionStatus) String() string {
	return string(s)
}

// Connection binds a tenant to a supplier definition. It holds an opaque
// credential handle, never the secret material itself; the vault resolves
// the handle when an adapter needs the credentials.
type Connection struct {
	shared.TenantAggregateRoot
	SupplierID       string           `gorm:"type:varchar(100);not null;uniqueIndex:idx_supplier_conn_tenant,priority:2"`
	CredentialHandle vault.Handle     `gorm:"type:varchar(200)"`
	Status           ConnectionStatus `gorm:"type:varchar(20);not null;default:'unconfigured'"`
	LastVerifiedAt   *time.Time
	LastError        string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Connection) TableName() string {
	return "supplier_connections"
}

// NewConnection creates an unconfigured connection for a tenant and supplier
func NewConnection(tenantID uuid.UUID, supplierID string) (*Connection, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_ID", "Supplier id cannot be empty")
	}
	return &Connection{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SupplierID:          supplierID,
		Status:              ConnectionStatusUnconfigured,
	}, nil
}

// Configure records a fresh credential handle and moves the connection to
// configured. A previously verified or errored connection drops back to
// configured; it must pass a new connection test to become verified again.
func (c *Connection) Configure(credentialHandle vault.Handle) error {
	if credentialHandle == "" {
		return shared.NewDomainError("INVALID_CREDENTIAL_HANDLE", "Credential handle cannot be empty")
	}

	c.CredentialHandle = credentialHandle
	c.Status = ConnectionStatusConfigured
	c.LastError = ""
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// MarkVerified promotes the connection after a successful adapter test.
// A connection that has never been configured cannot be verified.
func (c *Connection) MarkVerified(at time.Time) error {
	if c.Status == ConnectionStatusUnconfigured {
		return shared.NewDomainError("NOT_CONFIGURED", "Connection must be configured before verification")
	}

	c.Status = ConnectionStatusVerified
	c.LastVerifiedAt = &at
	c.LastError = ""
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// MarkError records a failed connection test. The stored reason is surfaced
// to the tenant; the connection stays configured underneath and may be
// re-verified at any time.
func (c *Connection) MarkError(reason string) {
	c.Status = ConnectionStatusError
	c.LastError = reason
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// IsConfigured returns true once credentials have been stored
func (c *Connection) IsConfigured() bool {
	return c.Status == ConnectionStatusConfigured || c.Status == ConnectionStatusVerified || c.Status == ConnectionStatusError
}

// IsVerified returns true if the last connection test succeeded
func (c *Connection) IsVerified() bool {
	return c.Status == ConnectionStatusVerified
}
