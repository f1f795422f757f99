package pos

import (
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/vault"
)

// ConnectionStatus represents the lifecycle state of a POS connection
type ConnectionStatus string

const (
	// ConnectionStatusUnconfigured means no credentials have been provided yet
	ConnectionStatusUnconfigured ConnectionStatus = "unconfigured"
	// ConnectionStatusConfigured means credentials are stored but unverified
	ConnectionStatusConfigured ConnectionStatus = "configured"
	// ConnectionStatusVerified means the last connection test succeeded
	ConnectionStatusVerified ConnectionStatus = "verified"
	// ConnectionStatusError means the last test or sync cycle failed
	ConnectionStatusError ConnectionStatus = "error"
)

// IsValid checks if the status is a known value
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusUnconfigured, ConnectionStatusConfigured,
		ConnectionStatusVerified, ConnectionStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (s ConnectionStatus) String() string {
	return string(s)
}

// Connection is one tenant's link to a point-of-sale system. Credentials are
// held in the vault; the aggregate carries only the opaque handle.
type Connection struct {
	shared.TenantAggregateRoot
	SystemID         string           `gorm:"type:varchar(100);not null;uniqueIndex:idx_pos_conn_tenant,priority:2"`
	Name             string           `gorm:"type:varchar(200)"`
	CredentialHandle vault.Handle     `gorm:"type:varchar(200)"`
	Status           ConnectionStatus `gorm:"type:varchar(20);not null;default:'unconfigured'"`
	LastVerifiedAt   *time.Time
	LastSyncAt       *time.Time
	LastError        string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Connection) TableName() string {
	return "pos_connections"
}

// NewConnection creates an unconfigured POS connection
func NewConnection(tenantID uuid.UUID, systemID, name string) (*Connection, error) {
	if systemID == "" {
		return nil, shared.NewDomainError("INVALID_SYSTEM", "POS system ID cannot be empty")
	}

	return &Connection{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SystemID:            systemID,
		Name:                name,
		Status:              ConnectionStatusUnconfigured,
	}, nil
}

// Configure stores a new credential handle and resets verification state
func (c *Connection) Configure(handle vault.Handle) error {
	if handle == "" {
		return shared.NewDomainError("INVALID_HANDLE", "Credential handle cannot be empty")
	}

	c.CredentialHandle = handle
	c.Status = ConnectionStatusConfigured
	c.LastVerifiedAt = nil
	c.LastError = ""
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// MarkVerified records a successful connection test
func (c *Connection) MarkVerified(at time.Time) error {
	if c.Status == ConnectionStatusUnconfigured {
		return shared.NewDomainError("INVALID_STATE", "Connection must be configured before verification")
	}

	c.Status = ConnectionStatusVerified
	c.LastVerifiedAt = &at
	c.LastError = ""
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// MarkError records a failed test or sync cycle
func (c *Connection) MarkError(reason string) {
	c.Status = ConnectionStatusError
	c.LastError = reason
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// MarkSynced records the completion time of a successful sync cycle
func (c *Connection) MarkSynced(at time.Time) {
	c.LastSyncAt = &at
	if c.Status == ConnectionStatusError {
		c.Status = ConnectionStatusVerified
		c.LastError = ""
	}
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// IsSyncable reports whether sync cycles should run for this connection
func (c *Connection) IsSyncable() bool {
	return c.Status == ConnectionStatusVerified || c.Status == ConnectionStatusError
}
