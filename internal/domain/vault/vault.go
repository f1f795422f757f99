// Package vault defines the credential vault port. The orchestration layer
// stores and resolves per-tenant supplier secrets through this interface and
// persists only opaque handles; the secret material itself never appears in
// entities, cache keys, or logs.
package vault

import (
	"context"
	"errors"
	"sort"
)

// Vault errors
var (
	ErrHandleNotFound = errors.New("vault: credential handle not found")
	ErrSealed         = errors.New("vault: vault is sealed or unavailable")
)

// Handle is an opaque reference to stored credentials. Handles are safe to
// persist and log; they carry no recoverable secret material.
type Handle string

// String returns the handle's opaque form
func (h Handle) String() string {
	return string(h)
}

// Credentials holds the secret configuration fields of one supplier or POS
// connection, keyed by field name (api_key, client_secret, password, ...).
type Credentials map[string]string

// Get returns a field value, empty if absent
func (c Credentials) Get(field string) string {
	return c[field]
}

// FieldNames returns the stored field names sorted, values omitted.
// This is the only shape of a credential set that may be logged.
func (c Credentials) FieldNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CredentialVault stores credential sets and resolves them by handle.
// Implementations must encrypt at rest and treat handles as single-key
// atomic operations; the orchestration layer never assumes transactions
// spanning vault keys.
type CredentialVault interface {
	// Store encrypts and saves a credential set, returning a fresh opaque
	// handle. Storing replaces nothing: each call yields a new handle so a
	// reconfigured connection invalidates the old one explicitly.
	Store(ctx context.Context, creds Credentials) (Handle, error)

	// Resolve returns the credential set for a handle, or ErrHandleNotFound.
	Resolve(ctx context.Context, handle Handle) (Credentials, error)

	// Revoke deletes the credential set for a handle. Revoking an unknown
	// handle is not an error.
	Revoke(ctx context.Context, handle Handle) error

	// Close releases vault resources
	Close() error
}
