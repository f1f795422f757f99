package vault

import (
	"context"
	"sync"

	"github.com/restohub/backend/internal/domain/vault"
)

// MemoryVault implements vault.CredentialVault in process memory. Handles do
// not survive a restart, which makes it suitable for tests and single-node
// development only. Blobs are sealed exactly like the database vault so the
// encryption path is always exercised.
type MemoryVault struct {
	mu    sync.RWMutex
	blobs map[vault.Handle][]byte
	key   *[keySize]byte
}

// NewMemoryVault creates an in-memory vault. A nil key generates an
// ephemeral one.
func NewMemoryVault(rawKey []byte) (*MemoryVault, error) {
	var key *[keySize]byte
	var err error
	if rawKey == nil {
		key, err = ephemeralKey()
	} else {
		key, err = loadKey(rawKey)
	}
	if err != nil {
		return nil, err
	}

	return &MemoryVault{
		blobs: make(map[vault.Handle][]byte),
		key:   key,
	}, nil
}

// Store encrypts the credential set and saves it under a fresh handle
func (v *MemoryVault) Store(ctx context.Context, creds vault.Credentials) (vault.Handle, error) {
	blob, err := seal(v.key, creds)
	if err != nil {
		return "", err
	}
	handle, err := newHandle()
	if err != nil {
		return "", err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.blobs[handle] = blob

	return handle, nil
}

// Resolve decrypts and returns the credential set for a handle
func (v *MemoryVault) Resolve(ctx context.Context, handle vault.Handle) (vault.Credentials, error) {
	v.mu.RLock()
	blob, exists := v.blobs[handle]
	v.mu.RUnlock()

	if !exists {
		return nil, vault.ErrHandleNotFound
	}
	return open(v.key, blob)
}

// Revoke deletes the credential set for a handle
func (v *MemoryVault) Revoke(ctx context.Context, handle vault.Handle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.blobs, handle)
	return nil
}

// Close drops all stored blobs
func (v *MemoryVault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.blobs = make(map[vault.Handle][]byte)
	return nil
}

// Size returns the number of stored credential sets (for testing/monitoring)
func (v *MemoryVault) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.blobs)
}

// Ensure MemoryVault implements vault.CredentialVault
var _ vault.CredentialVault = (*MemoryVault)(nil)
