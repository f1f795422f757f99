package vault

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/vault"
)

// CredentialRecord is the persisted form of one credential set. Only the
// sealed ciphertext touches the database; the handle doubles as the key.
type CredentialRecord struct {
	Handle     string    `gorm:"primaryKey;type:varchar(200)"`
	Ciphertext []byte    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialRecord) TableName() string {
	return "vault_credentials"
}

// GormVault implements vault.CredentialVault on the relational database,
// encrypting every credential set with nacl/secretbox before it is stored.
type GormVault struct {
	db  *gorm.DB
	key *[keySize]byte
}

// NewGormVault creates a database-backed vault. The key must be exactly
// 32 bytes; blobs sealed under a different key resolve as ErrSealed.
func NewGormVault(db *gorm.DB, rawKey []byte) (*GormVault, error) {
	key, err := loadKey(rawKey)
	if err != nil {
		return nil, err
	}
	return &GormVault{db: db, key: key}, nil
}

// Store encrypts the credential set and saves it under a fresh handle
func (v *GormVault) Store(ctx context.Context, creds vault.Credentials) (vault.Handle, error) {
	blob, err := seal(v.key, creds)
	if err != nil {
		return "", err
	}

	handle, err := newHandle()
	if err != nil {
		return "", err
	}

	record := CredentialRecord{
		Handle:     string(handle),
		Ciphertext: blob,
		CreatedAt:  time.Now(),
	}
	if err := v.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store credentials: %w", err)
	}
	return handle, nil
}

// Resolve decrypts and returns the credential set for a handle
func (v *GormVault) Resolve(ctx context.Context, handle vault.Handle) (vault.Credentials, error) {
	var record CredentialRecord
	if err := v.db.WithContext(ctx).
		Where("handle = ?", string(handle)).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, vault.ErrHandleNotFound
		}
		return nil, err
	}
	return open(v.key, record.Ciphertext)
}

// Revoke deletes the credential set for a handle. Unknown handles are
// ignored so revocation is safe to retry.
func (v *GormVault) Revoke(ctx context.Context, handle vault.Handle) error {
	return v.db.WithContext(ctx).
		Where("handle = ?", string(handle)).
		Delete(&CredentialRecord{}).Error
}

// Close releases nothing; the database connection is owned by the caller
func (v *GormVault) Close() error {
	return nil
}

// newHandle generates an opaque random handle
func newHandle() (vault.Handle, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate handle: %w", err)
	}
	return vault.Handle("vlt_" + hex.EncodeToString(raw)), nil
}

// Ensure GormVault implements vault.CredentialVault
var _ vault.CredentialVault = (*GormVault)(nil)
