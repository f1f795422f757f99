package vault

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/vault"
)

func setupVaultTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&CredentialRecord{})
	require.NoError(t, err)

	return db
}

func testKey(t *testing.T) []byte {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestGormVault_StoreAndResolve(t *testing.T) {
	db := setupVaultTestDB(t)
	v, err := NewGormVault(db, testKey(t))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("round-trips a credential set", func(t *testing.T) {
		creds := vault.Credentials{
			"client_id":     "rest-042",
			"client_secret": "s3cr3t",
			"location_id":   "syd-01",
		}

		handle, err := v.Store(ctx, creds)
		require.NoError(t, err)
		assert.NotEmpty(t, handle)

		resolved, err := v.Resolve(ctx, handle)
		require.NoError(t, err)
		assert.Equal(t, creds, resolved)
	})

	t.Run("each store yields a fresh handle", func(t *testing.T) {
		creds := vault.Credentials{"api_key": "k1"}

		first, err := v.Store(ctx, creds)
		require.NoError(t, err)
		second, err := v.Store(ctx, creds)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("unknown handle returns ErrHandleNotFound", func(t *testing.T) {
		_, err := v.Resolve(ctx, "vlt_never_issued")
		assert.ErrorIs(t, err, vault.ErrHandleNotFound)
	})

	t.Run("ciphertext never contains the plaintext secret", func(t *testing.T) {
		creds := vault.Credentials{"password": "hunter2-plaintext-marker"}
		handle, err := v.Store(ctx, creds)
		require.NoError(t, err)

		var record CredentialRecord
		require.NoError(t, db.Where("handle = ?", string(handle)).First(&record).Error)
		assert.NotContains(t, string(record.Ciphertext), "hunter2-plaintext-marker")
	})
}

func TestGormVault_Revoke(t *testing.T) {
	db := setupVaultTestDB(t)
	v, err := NewGormVault(db, testKey(t))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("revoked handle stops resolving", func(t *testing.T) {
		handle, err := v.Store(ctx, vault.Credentials{"api_key": "k"})
		require.NoError(t, err)

		require.NoError(t, v.Revoke(ctx, handle))

		_, err = v.Resolve(ctx, handle)
		assert.ErrorIs(t, err, vault.ErrHandleNotFound)
	})

	t.Run("revoking an unknown handle is not an error", func(t *testing.T) {
		err := v.Revoke(ctx, "vlt_never_issued")
		assert.NoError(t, err)
	})
}

func TestGormVault_KeyHandling(t *testing.T) {
	db := setupVaultTestDB(t)
	ctx := context.Background()

	t.Run("rejects short keys", func(t *testing.T) {
		_, err := NewGormVault(db, []byte("too-short"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	})

	t.Run("blobs sealed under another key resolve as sealed", func(t *testing.T) {
		first, err := NewGormVault(db, testKey(t))
		require.NoError(t, err)

		handle, err := first.Store(ctx, vault.Credentials{"api_key": "k"})
		require.NoError(t, err)

		second, err := NewGormVault(db, testKey(t))
		require.NoError(t, err)

		_, err = second.Resolve(ctx, handle)
		assert.ErrorIs(t, err, vault.ErrSealed)
	})
}
