package providers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCache(t *testing.T) {
	cache := newTokenCache()

	t.Run("roundtrip", func(t *testing.T) {
		cache.put("tenant|bidfood", "tok-1", time.Now().Add(time.Hour))
		value, ok := cache.get("tenant|bidfood")
		assert.True(t, ok)
		assert.Equal(t, "tok-1", value)
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		_, ok := cache.get("tenant|unknown")
		assert.False(t, ok)
	})

	t.Run("expired token", func(t *testing.T) {
		cache.put("tenant|expired", "tok-2", time.Now().Add(-time.Minute))
		_, ok := cache.get("tenant|expired")
		assert.False(t, ok)
	})

	t.Run("token inside refresh skew", func(t *testing.T) {
		// Still technically valid, but too close to expiry to hand out.
		cache.put("tenant|closing", "tok-3", time.Now().Add(tokenRefreshSkew/2))
		_, ok := cache.get("tenant|closing")
		assert.False(t, ok)
	})

	t.Run("invalidate", func(t *testing.T) {
		cache.put("tenant|gone", "tok-4", time.Now().Add(time.Hour))
		cache.invalidate("tenant|gone")
		_, ok := cache.get("tenant|gone")
		assert.False(t, ok)
	})
}

func TestTokenExpiry(t *testing.T) {
	t.Run("jwt exp claim wins", func(t *testing.T) {
		exp := time.Now().Add(42 * time.Minute).Truncate(time.Second)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
		signed, err := token.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		// A deliberately different expires_in proves the claim takes priority.
		assert.True(t, tokenExpiry(signed, 10).Equal(exp))
	})

	t.Run("opaque token uses expires_in", func(t *testing.T) {
		expiry := tokenExpiry("opaque-token-value", 3600)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 2*time.Second)
	})

	t.Run("no expiry information", func(t *testing.T) {
		expiry := tokenExpiry("opaque-token-value", 0)
		assert.WithinDuration(t, time.Now().Add(defaultTokenTTL), expiry, 2*time.Second)
	})
}
