package providers

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// tokenRefreshSkew retires tokens early so one is never presented in
	// its final moments of validity
	tokenRefreshSkew = 30 * time.Second
	// defaultTokenTTL applies when the supplier reports no expiry at all
	defaultTokenTTL = 5 * time.Minute
)

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// tokenCache holds one access token per connection key. Suppliers mint
// short-lived tokens; caching them avoids a token round trip before every
// catalog fetch.
type tokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
}

func newTokenCache() *tokenCache {
	return &tokenCache{tokens: make(map[string]cachedToken)}
}

// get returns a token that will still be valid past the refresh skew
func (c *tokenCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tok, ok := c.tokens[key]
	if !ok || time.Now().After(tok.expiresAt.Add(-tokenRefreshSkew)) {
		return "", false
	}
	return tok.value, true
}

func (c *tokenCache) put(key, value string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = cachedToken{value: value, expiresAt: expiresAt}
}

func (c *tokenCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}

// tokenExpiry determines when an access token stops working. The exp claim
// of a JWT token is authoritative because it comes from the issuer's clock;
// expires_in is relative to an instant we never observed exactly.
func tokenExpiry(accessToken string, expiresInSeconds int64) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresInSeconds > 0 {
		return time.Now().Add(time.Duration(expiresInSeconds) * time.Second)
	}
	return time.Now().Add(defaultTokenTTL)
}
