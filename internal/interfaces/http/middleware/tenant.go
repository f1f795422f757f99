package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/restohub/backend/internal/interfaces/http/dto"
)

// Tenant identification. Authentication lives in front of this service; by
// the time a request arrives here the gateway has resolved the caller to a
// tenant and put its id in the header.
const (
	// TenantIDKey is the gin context key holding the parsed tenant id
	TenantIDKey = "tenant_id"
	// TenantHeader carries the tenant id on every request
	TenantHeader = "X-Tenant-ID"
)

// RequireTenant extracts and validates the tenant id header, rejecting
// requests without one. Handlers behind it can call GetTenantID safely.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TenantHeader)
		if raw == "" {
			abortTenant(c, "Missing "+TenantHeader+" header")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortTenant(c, TenantHeader+" must be a valid UUID")
			return
		}
		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

// GetTenantID returns the tenant id set by RequireTenant. The boolean is
// false on routes that skipped the middleware.
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortTenant(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewErrorResponse(dto.ErrCodeMissingTenant, message, GetRequestID(c)))
}
