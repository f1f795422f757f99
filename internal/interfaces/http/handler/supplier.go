package handler

import (
	"github.com/gin-gonic/gin"

	catalogapp "github.com/restohub/backend/internal/application/catalog"
	registryapp "github.com/restohub/backend/internal/application/registry"
	"github.com/restohub/backend/internal/interfaces/http/middleware"
)

// SupplierHandler serves supplier definitions, per-tenant connections, and
// cached catalogs
type SupplierHandler struct {
	BaseHandler
	registry *registryapp.SupplierRegistryService
	catalog  *catalogapp.CatalogService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(registry *registryapp.SupplierRegistryService, catalog *catalogapp.CatalogService) *SupplierHandler {
	return &SupplierHandler{registry: registry, catalog: catalog}
}

// RegisterRoutes registers supplier routes
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	suppliers := rg.Group("/suppliers")
	suppliers.Use(middleware.RequireTenant())
	{
		suppliers.GET("", h.List)
		suppliers.GET("/:supplierID", h.Get)
		suppliers.POST("/:supplierID/connection", h.Configure)
		suppliers.POST("/:supplierID/connection/verify", h.Verify)
		suppliers.DELETE("/:supplierID/connection", h.Remove)
		suppliers.GET("/:supplierID/products", h.Products)
		suppliers.POST("/:supplierID/products/refresh", h.RefreshProducts)
	}
}

// List returns every supplier definition merged with the tenant's
// connection status
func (h *SupplierHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	views, err := h.registry.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// Get returns one supplier with the tenant's connection status
func (h *SupplierHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	view, err := h.registry.Get(c.Request.Context(), tenantID, c.Param("supplierID"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Configure stores credentials for a supplier connection. Values are written
// to the vault and never echoed back.
func (h *SupplierHandler) Configure(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req registryapp.ConfigureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	view, err := h.registry.Configure(c.Request.Context(), tenantID, c.Param("supplierID"), req.Fields)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Verify runs the adapter connection test. A failed test is reported in the
// returned view's status, not as an HTTP error.
func (h *SupplierHandler) Verify(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	view, err := h.registry.Verify(c.Request.Context(), tenantID, c.Param("supplierID"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Remove deletes the tenant's connection and its vaulted credentials
func (h *SupplierHandler) Remove(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	if err := h.registry.Remove(c.Request.Context(), tenantID, c.Param("supplierID")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Products returns the supplier's catalog, from cache when fresh. Sets past
// their TTL that could not be refreshed come back with the stale flag set.
func (h *SupplierHandler) Products(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	set, err := h.catalog.GetProducts(c.Request.Context(), tenantID, c.Param("supplierID"), c.Query("category"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, set)
}

// RefreshProducts forces a catalog refresh regardless of TTL
func (h *SupplierHandler) RefreshProducts(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	set, err := h.catalog.Refresh(c.Request.Context(), tenantID, c.Param("supplierID"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, set)
}
