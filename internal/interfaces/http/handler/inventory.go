package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	inventoryapp "github.com/restohub/backend/internal/application/inventory"
	"github.com/restohub/backend/internal/interfaces/http/middleware"
)

// InventoryHandler serves the stock levels maintained by the sync ledger
type InventoryHandler struct {
	BaseHandler
	inventory *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventory *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	inv.Use(middleware.RequireTenant())
	{
		inv.GET("/stock", h.Stock)
		inv.GET("/stock/:productRef", h.StockItem)
		inv.GET("/warnings", h.Warnings)
		inv.POST("/restock", h.Restock)
		inv.GET("/usage", h.Usage)
	}
}

// Stock returns every tracked product for the tenant
func (h *InventoryHandler) Stock(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	views, err := h.inventory.ListStock(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// StockItem returns one tracked product
func (h *InventoryHandler) StockItem(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	view, err := h.inventory.GetStock(c.Request.Context(), tenantID, c.Param("productRef"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Warnings returns products at or below their reorder level, most urgent
// first
func (h *InventoryHandler) Warnings(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	warnings, err := h.inventory.Warnings(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, warnings)
}

// Restock records a manual stock receipt through the same ledger path the
// POS sync uses, so it shares the idempotency contract
func (h *InventoryHandler) Restock(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req inventoryapp.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	view, err := h.inventory.Restock(c.Request.Context(), tenantID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Usage returns ledger movement over a period with stockout projections.
// Defaults to the trailing 30 days.
func (h *InventoryHandler) Usage(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "from must be RFC3339")
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "to must be RFC3339")
			return
		}
		to = parsed
	}

	report, err := h.inventory.Usage(c.Request.Context(), tenantID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
