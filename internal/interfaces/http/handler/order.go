package handler

import (
	"github.com/gin-gonic/gin"

	orderapp "github.com/restohub/backend/internal/application/order"
	"github.com/restohub/backend/internal/interfaces/http/dto"
	"github.com/restohub/backend/internal/interfaces/http/middleware"
)

// OrderHandler serves order submission, tracking, and order sheets
type OrderHandler struct {
	BaseHandler
	orders *orderapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.Use(middleware.RequireTenant())
	{
		orders.POST("", h.Submit)
		orders.GET("", h.List)
		orders.GET("/:orderID", h.Get)
		orders.POST("/:orderID/advance", h.Advance)
		orders.POST("/:orderID/cancel", h.Cancel)
		orders.GET("/:orderID/document", h.Document)
	}
}

// Submit places an order. The caller-chosen order id is the idempotency
// key: resubmitting an id that already has a record returns that record
// unchanged, without another adapter call.
func (h *OrderHandler) Submit(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req orderapp.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	view, err := h.orders.Submit(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// List returns the tenant's orders, optionally filtered by supplier and
// status
func (h *OrderHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}
	query.Normalize()

	result, err := h.orders.List(c.Request.Context(), tenantID,
		c.Query("supplier_id"), c.Query("status"), query.Limit, query.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Orders, result.Total, result.Limit, result.Offset)
}

// Get returns one order
func (h *OrderHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	view, err := h.orders.Get(c.Request.Context(), tenantID, c.Param("orderID"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Advance records an externally observed status change. Targets must be
// strictly forward of the current status; manual and email sources must name
// the person who observed the change.
func (h *OrderHandler) Advance(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req orderapp.AdvanceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	view, err := h.orders.Advance(c.Request.Context(), tenantID, c.Param("orderID"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Cancel withdraws an order from any non-terminal state
func (h *OrderHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req orderapp.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	view, err := h.orders.Cancel(c.Request.Context(), tenantID, c.Param("orderID"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Document returns a time-limited download link for the order sheet
func (h *OrderHandler) Document(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	link, err := h.orders.Document(c.Request.Context(), tenantID, c.Param("orderID"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}
