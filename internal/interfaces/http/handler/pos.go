package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	posapp "github.com/restohub/backend/internal/application/pos"
	"github.com/restohub/backend/internal/domain/pos"
	"github.com/restohub/backend/internal/infrastructure/scheduler"
	"github.com/restohub/backend/internal/interfaces/http/dto"
	"github.com/restohub/backend/internal/interfaces/http/middleware"
)

// SyncTrigger enqueues sync cycles on demand. Nil when the background
// scheduler is disabled.
type SyncTrigger interface {
	TriggerManualSync(tenantID, connectionID uuid.UUID, stream pos.StreamType) (*scheduler.Job, error)
}

// POSHandler serves POS connection management, manual sync triggers, and
// the push webhook
type POSHandler struct {
	BaseHandler
	connections *posapp.ConnectionService
	sync        *posapp.SyncService
	trigger     SyncTrigger
}

// NewPOSHandler creates a new POSHandler
func NewPOSHandler(connections *posapp.ConnectionService, sync *posapp.SyncService, trigger SyncTrigger) *POSHandler {
	return &POSHandler{connections: connections, sync: sync, trigger: trigger}
}

// RegisterRoutes registers POS routes. The webhook stays outside the tenant
// group: POS providers call it directly and are identified by connection id,
// not by tenant header.
func (h *POSHandler) RegisterRoutes(rg *gin.RouterGroup) {
	connections := rg.Group("/pos/connections")
	connections.Use(middleware.RequireTenant())
	{
		connections.GET("", h.List)
		connections.POST("", h.Create)
		connections.GET("/:connectionID", h.Get)
		connections.POST("/:connectionID/verify", h.Verify)
		connections.DELETE("/:connectionID", h.Remove)
		connections.POST("/:connectionID/sync", h.TriggerSync)
	}

	rg.POST("/pos/webhook/:connectionID", h.Webhook)
}

// List returns the tenant's POS connections with their sync cursors
func (h *POSHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	views, err := h.connections.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// Create links a POS system to the tenant and vaults its credentials
func (h *POSHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req posapp.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	view, err := h.connections.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// Get returns one POS connection
func (h *POSHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	connectionID, ok := h.connectionID(c)
	if !ok {
		return
	}

	view, err := h.connections.Get(c.Request.Context(), tenantID, connectionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Verify runs the POS adapter's connection test
func (h *POSHandler) Verify(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	connectionID, ok := h.connectionID(c)
	if !ok {
		return
	}

	view, err := h.connections.Verify(c.Request.Context(), tenantID, connectionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Remove deletes a POS connection, its cursors, and its credentials
func (h *POSHandler) Remove(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	connectionID, ok := h.connectionID(c)
	if !ok {
		return
	}

	if err := h.connections.Remove(c.Request.Context(), tenantID, connectionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// triggerSyncRequest selects which streams a manual sync covers
type triggerSyncRequest struct {
	Stream string `json:"stream" binding:"omitempty,oneof=sales inventory"`
}

// triggeredJob reports one enqueued sync cycle
type triggeredJob struct {
	JobID  string `json:"job_id"`
	Stream string `json:"stream"`
	Status string `json:"status"`
}

// TriggerSync enqueues immediate sync cycles for the connection. Without a
// stream in the body, both streams are enqueued. Cycles already queued or
// running for a stream are reported as skipped rather than duplicated.
func (h *POSHandler) TriggerSync(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	connectionID, ok := h.connectionID(c)
	if !ok {
		return
	}
	if h.trigger == nil {
		h.Error(c, http.StatusServiceUnavailable, "SCHEDULER_DISABLED",
			"Background sync is disabled; manual cycles cannot be enqueued")
		return
	}

	var req triggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.ValidationError(c, err)
		return
	}

	// Ownership check before anything is enqueued.
	if _, err := h.connections.Get(c.Request.Context(), tenantID, connectionID); err != nil {
		h.HandleError(c, err)
		return
	}

	streams := pos.Streams()
	if req.Stream != "" {
		streams = []pos.StreamType{pos.StreamType(req.Stream)}
	}

	jobs := make([]triggeredJob, 0, len(streams))
	for _, stream := range streams {
		job, err := h.trigger.TriggerManualSync(tenantID, connectionID, stream)
		if err != nil {
			jobs = append(jobs, triggeredJob{Stream: stream.String(), Status: "skipped"})
			continue
		}
		jobs = append(jobs, triggeredJob{JobID: job.ID.String(), Stream: stream.String(), Status: "queued"})
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(jobs))
}

// Webhook ingests one pushed POS event. Events carry their own id when the
// provider issues one; otherwise a deterministic id is derived from the
// content, so replayed deliveries deduplicate against the ledger.
func (h *POSHandler) Webhook(c *gin.Context) {
	connectionID, ok := h.connectionID(c)
	if !ok {
		return
	}

	var req posapp.PushedEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if err := h.sync.IngestPushedEvent(c.Request.Context(), connectionID, req.ToSyncEvent()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"accepted": true})
}

func (h *POSHandler) connectionID(c *gin.Context) (uuid.UUID, bool) {
	connectionID, err := uuid.Parse(c.Param("connectionID"))
	if err != nil {
		h.BadRequest(c, "connectionID must be a valid UUID")
		return uuid.Nil, false
	}
	return connectionID, true
}
