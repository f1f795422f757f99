package pos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restohub/backend/internal/domain/pos"
)

// CreateConnectionRequest links a tenant to a POS system. Field values go
// straight to the vault and are never echoed back.
type CreateConnectionRequest struct {
	SystemID string            `json:"system_id" binding:"required,min=1,max=100"`
	Name     string            `json:"name" binding:"max=200"`
	Fields   map[string]string `json:"fields" binding:"required"`
}

// ConnectionView is the outward representation of a POS connection
type ConnectionView struct {
	ID             uuid.UUID    `json:"id"`
	SystemID       string       `json:"system_id"`
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	LastVerifiedAt *time.Time   `json:"last_verified_at,omitempty"`
	LastSyncAt     *time.Time   `json:"last_sync_at,omitempty"`
	LastError      string       `json:"last_error,omitempty"`
	Cursors        []CursorView `json:"cursors,omitempty"`
}

// CursorView shows sync progress for one stream
type CursorView struct {
	Stream     string     `json:"stream"`
	Position   string     `json:"position"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// PushedEventRequest is the webhook payload for one POS event. Events
// without an id get a deterministic one derived from their content, so a
// provider replaying the same delivery cannot double-apply.
type PushedEventRequest struct {
	ID         string            `json:"id"`
	Stream     string            `json:"stream" binding:"required,oneof=sales inventory"`
	Type       string            `json:"type" binding:"required,oneof=sale adjustment recount"`
	OccurredAt time.Time         `json:"occurred_at" binding:"required"`
	Lines      []PushedLineInput `json:"lines" binding:"required,min=1,dive"`
}

// PushedLineInput is one product movement in a pushed event
type PushedLineInput struct {
	ProductRef string          `json:"product_ref" binding:"required,min=1,max=100"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Unit       string          `json:"unit" binding:"max=20"`
}

// ToSyncEvent converts the webhook payload to a domain event
func (r *PushedEventRequest) ToSyncEvent() *pos.SyncEvent {
	lines := make([]pos.EventLine, 0, len(r.Lines))
	for _, in := range r.Lines {
		lines = append(lines, pos.EventLine{
			ProductRef: in.ProductRef,
			Quantity:   in.Quantity,
			Unit:       in.Unit,
		})
	}
	return &pos.SyncEvent{
		ID:         r.ID,
		Stream:     pos.StreamType(r.Stream),
		Type:       pos.EventType(r.Type),
		OccurredAt: r.OccurredAt,
		Lines:      lines,
	}
}

func toConnectionView(conn *pos.Connection, cursors []*pos.Cursor) ConnectionView {
	view := ConnectionView{
		ID:             conn.ID,
		SystemID:       conn.SystemID,
		Name:           conn.Name,
		Status:         conn.Status.String(),
		LastVerifiedAt: conn.LastVerifiedAt,
		LastSyncAt:     conn.LastSyncAt,
		LastError:      conn.LastError,
	}
	for _, cursor := range cursors {
		view.Cursors = append(view.Cursors, CursorView{
			Stream:     cursor.Stream.String(),
			Position:   cursor.Position,
			LastSyncAt: cursor.LastSyncAt,
			LastError:  cursor.LastError,
		})
	}
	return view
}
