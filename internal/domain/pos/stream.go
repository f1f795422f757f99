package pos

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StreamType identifies which event stream a sync cycle pulls
type StreamType string

const (
	// StreamSales carries completed sales that deplete stock
	StreamSales StreamType = "sales"
	// StreamInventory carries stock adjustments and recounts
	StreamInventory StreamType = "inventory"
)

// IsValid checks if the stream type is a known value
func (s StreamType) IsValid() bool {
	return s == StreamSales || s == StreamInventory
}

// String returns the string representation
func (s StreamType) String() string {
	return string(s)
}

// Streams returns all stream types in sync order
func Streams() []StreamType {
	return []StreamType{StreamSales, StreamInventory}
}

// EventType classifies how a sync event mutates stock
type EventType string

const (
	// EventTypeSale depletes stock by the line quantities
	EventTypeSale EventType = "sale"
	// EventTypeAdjustment applies a signed delta per line
	EventTypeAdjustment EventType = "adjustment"
	// EventTypeRecount replaces the stock level with an absolute count
	EventTypeRecount EventType = "recount"
)

// IsValid checks if the event type is a known value
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeSale, EventTypeAdjustment, EventTypeRecount:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (t EventType) String() string {
	return string(t)
}

// EventLine is one product movement inside a sync event. For sales the
// quantity is the amount sold (always positive); for adjustments it is a
// signed delta; for recounts it is the absolute counted quantity.
type EventLine struct {
	ProductRef string          `json:"product_ref"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit,omitempty"`
}

// SyncEvent is one stock-affecting occurrence pulled from a POS system.
// Events are value objects; durability comes from the inventory ledger that
// records their application.
type SyncEvent struct {
	// ID is the provider-assigned event identifier. Providers that omit IDs
	// get a synthesized one via EnsureID before the event is applied.
	ID         string      `json:"id"`
	Stream     StreamType  `json:"stream"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Lines      []EventLine `json:"lines"`
}

// Validate checks the event is structurally applicable
func (e *SyncEvent) Validate() error {
	if !e.Stream.IsValid() {
		return shared.NewDomainError("INVALID_EVENT", "Unknown stream type")
	}
	if !e.Type.IsValid() {
		return shared.NewDomainError("INVALID_EVENT", "Unknown event type")
	}
	if len(e.Lines) == 0 {
		return shared.NewDomainError("INVALID_EVENT", "Event carries no lines")
	}
	for _, line := range e.Lines {
		if strings.TrimSpace(line.ProductRef) == "" {
			return shared.NewDomainError("INVALID_EVENT", "Event line requires a product reference")
		}
		switch e.Type {
		case EventTypeSale:
			// Sales carry the amount sold; a signed quantity here would
			// invert into a stock increment downstream, so fail closed.
			if line.Quantity.LessThanOrEqual(decimal.Zero) {
				return shared.NewDomainError("INVALID_EVENT", "Sale quantity must be positive")
			}
		case EventTypeRecount:
			if line.Quantity.IsNegative() {
				return shared.NewDomainError("INVALID_EVENT", "Recount quantity cannot be negative")
			}
		}
	}
	return nil
}

// EnsureID fills in a deterministic identifier for events whose provider did
// not assign one. The hash covers the cursor position and the full event
// content, so re-pulling the same batch after a crash reproduces the same IDs
// and the ledger dedup holds.
func (e *SyncEvent) EnsureID(cursor string) {
	if e.ID != "" {
		return
	}

	lines := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, l.ProductRef+":"+l.Quantity.String())
	}
	sort.Strings(lines)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s", cursor, e.Stream, e.Type, e.OccurredAt.UnixNano(), strings.Join(lines, ","))
	e.ID = "syn-" + hex.EncodeToString(h.Sum(nil))[:32]
}

// EventBatch is the result of one pull from a POS adapter
type EventBatch struct {
	// Events in provider order
	Events []SyncEvent
	// NextCursor is the position to persist once every event has been applied
	NextCursor string
	// HasMore indicates the provider has further events beyond this batch
	HasMore bool
}

// Cursor tracks sync progress for one (connection, stream) pair. The position
// is opaque to us; only the adapter interprets it. It moves forward only after
// every event at or before it has been applied to the ledger.
type Cursor struct {
	shared.BaseEntity
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ConnectionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_pos_cursor_stream,priority:1"`
	Stream       StreamType `gorm:"type:varchar(20);not null;uniqueIndex:idx_pos_cursor_stream,priority:2"`
	Position     string     `gorm:"type:varchar(500);not null;default:''"`
	LastSyncAt   *time.Time
	LastError    string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Cursor) TableName() string {
	return "pos_sync_cursors"
}

// NewCursor opens a cursor at the beginning of a stream
func NewCursor(tenantID, connectionID uuid.UUID, stream StreamType) (*Cursor, error) {
	if !stream.IsValid() {
		return nil, shared.NewDomainError("INVALID_STREAM", "Unknown stream type")
	}

	return &Cursor{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		ConnectionID: connectionID,
		Stream:       stream,
	}, nil
}

// Advance moves the cursor forward after a batch is fully applied
func (c *Cursor) Advance(position string, at time.Time) {
	c.Position = position
	c.LastSyncAt = &at
	c.LastError = ""
	c.UpdatedAt = time.Now()
}

// RecordError notes a failed cycle without moving the position
func (c *Cursor) RecordError(reason string) {
	c.LastError = reason
	c.UpdatedAt = time.Now()
}

// CycleResult summarizes one sync cycle over a (connection, stream) pair
type CycleResult struct {
	// Pulled is the number of events the adapter returned
	Pulled int
	// Applied is the number of events that mutated the ledger
	Applied int
	// Duplicates is the number of events the ledger had already recorded
	Duplicates int
	// Pages is the number of batches pulled before the cycle drained
	Pages int
	// FinalCursor is the position the cursor rests at after the cycle
	FinalCursor string
}
