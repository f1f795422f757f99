package order

import (
	"strings"
	"time"

	"github.com/restohub/backend/internal/domain/shared"
)

// EvidenceSource identifies where an externally observed status signal
// came from
type EvidenceSource string

const (
	EvidenceSourceAPIPoll EvidenceSource = "api_poll" // adapter status poll
	EvidenceSourceWebhook EvidenceSource = "webhook"  // supplier push notification
	EvidenceSourceManual  EvidenceSource = "manual"   // staff member update
	EvidenceSourceEmail   EvidenceSource = "email"    // supplier reply by email
)

// IsValid checks if the source is a known value
func (s EvidenceSource) IsValid() bool {
	switch s {
	case EvidenceSourceAPIPoll, EvidenceSourceWebhook, EvidenceSourceManual, EvidenceSourceEmail:
		return true
	}
	return false
}

// String returns the string representation
func (s EvidenceSource) String() string {
	return string(s)
}

// StatusEvidence documents why an order advanced: every transition beyond
// submitted is driven by an external signal, and the signal travels with
// the transition. Manual and email confirmations require a named actor so
// someone is always accountable for advancing an order nobody's API
// confirmed.
type StatusEvidence struct {
	Source     EvidenceSource `json:"source"`
	Reference  string         `json:"reference,omitempty"` // supplier order ref, message id, poll cursor
	Actor      string         `json:"actor,omitempty"`     // user who recorded a manual update
	Note       string         `json:"note,omitempty"`
	ObservedAt time.Time      `json:"observed_at"`
}

// Validate checks the evidence block
func (e *StatusEvidence) Validate() error {
	if !e.Source.IsValid() {
		return shared.NewDomainError("INVALID_EVIDENCE", "Unknown evidence source")
	}
	if (e.Source == EvidenceSourceManual || e.Source == EvidenceSourceEmail) && strings.TrimSpace(e.Actor) == "" {
		return shared.NewDomainError("INVALID_EVIDENCE", "Manual and email evidence require an actor")
	}
	if e.ObservedAt.IsZero() {
		return shared.NewDomainError("INVALID_EVIDENCE", "Evidence requires an observation time")
	}
	return nil
}
