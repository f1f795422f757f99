package shared

import (
	"context"
	"time"
)

// IdempotencyStore answers "have we seen this event id yet" for the sync
// engine's fast path. Implementations are best-effort: the ledger's
// unique-key constraint is the authoritative duplicate check.
type IdempotencyStore interface {
	// MarkProcessed records the event id if it is new and reports
	// whether this caller won the claim. The check and the write are a
	// single atomic step.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event id is already recorded,
	// without claiming it.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}

// IdempotencyConfig controls the dedup window.
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default dedup settings. POS
// providers replay events for up to three days after an outage, so the
// window has to cover at least that.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}
