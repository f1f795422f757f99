// Package pos contains point-of-sale system connectors: one adapter per
// POS product, all speaking the shared event stream contract.
package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/pos"
)

const (
	// CloudPOSSystemID identifies the hosted CloudPOS product
	CloudPOSSystemID = "cloudpos"

	cloudposPingPath   = "/ping"
	cloudposEventsPath = "/events/%s"

	cloudposDefaultLimit = 100
	cloudposMaxLimit     = 500
	cloudposMaxBodySize  = 4 << 20
)

// cloudposEvent is one event on the wire
type cloudposEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Lines      []cloudposLine `json:"lines"`
}

type cloudposLine struct {
	ProductRef string          `json:"product_ref"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
}

type cloudposEventsResponse struct {
	Events     []cloudposEvent `json:"events"`
	NextCursor string          `json:"next_cursor"`
	HasMore    bool            `json:"has_more"`
}

// CloudPOSAdapter polls the CloudPOS REST event feed. Cursors are CloudPOS
// sequence tokens; the adapter never interprets them beyond forwarding.
type CloudPOSAdapter struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCloudPOSAdapter creates a CloudPOS adapter
func NewCloudPOSAdapter(logger *zap.Logger) *CloudPOSAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudPOSAdapter{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SystemID returns the POS system this adapter handles
func (a *CloudPOSAdapter) SystemID() string {
	return CloudPOSSystemID
}

// TestConnection verifies the configured credentials reach the event feed
func (a *CloudPOSAdapter) TestConnection(ctx context.Context, conn *pos.ConnectionContext) error {
	base, err := a.baseURL(conn)
	if err != nil {
		return err
	}

	status, _, err := a.doRequest(ctx, conn, base+cloudposPingPath)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: API key rejected", integration.ErrConnectionFailed)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: ping returned HTTP %d", integration.ErrConnectionFailed, status)
	}
	return nil
}

// PullEvents fetches events after the cursor position, oldest first
func (a *CloudPOSAdapter) PullEvents(ctx context.Context, conn *pos.ConnectionContext, stream pos.StreamType, cursor string, limit int) (*pos.EventBatch, error) {
	base, err := a.baseURL(conn)
	if err != nil {
		return nil, err
	}
	if !stream.IsValid() {
		return nil, fmt.Errorf("%w: unknown stream %q", integration.ErrFetchFailed, stream)
	}
	if limit <= 0 {
		limit = cloudposDefaultLimit
	}
	if limit > cloudposMaxLimit {
		limit = cloudposMaxLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	eventsURL := base + fmt.Sprintf(cloudposEventsPath, stream) + "?" + query.Encode()

	status, body, err := a.doRequest(ctx, conn, eventsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, fmt.Errorf("%w: API key rejected", integration.ErrConnectionFailed)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: events endpoint returned HTTP %d", integration.ErrFetchFailed, status)
	}

	var wire cloudposEventsResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: malformed events body: %v", integration.ErrFetchFailed, err)
	}

	batch, err := mapCloudposBatch(&wire, stream)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("pulled cloudpos events",
		zap.String("tenant_id", conn.TenantID.String()),
		zap.String("stream", stream.String()),
		zap.Int("events", len(batch.Events)),
		zap.Bool("has_more", batch.HasMore))

	return batch, nil
}

// baseURL reads the per-tenant feed URL from credentials
func (a *CloudPOSAdapter) baseURL(conn *pos.ConnectionContext) (string, error) {
	raw := strings.TrimSpace(conn.Credentials.Get("api_url"))
	if raw == "" {
		return "", fmt.Errorf("%w: connection has no api_url", integration.ErrNotConfigured)
	}
	if conn.Credentials.Get("api_key") == "" {
		return "", fmt.Errorf("%w: connection has no api_key", integration.ErrNotConfigured)
	}
	return strings.TrimRight(raw, "/"), nil
}

// doRequest performs one authenticated GET against the feed
func (a *CloudPOSAdapter) doRequest(ctx context.Context, conn *pos.ConnectionContext, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-API-Key", conn.Credentials.Get("api_key"))
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, cloudposMaxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %v", err)
	}
	return resp.StatusCode, body, nil
}

// mapCloudposBatch converts a wire response to domain events. An event whose
// type is not recognized fails the whole batch; skipping it would silently
// drop a stock movement and the ledger would drift.
func mapCloudposBatch(wire *cloudposEventsResponse, stream pos.StreamType) (*pos.EventBatch, error) {
	events := make([]pos.SyncEvent, 0, len(wire.Events))
	for i := range wire.Events {
		we := &wire.Events[i]

		eventType, ok := mapCloudposEventType(we.Type)
		if !ok {
			return nil, fmt.Errorf("%w: unrecognized event type %q", integration.ErrFetchFailed, we.Type)
		}

		lines := make([]pos.EventLine, 0, len(we.Lines))
		for _, wl := range we.Lines {
			lines = append(lines, pos.EventLine{
				ProductRef: wl.ProductRef,
				Quantity:   wl.Quantity,
				Unit:       wl.Unit,
			})
		}

		events = append(events, pos.SyncEvent{
			ID:         we.ID,
			Stream:     stream,
			Type:       eventType,
			OccurredAt: we.OccurredAt,
			Lines:      lines,
		})
	}

	return &pos.EventBatch{
		Events:     events,
		NextCursor: wire.NextCursor,
		HasMore:    wire.HasMore,
	}, nil
}

// mapCloudposEventType translates a wire event type to the domain model
func mapCloudposEventType(raw string) (pos.EventType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sale":
		return pos.EventTypeSale, true
	case "adjustment":
		return pos.EventTypeAdjustment, true
	case "recount", "stocktake":
		return pos.EventTypeRecount, true
	default:
		return "", false
	}
}

var _ pos.Adapter = (*CloudPOSAdapter)(nil)
