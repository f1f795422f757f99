package pos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/pos"
	"github.com/restohub/backend/internal/domain/vault"
)

func TestCloudPOSAdapter_SystemID(t *testing.T) {
	adapter := NewCloudPOSAdapter(zap.NewNop())
	assert.Equal(t, "cloudpos", adapter.SystemID())
}

func TestCloudPOSAdapter_TestConnection(t *testing.T) {
	t.Run("accepted key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, cloudposPingPath, r.URL.Path)
			assert.Equal(t, "pos-key-1", r.Header.Get("X-API-Key"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		adapter := NewCloudPOSAdapter(zap.NewNop())
		assert.NoError(t, adapter.TestConnection(context.Background(), cloudposTestConn(server.URL)))
	})

	t.Run("rejected key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		adapter := NewCloudPOSAdapter(zap.NewNop())
		err := adapter.TestConnection(context.Background(), cloudposTestConn(server.URL))
		assert.ErrorIs(t, err, integration.ErrConnectionFailed)
		assert.Contains(t, err.Error(), "API key rejected")
	})

	t.Run("missing api_url", func(t *testing.T) {
		conn := cloudposTestConn("")
		delete(conn.Credentials, "api_url")

		adapter := NewCloudPOSAdapter(zap.NewNop())
		err := adapter.TestConnection(context.Background(), conn)
		assert.ErrorIs(t, err, integration.ErrNotConfigured)
	})

	t.Run("missing api_key", func(t *testing.T) {
		conn := cloudposTestConn("https://pos.example")
		delete(conn.Credentials, "api_key")

		adapter := NewCloudPOSAdapter(zap.NewNop())
		err := adapter.TestConnection(context.Background(), conn)
		assert.ErrorIs(t, err, integration.ErrNotConfigured)
	})
}

func TestCloudPOSAdapter_PullEvents(t *testing.T) {
	occurred := time.Date(2025, 11, 3, 12, 15, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/sales", r.URL.Path)
		assert.Equal(t, "pos-key-1", r.Header.Get("X-API-Key"))
		assert.Equal(t, "cur-41", r.URL.Query().Get("cursor"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(cloudposEventsResponse{
			Events: []cloudposEvent{
				{
					ID:         "evt-100",
					Type:       "sale",
					OccurredAt: occurred,
					Lines: []cloudposLine{
						{ProductRef: "BF-TOM-01", Quantity: decimal.NewFromInt(2), Unit: "kg"},
						{ProductRef: "CW-102", Quantity: decimal.NewFromInt(1)},
					},
				},
				{
					ID:         "evt-101",
					Type:       "stocktake",
					OccurredAt: occurred.Add(time.Minute),
					Lines: []cloudposLine{
						{ProductRef: "BF-TOM-01", Quantity: decimal.NewFromInt(40)},
					},
				},
			},
			NextCursor: "cur-43",
			HasMore:    true,
		})
	}))
	defer server.Close()

	adapter := NewCloudPOSAdapter(zap.NewNop())
	batch, err := adapter.PullEvents(context.Background(), cloudposTestConn(server.URL), pos.StreamSales, "cur-41", 50)

	require.NoError(t, err)
	assert.Equal(t, "cur-43", batch.NextCursor)
	assert.True(t, batch.HasMore)
	require.Len(t, batch.Events, 2)

	assert.Equal(t, "evt-100", batch.Events[0].ID)
	assert.Equal(t, pos.StreamSales, batch.Events[0].Stream)
	assert.Equal(t, pos.EventTypeSale, batch.Events[0].Type)
	assert.True(t, batch.Events[0].OccurredAt.Equal(occurred))
	require.Len(t, batch.Events[0].Lines, 2)
	assert.Equal(t, "BF-TOM-01", batch.Events[0].Lines[0].ProductRef)
	assert.True(t, batch.Events[0].Lines[0].Quantity.Equal(decimal.NewFromInt(2)))

	assert.Equal(t, pos.EventTypeRecount, batch.Events[1].Type, "stocktake maps to recount")
}

func TestCloudPOSAdapter_PullEvents_Failures(t *testing.T) {
	t.Run("unrecognized event type fails the batch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(cloudposEventsResponse{
				Events: []cloudposEvent{
					{ID: "evt-1", Type: "mystery", Lines: []cloudposLine{{ProductRef: "X"}}},
				},
			})
		}))
		defer server.Close()

		adapter := NewCloudPOSAdapter(zap.NewNop())
		_, err := adapter.PullEvents(context.Background(), cloudposTestConn(server.URL), pos.StreamSales, "", 0)

		assert.ErrorIs(t, err, integration.ErrFetchFailed)
		assert.Contains(t, err.Error(), "mystery")
	})

	t.Run("feed error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		adapter := NewCloudPOSAdapter(zap.NewNop())
		_, err := adapter.PullEvents(context.Background(), cloudposTestConn(server.URL), pos.StreamSales, "", 0)
		assert.ErrorIs(t, err, integration.ErrFetchFailed)
	})

	t.Run("unreachable feed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		serverURL := server.URL
		server.Close()

		adapter := NewCloudPOSAdapter(zap.NewNop())
		_, err := adapter.PullEvents(context.Background(), cloudposTestConn(serverURL), pos.StreamSales, "", 0)
		assert.ErrorIs(t, err, integration.ErrConnectionFailed)
	})

	t.Run("invalid stream", func(t *testing.T) {
		adapter := NewCloudPOSAdapter(zap.NewNop())
		_, err := adapter.PullEvents(context.Background(), cloudposTestConn("https://pos.example"), "receipts", "", 0)
		assert.ErrorIs(t, err, integration.ErrFetchFailed)
	})
}

func TestCloudPOSAdapter_PullEvents_LimitHandling(t *testing.T) {
	var seenLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(cloudposEventsResponse{})
	}))
	defer server.Close()

	adapter := NewCloudPOSAdapter(zap.NewNop())
	conn := cloudposTestConn(server.URL)

	_, err := adapter.PullEvents(context.Background(), conn, pos.StreamInventory, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "100", seenLimit, "zero limit takes the default")

	_, err = adapter.PullEvents(context.Background(), conn, pos.StreamInventory, "", 9000)
	require.NoError(t, err)
	assert.Equal(t, "500", seenLimit, "oversized limit is capped")
}

func TestMapCloudposEventType(t *testing.T) {
	tests := []struct {
		raw      string
		expected pos.EventType
		known    bool
	}{
		{"sale", pos.EventTypeSale, true},
		{"Sale", pos.EventTypeSale, true},
		{"adjustment", pos.EventTypeAdjustment, true},
		{"recount", pos.EventTypeRecount, true},
		{"stocktake", pos.EventTypeRecount, true},
		{"refund", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			eventType, known := mapCloudposEventType(tt.raw)
			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.expected, eventType)
		})
	}
}

// cloudposTestConn builds a connection context for the CloudPOS feed
func cloudposTestConn(apiURL string) *pos.ConnectionContext {
	return &pos.ConnectionContext{
		TenantID: uuid.New(),
		SystemID: CloudPOSSystemID,
		Credentials: vault.Credentials{
			"api_url": apiURL,
			"api_key": "pos-key-1",
		},
	}
}
