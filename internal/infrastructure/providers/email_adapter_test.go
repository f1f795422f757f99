package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/domain/vault"
	"github.com/restohub/backend/internal/infrastructure/mail"
)

// captureTransport records the last message instead of sending it
type captureTransport struct {
	sent    []*mail.Message
	sendErr error
}

func (c *captureTransport) Send(ctx context.Context, msg *mail.Message) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func TestEmailAdapter_Capabilities(t *testing.T) {
	adapter := NewEmailAdapter(&captureTransport{}, zap.NewNop())

	assert.Equal(t, supplier.KindEmail, adapter.Kind())

	caps := adapter.Capabilities()
	assert.True(t, caps.Has(integration.CapabilityDocumentDelivery))
	assert.False(t, caps.Has(integration.CapabilityCatalogFetch))
	assert.False(t, caps.Has(integration.CapabilityOrderSubmit))
	assert.False(t, caps.Has(integration.CapabilityStatusCheck))
}

func TestEmailAdapter_TestConnection(t *testing.T) {
	adapter := NewEmailAdapter(&captureTransport{}, zap.NewNop())

	t.Run("valid address", func(t *testing.T) {
		assert.NoError(t, adapter.TestConnection(context.Background(), emailTestConn()))
	})

	t.Run("malformed address", func(t *testing.T) {
		conn := emailTestConn()
		conn.Credentials["supplier_email"] = "not-an-address"
		assert.ErrorIs(t, adapter.TestConnection(context.Background(), conn), integration.ErrNotConfigured)
	})

	t.Run("missing address", func(t *testing.T) {
		conn := emailTestConn()
		delete(conn.Credentials, "supplier_email")
		assert.ErrorIs(t, adapter.TestConnection(context.Background(), conn), integration.ErrNotConfigured)
	})
}

func TestEmailAdapter_UnsupportedOperations(t *testing.T) {
	adapter := NewEmailAdapter(&captureTransport{}, zap.NewNop())
	conn := emailTestConn()

	_, err := adapter.FetchCatalog(context.Background(), conn)
	assert.ErrorIs(t, err, integration.ErrCapabilityNotSupported)

	_, err = adapter.SubmitOrder(context.Background(), conn, testOrderRequest())
	assert.ErrorIs(t, err, integration.ErrCapabilityNotSupported)

	_, err = adapter.CheckOrderStatus(context.Background(), conn, "REF-1")
	assert.ErrorIs(t, err, integration.ErrCapabilityNotSupported)
}

func TestEmailAdapter_DeliverDocument(t *testing.T) {
	doc := &integration.Document{
		Filename:    "order-ord-4821.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7 order sheet"),
	}

	t.Run("dispatches the order sheet", func(t *testing.T) {
		transport := &captureTransport{}
		adapter := NewEmailAdapter(transport, zap.NewNop())

		req := testOrderRequest()
		req.Notes = "ring the bell twice"

		err := adapter.DeliverDocument(context.Background(), emailTestConn(), req, doc)
		require.NoError(t, err)
		require.Len(t, transport.sent, 1)

		msg := transport.sent[0]
		assert.Equal(t, []string{"orders@localharvest.example"}, msg.To)
		assert.Equal(t, "Order Request - ord-4821 - Local Harvest Co", msg.Subject)
		assert.Contains(t, msg.TextBody, "Dear Local Harvest Co Team,")
		assert.Contains(t, msg.TextBody, "purchase order ord-4821")
		assert.Contains(t, msg.TextBody, "3 case x Roma Tomatoes 5kg (BF-TOM-01)")
		assert.Contains(t, msg.TextBody, "urgent")
		assert.Contains(t, msg.TextBody, "ring the bell twice")
		assert.Contains(t, msg.TextBody, "Dana Kim")

		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, "order-ord-4821.pdf", msg.Attachments[0].Filename)
		assert.Equal(t, doc.Content, msg.Attachments[0].Content)
	})

	t.Run("falls back to definition name", func(t *testing.T) {
		transport := &captureTransport{}
		adapter := NewEmailAdapter(transport, zap.NewNop())

		conn := emailTestConn()
		delete(conn.Credentials, "supplier_name")
		conn.Definition.RequiredConfig = []string{"supplier_email"}

		require.NoError(t, adapter.DeliverDocument(context.Background(), conn, testOrderRequest(), doc))
		assert.Contains(t, transport.sent[0].TextBody, "Dear Local Harvest Team,")
	})

	t.Run("relay failure is retryable", func(t *testing.T) {
		transport := &captureTransport{sendErr: errors.New("relay refused connection")}
		adapter := NewEmailAdapter(transport, zap.NewNop())

		err := adapter.DeliverDocument(context.Background(), emailTestConn(), testOrderRequest(), doc)
		assert.ErrorIs(t, err, integration.ErrOrderUnreachable)
		assert.True(t, integration.IsRetryable(err))
	})

	t.Run("missing document", func(t *testing.T) {
		adapter := NewEmailAdapter(&captureTransport{}, zap.NewNop())
		err := adapter.DeliverDocument(context.Background(), emailTestConn(), testOrderRequest(), nil)
		assert.Error(t, err)
	})
}

// emailTestConn builds a connection context for an email supplier
func emailTestConn() *integration.ConnectionContext {
	return &integration.ConnectionContext{
		TenantID: uuid.New(),
		Definition: &supplier.SupplierDefinition{
			ID:             "localharvest",
			Name:           "Local Harvest",
			Kind:           supplier.KindEmail,
			RequiredConfig: []string{"supplier_name", "supplier_email"},
		},
		Credentials: vault.Credentials{
			"supplier_name":  "Local Harvest Co",
			"supplier_email": "orders@localharvest.example",
		},
	}
}
