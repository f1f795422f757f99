package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
)

// APIKeyAdapter connects to suppliers that take a static key on every
// request. Same REST convention as oauth2, without the token dance.
type APIKeyAdapter struct {
	client *Client
	logger *zap.Logger
}

// NewAPIKeyAdapter creates the adapter for api_key suppliers
func NewAPIKeyAdapter(client *Client, logger *zap.Logger) *APIKeyAdapter {
	return &APIKeyAdapter{client: client, logger: logger}
}

// Kind returns the integration kind this adapter handles
func (a *APIKeyAdapter) Kind() supplier.IntegrationKind {
	return supplier.KindAPIKey
}

// Capabilities returns the operations this adapter supports
func (a *APIKeyAdapter) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityCatalogFetch,
		integration.CapabilityOrderSubmit,
		integration.CapabilityStatusCheck,
	)
}

// TestConnection pings the supplier with the configured key
func (a *APIKeyAdapter) TestConnection(ctx context.Context, conn *integration.ConnectionContext) error {
	if err := conn.Validate(); err != nil {
		return err
	}
	base, err := apiBaseURL(conn)
	if err != nil {
		return err
	}

	resp, err := a.client.do(ctx, http.MethodGet, base+restPingPath, a.keyHeader(conn), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}
	if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
		return fmt.Errorf("%w: API key rejected", integration.ErrConnectionFailed)
	}
	if !resp.ok() {
		return fmt.Errorf("%w: ping returned HTTP %d", integration.ErrConnectionFailed, resp.status)
	}
	return nil
}

// FetchCatalog retrieves the supplier's current product list
func (a *APIKeyAdapter) FetchCatalog(ctx context.Context, conn *integration.ConnectionContext) ([]integration.Product, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	base, err := apiBaseURL(conn)
	if err != nil {
		return nil, err
	}

	catalogURL := base + restCatalogPath
	if account := accountFields(conn.Credentials, "api_key"); len(account) > 0 {
		catalogURL += "?" + encodeQuery(account)
	}

	resp, err := a.client.do(ctx, http.MethodGet, catalogURL, a.keyHeader(conn), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%w: catalog endpoint returned %s", integration.ErrFetchFailed, rejectionDetail(resp))
	}

	var body restCatalogResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, fmt.Errorf("%w: malformed catalog body: %v", integration.ErrFetchFailed, err)
	}

	products, err := mapRestProducts(body.Products)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}
	return products, nil
}

// SubmitOrder pushes an order through the supplier's REST endpoint
func (a *APIKeyAdapter) SubmitOrder(ctx context.Context, conn *integration.ConnectionContext, req *order.Request) (*integration.OrderAck, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	base, err := apiBaseURL(conn)
	if err != nil {
		return nil, err
	}

	payload := buildOrderPayload(req, accountFields(conn.Credentials, "api_key"))
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal order: %v", integration.ErrOrderRejected, err)
	}

	header := a.keyHeader(conn)
	header.Set("Content-Type", "application/json")

	resp, err := a.client.do(ctx, http.MethodPost, base+restOrdersPath, header, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderUnreachable, err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%w: %s", integration.ErrOrderRejected, rejectionDetail(resp))
	}

	var ack restOrderAck
	if err := json.Unmarshal(resp.body, &ack); err != nil {
		return nil, fmt.Errorf("%w: malformed acknowledgment: %v", integration.ErrOrderRejected, err)
	}
	if strings.TrimSpace(ack.Reference) == "" {
		return nil, fmt.Errorf("%w: acknowledgment carries no reference", integration.ErrOrderRejected)
	}

	return &integration.OrderAck{
		ExternalRef: ack.Reference,
		AcceptedAt:  parseAckTime(ack.AcceptedAt),
		Message:     ack.Message,
	}, nil
}

// CheckOrderStatus queries the supplier for the state of a submitted order
func (a *APIKeyAdapter) CheckOrderStatus(ctx context.Context, conn *integration.ConnectionContext, externalRef string) (*integration.StatusReport, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	base, err := apiBaseURL(conn)
	if err != nil {
		return nil, err
	}

	statusURL := base + fmt.Sprintf(restOrderStatusPath, url.PathEscape(externalRef))
	resp, err := a.client.do(ctx, http.MethodGet, statusURL, a.keyHeader(conn), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%w: status endpoint returned %s", integration.ErrFetchFailed, rejectionDetail(resp))
	}

	return parseStatusReport(resp.body, externalRef)
}

// DeliverDocument is unsupported; api_key suppliers take orders over the API
func (a *APIKeyAdapter) DeliverDocument(ctx context.Context, conn *integration.ConnectionContext, req *order.Request, doc *integration.Document) error {
	return fmt.Errorf("%w: api_key has no document channel", integration.ErrCapabilityNotSupported)
}

func (a *APIKeyAdapter) keyHeader(conn *integration.ConnectionContext) http.Header {
	header := http.Header{}
	header.Set("X-API-Key", conn.Credentials.Get("api_key"))
	return header
}

var _ integration.ProviderAdapter = (*APIKeyAdapter)(nil)
