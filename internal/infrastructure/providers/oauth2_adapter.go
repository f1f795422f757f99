package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
)

const oauthTokenPath = "/oauth/token"

// OAuth2Adapter connects to suppliers that expose the uniform REST
// convention behind an OAuth2 client-credentials grant.
type OAuth2Adapter struct {
	client *Client
	tokens *tokenCache
	logger *zap.Logger
}

// NewOAuth2Adapter creates the adapter for api_oauth2 suppliers
func NewOAuth2Adapter(client *Client, logger *zap.Logger) *OAuth2Adapter {
	return &OAuth2Adapter{
		client: client,
		tokens: newTokenCache(),
		logger: logger,
	}
}

// Kind returns the integration kind this adapter handles
func (a *OAuth2Adapter) Kind() supplier.IntegrationKind {
	return supplier.KindAPIOAuth2
}

// Capabilities returns the operations this adapter supports
func (a *OAuth2Adapter) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityCatalogFetch,
		integration.CapabilityOrderSubmit,
		integration.CapabilityStatusCheck,
	)
}

// TestConnection exchanges credentials for a fresh token. The cache is
// bypassed so a stale success cannot mask revoked credentials.
func (a *OAuth2Adapter) TestConnection(ctx context.Context, conn *integration.ConnectionContext) error {
	if err := conn.Validate(); err != nil {
		return err
	}

	a.tokens.invalidate(a.tokenKey(conn))
	if _, err := a.token(ctx, conn); err != nil {
		return err
	}
	return nil
}

// FetchCatalog retrieves the supplier's current product list
func (a *OAuth2Adapter) FetchCatalog(ctx context.Context, conn *integration.ConnectionContext) ([]integration.Product, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	base, err := apiBaseURL(conn)
	if err != nil {
		return nil, err
	}
	token, err := a.token(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}

	catalogURL := base + restCatalogPath
	if account := accountFields(conn.Credentials, "client_id", "client_secret"); len(account) > 0 {
		catalogURL += "?" + encodeQuery(account)
	}

	resp, err := a.client.do(ctx, http.MethodGet, catalogURL, bearerHeader(token), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}
	if resp.status == http.StatusUnauthorized {
		// The supplier revoked the token server side; drop it so the next
		// attempt re-authenticates instead of waiting out the cached expiry.
		a.tokens.invalidate(a.tokenKey(conn))
		return nil, fmt.Errorf("%w: access token rejected", integration.ErrFetchFailed)
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
func (a *OAuth2Adapter) SubmitOrder(ctx context.Context, conn *integration.ConnectionContext, req *order.Request) (*integration.OrderAck, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	base, err := apiBaseURL(conn)
	if err != nil {
		return nil, err
	}
	token, err := a.token(ctx, conn)
	if err != nil {
		// Failing to authenticate is a transport problem, not a supplier
		// decision about this order.
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderUnreachable, err)
	}

	payload := buildOrderPayload(req, accountFields(conn.Credentials, "client_id", "client_secret"))
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal order: %v", integration.ErrOrderRejected, err)
	}

	header := bearerHeader(token)
	header.Set("Content-Type", "application/json")

	resp, err := a.client.do(ctx, http.MethodPost, base+restOrdersPath, header, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderUnreachable, err)
	}
	if resp.status == http.StatusUnauthorized {
		a.tokens.invalidate(a.tokenKey(conn))
		return nil, fmt.Errorf("%w: access token rejected", integration.ErrOrderUnreachable)
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
func (a *OAuth2Adapter) CheckOrderStatus(ctx context.Context, conn *integration.ConnectionContext, externalRef string) (*integration.StatusReport, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	base, err := apiBaseURL(conn)
	if err != nil {
		return nil, err
	}
	token, err := a.token(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}

	statusURL := base + fmt.Sprintf(restOrderStatusPath, url.PathEscape(externalRef))
	resp, err := a.client.do(ctx, http.MethodGet, statusURL, bearerHeader(token), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}
	if resp.status == http.StatusUnauthorized {
		a.tokens.invalidate(a.tokenKey(conn))
		return nil, fmt.Errorf("%w: access token rejected", integration.ErrConnectionFailed)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%w: status endpoint returned %s", integration.ErrFetchFailed, rejectionDetail(resp))
	}

	return parseStatusReport(resp.body, externalRef)
}

// DeliverDocument is unsupported; oauth2 suppliers take orders over the API
func (a *OAuth2Adapter) DeliverDocument(ctx context.Context, conn *integration.ConnectionContext, req *order.Request, doc *integration.Document) error {
	return fmt.Errorf("%w: api_oauth2 has no document channel", integration.ErrCapabilityNotSupported)
}

// token returns a cached access token or fetches a fresh one
func (a *OAuth2Adapter) token(ctx context.Context, conn *integration.ConnectionContext) (string, error) {
	key := a.tokenKey(conn)
	if tok, ok := a.tokens.get(key); ok {
		return tok, nil
	}

	base, err := apiBaseURL(conn)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", conn.Credentials.Get("client_id"))
	form.Set("client_secret", conn.Credentials.Get("client_secret"))

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.do(ctx, http.MethodPost, base+oauthTokenPath, header, []byte(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}
	if !resp.ok() {
		return "", fmt.Errorf("%w: token endpoint returned %s", integration.ErrConnectionFailed, rejectionDetail(resp))
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.body, &tr); err != nil {
		return "", fmt.Errorf("%w: malformed token response: %v", integration.ErrConnectionFailed, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: token response carries no access_token", integration.ErrConnectionFailed)
	}

	expiresAt := tokenExpiry(tr.AccessToken, tr.ExpiresIn)
	a.tokens.put(key, tr.AccessToken, expiresAt)

	a.logger.Debug("obtained supplier access token",
		zap.String("supplier_id", conn.Definition.ID),
		zap.String("tenant_id", conn.TenantID.String()),
		zap.Time("expires_at", expiresAt))

	return tr.AccessToken, nil
}

func (a *OAuth2Adapter) tokenKey(conn *integration.ConnectionContext) string {
	return conn.TenantID.String() + "|" + conn.Definition.ID
}

// bearerHeader builds the Authorization header for an access token
func bearerHeader(token string) http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return header
}

// encodeQuery renders account fields as a query string
func encodeQuery(fields map[string]string) string {
	values := url.Values{}
	for name, value := range fields {
		values.Set(name, value)
	}
	return values.Encode()
}

// parseStatusReport converts a status body into a report with poll evidence
func parseStatusReport(body []byte, externalRef string) (*integration.StatusReport, error) {
	var sr restStatusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: malformed status body: %v", integration.ErrFetchFailed, err)
	}

	status, known := mapRemoteOrderStatus(sr.Status)
	if !known {
		return nil, fmt.Errorf("%w: supplier reported unrecognized status %q", integration.ErrFetchFailed, sr.Status)
	}

	reference := sr.Reference
	if reference == "" {
		reference = externalRef
	}

	return &integration.StatusReport{
		Status: status,
		Evidence: order.StatusEvidence{
			Source:     order.EvidenceSourceAPIPoll,
			Reference:  reference,
			Note:       "supplier status " + sr.Status,
			ObservedAt: time.Now(),
		},
	}, nil
}

var _ integration.ProviderAdapter = (*OAuth2Adapter)(nil)
