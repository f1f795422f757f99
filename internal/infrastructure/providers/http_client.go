// Package providers implements the supplier connector adapters: one adapter
// per integration kind, all satisfying the integration.ProviderAdapter port.
package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultClientTimeout  = 30 * time.Second
	defaultRequestsPerSec = 5.0
	defaultBurst          = 10
	defaultMaxBody        = 8 << 20 // 8MB
	clientUserAgent       = "restohub-integrations/1.0"
)

// ClientConfig tunes the shared supplier HTTP client
type ClientConfig struct {
	// Timeout bounds one round trip including body read
	Timeout time.Duration
	// RequestsPerSec throttles outbound calls across all suppliers
	RequestsPerSec float64
	// Burst is the token bucket burst size
	Burst int
	// MaxResponseBytes caps how much of a response body is read
	MaxResponseBytes int64
}

// Client is the HTTP transport shared by the REST-speaking adapters. Calls
// are throttled through a token bucket so a burst of catalog refreshes
// cannot hammer supplier endpoints, and response bodies are capped so a
// misbehaving supplier cannot exhaust memory.
type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
	maxBody int64
}

// NewClient builds a throttled client with sane defaults
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultClientTimeout
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = defaultRequestsPerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxBody
	}

	return &Client{
		hc:      &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		maxBody: cfg.MaxResponseBytes,
	}
}

// response is one completed supplier round trip
type response struct {
	status int
	body   []byte
}

// do performs a throttled request and reads the capped body. Transport
// errors are returned raw; callers wrap them in the sentinel that fits the
// operation.
func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", clientUserAgent)
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("response exceeds %d byte cap", c.maxBody)
	}

	return &response{status: resp.StatusCode, body: data}, nil
}

// ok reports whether the response carries a 2xx status
func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}
