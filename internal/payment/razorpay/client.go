// Package razorpay is a minimal client for the slice of the Razorpay
// API the checkout flow needs: order creation and signature checks.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the production Razorpay API endpoint.
const DefaultBaseURL = "https://api.razorpay.com"

// ErrConfigMissing is returned when an operation requires gateway
// credentials that were not configured. Always fail closed: no remote
// call and no local mutation happens without them.
var ErrConfigMissing = errors.New("payment configuration missing")

// Config holds the gateway credentials, loaded from the environment
// names Razorpay documents (RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET,
// RAZORPAY_WEBHOOK_SECRET).
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// GatewayError is a non-2xx response from the gateway.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Body)
}

// Client calls the Razorpay REST API with basic auth.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint; tests point it at a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a gateway client. Both credentials are required.
func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrConfigMissing
	}
	c := &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   DefaultBaseURL,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// KeyID returns the public key id handed to the browser checkout widget.
func (c *Client) KeyID() string {
	return c.keyID
}

// OrderRequest is the payload for creating a remote gateway order.
// Amount is in currency minor units (paise for INR).
type OrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

// RemoteOrder is the gateway's view of a created order. Raw keeps the
// unparsed response body for the payment audit log.
type RemoteOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`

	Raw []byte `json:"-"`
}

// CreateOrder registers an order with the gateway so the client widget
// can collect a payment against it.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*RemoteOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read gateway response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var remote RemoteOrder
	if err := json.Unmarshal(respBody, &remote); err != nil {
		return nil, errors.Wrap(err, "decode gateway response")
	}
	if remote.ID == "" {
		return nil, errors.New("gateway response missing order id")
	}
	remote.Raw = respBody

	return &remote, nil
}
