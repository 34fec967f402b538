package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds payment processor configuration
type Config struct {
	BaseURL     string
	MerchantID  string
	Secret      string // shared secret for callback signatures
	CallbackURL string // where the processor posts confirmations
	TestMode    bool
	Timeout     time.Duration
}

// Client represents the payment processor client.
// It creates purchase orders and verifies confirmation callbacks; it never
// touches the ledger itself.
type Client struct {
	httpClient *http.Client
	config     Config
}

// CreateOrderRequest represents order creation request
type CreateOrderRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Reference   string // internal transaction reference
	Description string
}

// Order represents the processor's order handle
type Order struct {
	OrderID     string `json:"order_id"`
	PublicKey   string `json:"public_key"`
	CheckoutURL string `json:"checkout_url"`
	Amount      string `json:"amount"`
}

type createOrderPayload struct {
	MerchantID  string `json:"merchant_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
	IsTest      bool   `json:"is_test,omitempty"`
}

// NewClient creates new payment processor client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// CreateOrder asks the processor for a new order and returns its handle.
// The amount must already include any promo discount.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("gateway client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return nil, fmt.Errorf("gateway config error: base_url is empty")
	}
	if strings.TrimSpace(c.config.MerchantID) == "" {
		return nil, fmt.Errorf("gateway config error: merchant_id is empty")
	}

	payload := createOrderPayload{
		MerchantID:  c.config.MerchantID,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Reference:   req.Reference,
		Description: req.Description,
		CallbackURL: c.config.CallbackURL,
		IsTest:      c.config.TestMode,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	url := base + "/api/v1/orders"

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("gateway api call failed: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Merchant-ID", c.config.MerchantID)
	httpReq.Header.Set("X-Signature", SignPayload(jsonData, c.config.Secret))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway api returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	var out Order
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}
	if strings.TrimSpace(out.OrderID) == "" {
		return nil, fmt.Errorf("gateway returned empty order id")
	}

	return &out, nil
}

// VerifyCallback checks a confirmation callback signature against the
// configured shared secret
func (c *Client) VerifyCallback(orderID, paymentID, signature string) bool {
	return Verify(orderID, paymentID, signature, c.config.Secret)
}
