package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Callback represents the processor's confirmation callback.
// The payment id must not be trusted until the signature is verified.
type Callback struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	Status    string `json:"status,omitempty"`
	IsTest    bool   `json:"is_test,omitempty"`
}

// ParseCallback decodes a confirmation callback body
func ParseCallback(body io.Reader) (*Callback, error) {
	var cb Callback
	if err := json.NewDecoder(body).Decode(&cb); err != nil {
		return nil, fmt.Errorf("invalid callback body: %w", err)
	}

	if strings.TrimSpace(cb.OrderID) == "" {
		return nil, fmt.Errorf("order_id is required")
	}
	if strings.TrimSpace(cb.PaymentID) == "" {
		return nil, fmt.Errorf("payment_id is required")
	}
	if strings.TrimSpace(cb.Signature) == "" {
		return nil, fmt.Errorf("signature is required")
	}

	return &cb, nil
}
