package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BuildSignatureBase builds the callback signature base string.
// The processor signs HMAC-SHA256 over "orderID|paymentID".
func BuildSignatureBase(orderID, paymentID string) string {
	return orderID + "|" + paymentID
}

// Sign computes the hex HMAC-SHA256 callback signature
func Sign(orderID, paymentID, secret string) string {
	if secret == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(BuildSignatureBase(orderID, paymentID)))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify validates a callback signature using constant-time comparison.
// A mismatch must never credit the account.
func Verify(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(BuildSignatureBase(orderID, paymentID)))
	expected := h.Sum(nil)

	given, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}

	return hmac.Equal(given, expected)
}

// SignPayload computes the hex HMAC-SHA256 signature of an outbound request body
func SignPayload(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
