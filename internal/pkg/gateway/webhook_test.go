package gateway

import (
	"strings"
	"testing"
)

func TestParseCallback(t *testing.T) {
	body := `{"order_id":"ord-1","payment_id":"pay-9","signature":"abc","status":"success"}`
	cb, err := ParseCallback(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.OrderID != "ord-1" || cb.PaymentID != "pay-9" || cb.Signature != "abc" {
		t.Fatalf("unexpected callback: %#v", cb)
	}
}

func TestParseCallback_MissingFields(t *testing.T) {
	cases := []string{
		`{"payment_id":"pay-9","signature":"abc"}`,
		`{"order_id":"ord-1","signature":"abc"}`,
		`{"order_id":"ord-1","payment_id":"pay-9"}`,
		`not json`,
	}
	for _, body := range cases {
		if _, err := ParseCallback(strings.NewReader(body)); err == nil {
			t.Fatalf("expected error for body: %s", body)
		}
	}
}
