package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/orders" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Merchant-ID") != "m-1" {
			t.Errorf("missing merchant header")
		}
		if r.Header.Get("X-Signature") == "" {
			t.Errorf("missing request signature")
		}

		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if payload["amount"] != "990.00" {
			t.Errorf("unexpected amount: %v", payload["amount"])
		}

		json.NewEncoder(w).Encode(Order{
			OrderID:     "ord-42",
			PublicKey:   "pk_test",
			CheckoutURL: "https://pay.example.kz/checkout/ord-42",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, MerchantID: "m-1", Secret: "s"})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:    decimal.RequireFromString("990"),
		Currency:  "KZT",
		Reference: "tx-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.OrderID != "ord-42" {
		t.Fatalf("unexpected order id: %s", order.OrderID)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://example", MerchantID: "m-1"})

	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:    decimal.Zero,
		Reference: "tx-1",
	}); err == nil {
		t.Fatal("expected error for zero amount")
	}

	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount: decimal.RequireFromString("10"),
	}); err == nil {
		t.Fatal("expected error for empty reference")
	}
}

func TestCreateOrder_EmptyOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Order{})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, MerchantID: "m-1"})
	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:    decimal.RequireFromString("10"),
		Reference: "tx-1",
	}); err == nil {
		t.Fatal("expected error for empty order id in response")
	}
}
