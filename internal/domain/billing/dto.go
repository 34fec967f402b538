package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinika/clinika-api/internal/domain/ledger"
)

// TopUpRequest starts a credit purchase. Credits are whole units; the
// monetary charge is derived server-side from the configured unit price.
type TopUpRequest struct {
	Credits   int64  `json:"credits" validate:"required,gte=1"`
	PromoCode string `json:"promo_code,omitempty"`
}

// TopUpResponse carries the gateway order handle back to the client
type TopUpResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	OrderID       string    `json:"order_id"`
	CheckoutURL   string    `json:"checkout_url"`
	Credits       int64     `json:"credits"`
	Charge        string    `json:"charge"`
	Discount      string    `json:"discount,omitempty"`
	BonusCredits  int64     `json:"bonus_credits,omitempty"`
	Currency      string    `json:"currency"`
}

// LeadDeliveredEvent is the catalog system's billing trigger.
// Delivery is at-least-once; the lead id is the idempotency key.
type LeadDeliveredEvent struct {
	ClinicID     uuid.UUID `json:"clinic_id" validate:"required"`
	LeadID       uuid.UUID `json:"lead_id" validate:"required"`
	PackageValue int64     `json:"package_value" validate:"required,gte=1"`
}

// DeductionResult reports the outcome of a lead deduction
type DeductionResult struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Cost          int64     `json:"cost"`
	Balance       int64     `json:"balance"`
	LowBalance    bool      `json:"low_balance"`
	Duplicate     bool      `json:"duplicate"`
}

// ConfirmResult reports the outcome of a payment confirmation
type ConfirmResult struct {
	TransactionID    uuid.UUID `json:"transaction_id"`
	Credits          int64     `json:"credits"`
	BonusCredits     int64     `json:"bonus_credits,omitempty"`
	Balance          int64     `json:"balance"`
	AlreadyProcessed bool      `json:"already_processed"`
}

// AdjustRequest is the admin manual credit/debit payload
type AdjustRequest struct {
	ClinicID uuid.UUID `json:"clinic_id" validate:"required"`
	Amount   int64     `json:"amount" validate:"required"`
	Reason   string    `json:"reason" validate:"required,min=3,max=500"`
}

// BalanceResponse is the clinic-facing balance view
type BalanceResponse struct {
	ClinicID   uuid.UUID `json:"clinic_id"`
	Balance    int64     `json:"balance"`
	LowBalance bool      `json:"low_balance"`
}

// TransactionResponse is the read-model of a ledger entry
type TransactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	Amount      int64      `json:"amount"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	LeadID      *uuid.UUID `json:"lead_id,omitempty"`
	OrderID     string     `json:"order_id,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toTransactionResponse(t *ledger.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:          t.ID,
		Amount:      t.Amount,
		Kind:        string(t.Kind),
		Status:      string(t.Status),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
	if t.LeadID.Valid {
		id := t.LeadID.UUID
		resp.LeadID = &id
	}
	if t.OrderID.Valid {
		resp.OrderID = t.OrderID.String
	}
	if t.CompletedAt.Valid {
		ts := t.CompletedAt.Time
		resp.CompletedAt = &ts
	}
	return resp
}
