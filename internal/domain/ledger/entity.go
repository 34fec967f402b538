package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind defines supported credit transaction kinds.
type Kind string

const (
	KindPurchase        Kind = "purchase"
	KindLeadDeduction   Kind = "lead_deduction"
	KindRefund          Kind = "refund"
	KindPromoBonus      Kind = "promo_bonus"
	KindAdminAdjustment Kind = "admin_adjustment"
)

// Status defines the transaction lifecycle. Completed entries are immutable;
// only a new transaction can alter a balance after that.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReversed  Status = "reversed"
)

// Transaction is a ledger row. Amount is signed credits: positive credits
// the account, negative debits it.
//
// Idempotency lives in the credit_transactions migration as partial unique
// indexes: (clinic_id, lead_id) WHERE kind = 'lead_deduction' gives
// at-most-once deduction per lead; order_id WHERE order_id IS NOT NULL keys
// purchases to their gateway order; dispute_id WHERE kind = 'refund' caps a
// dispute at one refund.
type Transaction struct {
	ID           uuid.UUID           `db:"id"`
	ClinicID     uuid.UUID           `db:"clinic_id"`
	Amount       int64               `db:"amount"`
	Kind         Kind                `db:"kind"`
	Status       Status              `db:"status"`
	LeadID       uuid.NullUUID       `db:"lead_id"`
	OrderID      sql.NullString      `db:"order_id"`
	PaymentID    sql.NullString      `db:"payment_id"`
	PromoCodeID  uuid.NullUUID       `db:"promo_code_id"`
	DisputeID    uuid.NullUUID       `db:"dispute_id"`
	AdminID      uuid.NullUUID       `db:"admin_id"`
	ChargeAmount decimal.NullDecimal `db:"charge_amount"`
	Description  string              `db:"description"`
	CreatedAt    time.Time           `db:"created_at"`
	CompletedAt  sql.NullTime        `db:"completed_at"`
}

// Account is the cached, ledger-reconciled balance view for a clinic.
// The ledger itself is the source of truth.
type Account struct {
	ClinicID  uuid.UUID `db:"clinic_id"`
	Balance   int64     `db:"balance"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}

// SearchFilters provides admin-facing transaction filtering.
type SearchFilters struct {
	ClinicID *uuid.UUID
	Kind     *Kind
	Status   *Status
	LeadID   *uuid.UUID
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

func validKind(k Kind) bool {
	switch k {
	case KindPurchase, KindLeadDeduction, KindRefund, KindPromoBonus, KindAdminAdjustment:
		return true
	}
	return false
}
