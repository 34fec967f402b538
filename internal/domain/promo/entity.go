package promo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType distinguishes percentage and fixed-amount codes
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode is a discount/bonus code redeemable against a top-up charge.
// used_count <= usage_limit is maintained by the guarded update in RedeemTx,
// backed by a CHECK constraint in the promo_codes migration.
type PromoCode struct {
	ID                 uuid.UUID           `db:"id"`
	Code               string              `db:"code"`
	DiscountType       DiscountType        `db:"discount_type"`
	DiscountValue      decimal.Decimal     `db:"discount_value"`
	BonusCredits       int64               `db:"bonus_credits"`
	MinAmount          decimal.Decimal     `db:"min_amount"`
	MaxDiscount        decimal.NullDecimal `db:"max_discount"`
	UsageLimit         int                 `db:"usage_limit"`
	UsedCount          int                 `db:"used_count"`
	SingleUsePerClinic bool                `db:"single_use_per_clinic"`
	Active             bool                `db:"active"`
	ValidFrom          time.Time           `db:"valid_from"`
	ValidUntil         time.Time           `db:"valid_until"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
}

// Usage records one redemption. The monetary effect lives in the ledger
// transaction the row references, never here alone.
type Usage struct {
	ID             uuid.UUID       `db:"id"`
	PromoCodeID    uuid.UUID       `db:"promo_code_id"`
	ClinicID       uuid.UUID       `db:"clinic_id"`
	TransactionID  uuid.UUID       `db:"transaction_id"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	BonusCredits   int64           `db:"bonus_credits"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Application is the computed result of validating a code against a charge.
// The billing service must apply it atomically with the purchase transaction.
type Application struct {
	CodeID       uuid.UUID
	Code         string
	Discount     decimal.Decimal
	BonusCredits int64
	FinalAmount  decimal.Decimal
}

// DiscountFor computes the discount a code grants against a charge.
// Percentage discounts are capped by MaxDiscount when set; no discount
// ever exceeds the charge itself.
func (p *PromoCode) DiscountFor(amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch p.DiscountType {
	case DiscountPercentage:
		d = amount.Mul(p.DiscountValue).Div(decimal.NewFromInt(100))
		if p.MaxDiscount.Valid && d.GreaterThan(p.MaxDiscount.Decimal) {
			d = p.MaxDiscount.Decimal
		}
	case DiscountFixed:
		d = p.DiscountValue
	}
	if d.GreaterThan(amount) {
		d = amount
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2)
}
