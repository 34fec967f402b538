package promo

import (
	"time"

	"github.com/google/uuid"
)

// CreateCodeRequest is the admin payload for registering a code.
// Monetary strings keep decimal precision across the wire.
type CreateCodeRequest struct {
	Code               string    `json:"code" validate:"required,min=3,max=32,alphanum"`
	DiscountType       string    `json:"discount_type" validate:"required,discount_type"`
	DiscountValue      string    `json:"discount_value" validate:"required"`
	BonusCredits       int64     `json:"bonus_credits" validate:"gte=0"`
	MinAmount          string    `json:"min_amount,omitempty"`
	MaxDiscount        string    `json:"max_discount,omitempty"`
	UsageLimit         int       `json:"usage_limit" validate:"required,gte=1"`
	SingleUsePerClinic bool      `json:"single_use_per_clinic"`
	ValidFrom          time.Time `json:"valid_from" validate:"required"`
	ValidUntil         time.Time `json:"valid_until" validate:"required,gtfield=ValidFrom"`
}

// ValidateRequest previews a code against a charge without redeeming it
type ValidateRequest struct {
	Code   string `json:"code" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// ApplicationResponse is the preview result shown to the clinic
type ApplicationResponse struct {
	Code         string `json:"code"`
	Discount     string `json:"discount"`
	BonusCredits int64  `json:"bonus_credits"`
	FinalAmount  string `json:"final_amount"`
}

func (a *Application) ToResponse() *ApplicationResponse {
	return &ApplicationResponse{
		Code:         a.Code,
		Discount:     a.Discount.StringFixed(2),
		BonusCredits: a.BonusCredits,
		FinalAmount:  a.FinalAmount.StringFixed(2),
	}
}

// CodeResponse is the admin view of a promo code
type CodeResponse struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	DiscountType       string    `json:"discount_type"`
	DiscountValue      string    `json:"discount_value"`
	BonusCredits       int64     `json:"bonus_credits"`
	MinAmount          string    `json:"min_amount"`
	MaxDiscount        *string   `json:"max_discount,omitempty"`
	UsageLimit         int       `json:"usage_limit"`
	UsedCount          int       `json:"used_count"`
	SingleUsePerClinic bool      `json:"single_use_per_clinic"`
	Active             bool      `json:"active"`
	ValidFrom          time.Time `json:"valid_from"`
	ValidUntil         time.Time `json:"valid_until"`
	CreatedAt          time.Time `json:"created_at"`
}

func (p *PromoCode) ToResponse() *CodeResponse {
	resp := &CodeResponse{
		ID:                 p.ID,
		Code:               p.Code,
		DiscountType:       string(p.DiscountType),
		DiscountValue:      p.DiscountValue.String(),
		BonusCredits:       p.BonusCredits,
		MinAmount:          p.MinAmount.StringFixed(2),
		UsageLimit:         p.UsageLimit,
		UsedCount:          p.UsedCount,
		SingleUsePerClinic: p.SingleUsePerClinic,
		Active:             p.Active,
		ValidFrom:          p.ValidFrom,
		ValidUntil:         p.ValidUntil,
		CreatedAt:          p.CreatedAt,
	}
	if p.MaxDiscount.Valid {
		s := p.MaxDiscount.Decimal.StringFixed(2)
		resp.MaxDiscount = &s
	}
	return resp
}

// UsageResponse is one redemption row
type UsageResponse struct {
	ID             uuid.UUID `json:"id"`
	ClinicID       uuid.UUID `json:"clinic_id"`
	TransactionID  uuid.UUID `json:"transaction_id"`
	DiscountAmount string    `json:"discount_amount"`
	BonusCredits   int64     `json:"bonus_credits"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *Usage) ToResponse() *UsageResponse {
	return &UsageResponse{
		ID:             u.ID,
		ClinicID:       u.ClinicID,
		TransactionID:  u.TransactionID,
		DiscountAmount: u.DiscountAmount.StringFixed(2),
		BonusCredits:   u.BonusCredits,
		CreatedAt:      u.CreatedAt,
	}
}
