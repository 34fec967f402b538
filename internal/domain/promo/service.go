package promo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Service validates and redeems promo codes. Redemption happens inside the
// billing service's purchase transaction; validation alone never mutates.
type Service struct {
	repo *Repository
}

// NewService creates a new promo service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Validate checks a code against a charge amount and returns the computed
// application. Checks run in order: existence, active flag, validity window,
// minimum amount, usage limit, single-use policy. The usage-limit and
// single-use checks here are advisory; RedeemTx re-enforces both under the
// purchase transaction.
func (s *Service) Validate(ctx context.Context, code string, clinicID uuid.UUID, amount decimal.Decimal) (*Application, error) {
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !p.Active {
		return nil, ErrPromoInactive
	}

	now := time.Now()
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return nil, ErrPromoExpired
	}

	if amount.LessThan(p.MinAmount) {
		return nil, ErrPromoBelowMinimum
	}

	if p.UsedCount >= p.UsageLimit {
		return nil, ErrPromoExhausted
	}

	if p.SingleUsePerClinic {
		used, err := s.repo.HasClinicUsage(ctx, p.ID, clinicID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrPromoAlreadyRedeemed
		}
	}

	discount := p.DiscountFor(amount)
	return &Application{
		CodeID:       p.ID,
		Code:         p.Code,
		Discount:     discount,
		BonusCredits: p.BonusCredits,
		FinalAmount:  amount.Sub(discount),
	}, nil
}

// Redeem applies a validated application inside the caller's transaction:
// usage counter, usage row, and the caller's ledger writes commit together
// or not at all.
func (s *Service) Redeem(ctx context.Context, tx *sqlx.Tx, app *Application, clinicID, transactionID uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, app.CodeID)
	if err != nil {
		return err
	}

	return s.repo.RedeemTx(ctx, tx, &Usage{
		ID:             uuid.New(),
		PromoCodeID:    app.CodeID,
		ClinicID:       clinicID,
		TransactionID:  transactionID,
		DiscountAmount: app.Discount,
		BonusCredits:   app.BonusCredits,
		CreatedAt:      time.Now(),
	}, p.SingleUsePerClinic)
}

// CreateCode registers a new promo code (admin)
func (s *Service) CreateCode(ctx context.Context, req *CreateCodeRequest) (*PromoCode, error) {
	discountValue, err := decimal.NewFromString(req.DiscountValue)
	if err != nil {
		return nil, err
	}
	minAmount := decimal.Zero
	if req.MinAmount != "" {
		if minAmount, err = decimal.NewFromString(req.MinAmount); err != nil {
			return nil, err
		}
	}
	var maxDiscount decimal.NullDecimal
	if req.MaxDiscount != "" {
		d, err := decimal.NewFromString(req.MaxDiscount)
		if err != nil {
			return nil, err
		}
		maxDiscount = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	now := time.Now()
	p := &PromoCode{
		ID:                 uuid.New(),
		Code:               req.Code,
		DiscountType:       DiscountType(req.DiscountType),
		DiscountValue:      discountValue,
		BonusCredits:       req.BonusCredits,
		MinAmount:          minAmount,
		MaxDiscount:        maxDiscount,
		UsageLimit:         req.UsageLimit,
		SingleUsePerClinic: req.SingleUsePerClinic,
		Active:             true,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListCodes returns all codes (admin)
func (s *Service) ListCodes(ctx context.Context) ([]PromoCode, error) {
	return s.repo.List(ctx)
}

// GetCode returns one code (admin)
func (s *Service) GetCode(ctx context.Context, id uuid.UUID) (*PromoCode, error) {
	return s.repo.GetByID(ctx, id)
}

// DeactivateCode disables a code without deleting its usage history (admin)
func (s *Service) DeactivateCode(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, false)
}

// UsageForTransaction returns the redemption recorded against a ledger
// transaction, or ErrUsageNotFound when the purchase carried no redemption
func (s *Service) UsageForTransaction(ctx context.Context, transactionID uuid.UUID) (*Usage, error) {
	return s.repo.GetUsageByTransaction(ctx, transactionID)
}

// Usages returns the redemption history of a code (admin)
func (s *Service) Usages(ctx context.Context, codeID uuid.UUID) ([]Usage, error) {
	return s.repo.ListUsages(ctx, codeID)
}
