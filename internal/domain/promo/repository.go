package promo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const promoColumns = `
	id, code, discount_type, discount_value, bonus_credits, min_amount,
	max_discount, usage_limit, used_count, single_use_per_clinic, active,
	valid_from, valid_until, created_at, updated_at`

// Repository handles promo code database operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new promo repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new promo code
func (r *Repository) Create(ctx context.Context, p *PromoCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO promo_codes (
			id, code, discount_type, discount_value, bonus_credits, min_amount,
			max_discount, usage_limit, used_count, single_use_per_clinic, active,
			valid_from, valid_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, p.ID, p.Code, p.DiscountType, p.DiscountValue, p.BonusCredits, p.MinAmount,
		p.MaxDiscount, p.UsageLimit, p.UsedCount, p.SingleUsePerClinic, p.Active,
		p.ValidFrom, p.ValidUntil, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrCodeExists
		}
		return err
	}
	return nil
}

// GetByCode returns a promo code by its code string (case-insensitive)
func (r *Repository) GetByCode(ctx context.Context, code string) (*PromoCode, error) {
	var p PromoCode
	err := r.db.GetContext(ctx, &p, `
		SELECT `+promoColumns+`
		FROM promo_codes
		WHERE LOWER(code) = LOWER($1)
	`, strings.TrimSpace(code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a promo code by id
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*PromoCode, error) {
	var p PromoCode
	err := r.db.GetContext(ctx, &p, `
		SELECT `+promoColumns+`
		FROM promo_codes
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all promo codes, newest first
func (r *Repository) List(ctx context.Context) ([]PromoCode, error) {
	codes := make([]PromoCode, 0)
	err := r.db.SelectContext(ctx, &codes, `
		SELECT `+promoColumns+`
		FROM promo_codes
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// SetActive flips the active flag
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE promo_codes SET active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrPromoNotFound
	}
	return nil
}

// HasClinicUsage reports whether a clinic has already redeemed a code
func (r *Repository) HasClinicUsage(ctx context.Context, codeID, clinicID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM promo_usages WHERE promo_code_id = $1 AND clinic_id = $2
		)
	`, codeID, clinicID)
	return exists, err
}

// RedeemTx increments the usage counter and records the usage row inside the
// caller's purchase transaction. The guarded update makes the usage-limit
// race safe: a concurrent redemption of the last slot sees 0 rows affected.
func (r *Repository) RedeemTx(ctx context.Context, tx *sqlx.Tx, u *Usage, singleUse bool) error {
	if singleUse {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM promo_usages WHERE promo_code_id = $1 AND clinic_id = $2
			)
		`, u.PromoCodeID, u.ClinicID); err != nil {
			return err
		}
		if exists {
			return ErrPromoAlreadyRedeemed
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND used_count < usage_limit
	`, u.PromoCodeID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPromoExhausted
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO promo_usages (
			id, promo_code_id, clinic_id, transaction_id, discount_amount,
			bonus_credits, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.PromoCodeID, u.ClinicID, u.TransactionID, u.DiscountAmount,
		u.BonusCredits, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrPromoAlreadyRedeemed
		}
		return err
	}
	return nil
}

// GetUsageByTransaction returns the redemption recorded against a ledger
// transaction, if any
func (r *Repository) GetUsageByTransaction(ctx context.Context, transactionID uuid.UUID) (*Usage, error) {
	var u Usage
	err := r.db.GetContext(ctx, &u, `
		SELECT id, promo_code_id, clinic_id, transaction_id, discount_amount,
			bonus_credits, created_at
		FROM promo_usages
		WHERE transaction_id = $1
	`, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUsageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsages returns redemptions of a code, newest first
func (r *Repository) ListUsages(ctx context.Context, codeID uuid.UUID) ([]Usage, error) {
	usages := make([]Usage, 0)
	err := r.db.SelectContext(ctx, &usages, `
		SELECT id, promo_code_id, clinic_id, transaction_id, discount_amount,
			bonus_credits, created_at
		FROM promo_usages
		WHERE promo_code_id = $1
		ORDER BY created_at DESC
	`, codeID)
	if err != nil {
		return nil, err
	}
	return usages, nil
}
