package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/clinika/clinika-api/internal/domain/ledger"
	"github.com/clinika/clinika-api/internal/domain/pricing"
	"github.com/clinika/clinika-api/internal/domain/promo"
	"github.com/clinika/clinika-api/internal/pkg/gateway"
)

// Service orchestrates all balance-affecting flows. Nothing else writes to
// the ledger: deductions, top-ups, promo bonuses, refunds, and admin
// adjustments all go through here.
type Service struct {
	db      *sqlx.DB
	store   *ledger.Store
	pricing *pricing.Table
	promos  *promo.Service
	gateway *gateway.Client
	redis   *redis.Client // optional, nil in development

	unitPrice decimal.Decimal
	currency  string
	cacheTTL  time.Duration
}

// Options carries the pricing policy knobs from config
type Options struct {
	UnitPrice decimal.Decimal
	Currency  string
	CacheTTL  time.Duration
}

// NewService creates the billing service
func NewService(db *sqlx.DB, store *ledger.Store, table *pricing.Table, promos *promo.Service, gw *gateway.Client, rdb *redis.Client, opts Options) *Service {
	return &Service{
		db:        db,
		store:     store,
		pricing:   table,
		promos:    promos,
		gateway:   gw,
		redis:     rdb,
		unitPrice: opts.UnitPrice,
		currency:  opts.Currency,
		cacheTTL:  opts.CacheTTL,
	}
}

func balanceCacheKey(clinicID uuid.UUID) string {
	return "billing:balance:" + clinicID.String()
}

// GetBalance returns the clinic's balance, read-through cached when redis
// is configured. The ledger store remains authoritative.
func (s *Service) GetBalance(ctx context.Context, clinicID uuid.UUID) (int64, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, balanceCacheKey(clinicID)).Result()
		if err == nil {
			if balance, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return balance, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("balance cache read failed")
		}
	}

	balance, err := s.store.GetBalance(ctx, clinicID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, balanceCacheKey(clinicID), strconv.FormatInt(balance, 10), s.cacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("balance cache write failed")
		}
	}
	return balance, nil
}

func (s *Service) invalidateBalance(ctx context.Context, clinicID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, balanceCacheKey(clinicID)).Err(); err != nil {
		log.Warn().Err(err).Msg("balance cache invalidation failed")
	}
}

// DeductForLead charges a clinic for a delivered lead. At most one debit is
// ever written per lead id; retries observe the original debit. The balance
// may go negative — lead delivery is never blocked by low credit, the result
// only carries a low-balance signal.
func (s *Service) DeductForLead(ctx context.Context, clinicID, leadID uuid.UUID, packageValue int64) (*DeductionResult, error) {
	cost, err := s.pricing.PriceFor(packageValue)
	if err != nil {
		return nil, err
	}

	t := &ledger.Transaction{
		ClinicID:    clinicID,
		Amount:      -cost,
		Kind:        ledger.KindLeadDeduction,
		Status:      ledger.StatusCompleted,
		LeadID:      uuid.NullUUID{UUID: leadID, Valid: true},
		Description: fmt.Sprintf("lead delivery, package value %d", packageValue),
	}

	err = s.store.Append(ctx, t)
	duplicate := errors.Is(err, ledger.ErrDuplicate)
	if err != nil && !duplicate {
		return nil, err
	}

	if duplicate {
		existing, getErr := s.store.GetLeadDeduction(ctx, clinicID, leadID)
		if getErr != nil {
			return nil, getErr
		}
		t = existing
	} else {
		s.invalidateBalance(ctx, clinicID)
	}

	balance, err := s.store.GetBalance(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	low := balance < 0
	if low {
		log.Warn().
			Str("clinic_id", clinicID.String()).
			Int64("balance", balance).
			Msg("clinic balance below zero after lead deduction")
	}

	return &DeductionResult{
		TransactionID: t.ID,
		Cost:          -t.Amount,
		Balance:       balance,
		LowBalance:    low,
		Duplicate:     duplicate,
	}, nil
}

// InitiateTopUp creates a gateway order for a credit purchase and records a
// pending purchase transaction referencing it. The gateway call is the only
// external I/O; the ledger write happens after it succeeds.
func (s *Service) InitiateTopUp(ctx context.Context, clinicID uuid.UUID, credits int64, promoCode string) (*TopUpResponse, error) {
	if credits <= 0 {
		return nil, ErrInvalidAmount
	}

	if err := s.store.EnsureAccount(ctx, clinicID); err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, ledger.ErrAccountInactive
	}

	charge := s.unitPrice.Mul(decimal.NewFromInt(credits))

	var app *promo.Application
	if promoCode != "" {
		app, err = s.promos.Validate(ctx, promoCode, clinicID, charge)
		if err != nil {
			return nil, err
		}
		charge = app.FinalAmount
	}

	reference := uuid.New().String()
	order, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		Amount:      charge,
		Currency:    s.currency,
		Reference:   reference,
		Description: fmt.Sprintf("top-up of %d credits", credits),
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	t := &ledger.Transaction{
		ClinicID:     clinicID,
		Amount:       credits,
		Kind:         ledger.KindPurchase,
		Status:       ledger.StatusPending,
		OrderID:      sql.NullString{String: order.OrderID, Valid: true},
		ChargeAmount: decimal.NullDecimal{Decimal: charge, Valid: true},
		Description:  fmt.Sprintf("purchase of %d credits", credits),
	}
	if app != nil {
		t.PromoCodeID = uuid.NullUUID{UUID: app.CodeID, Valid: true}
	}

	if err := s.store.Append(ctx, t); err != nil {
		return nil, err
	}

	resp := &TopUpResponse{
		TransactionID: t.ID,
		OrderID:       order.OrderID,
		CheckoutURL:   order.CheckoutURL,
		Credits:       credits,
		Charge:        charge.StringFixed(2),
		Currency:      s.currency,
	}
	if app != nil {
		resp.Discount = app.Discount.StringFixed(2)
		resp.BonusCredits = app.BonusCredits
	}
	return resp, nil
}

// ConfirmTopUp finalizes a purchase from the processor's callback. The
// signature is verified locally before anything touches the ledger; an
// invalid signature marks the pending purchase failed and never credits.
// Confirmation is idempotent per (orderID, paymentID): a duplicate delivery
// observes the completed row and returns the same outcome without effects.
func (s *Service) ConfirmTopUp(ctx context.Context, orderID, paymentID, signature string) (*ConfirmResult, error) {
	if !s.gateway.VerifyCallback(orderID, paymentID, signature) {
		log.Warn().Str("order_id", orderID).Msg("payment callback signature mismatch")
		if t, err := s.store.GetByOrderID(ctx, orderID); err == nil && t.Status == ledger.StatusPending {
			if _, failErr := s.store.Fail(ctx, t.ID); failErr != nil {
				log.Error().Err(failErr).Str("order_id", orderID).Msg("failed to mark purchase failed")
			}
		}
		return nil, ErrSignatureMismatch
	}

	t, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	switch t.Status {
	case ledger.StatusCompleted:
		return s.alreadyConfirmed(ctx, t)
	case ledger.StatusFailed:
		return nil, ErrOrderClosed
	}

	result, err := s.completePurchase(ctx, t, paymentID, true)
	if errors.Is(err, promo.ErrPromoInvalid) {
		// the code was exhausted or consumed between initiate and
		// confirm; the verified payment still completes, without the
		// promo effects
		log.Warn().
			Err(err).
			Str("order_id", orderID).
			Msg("promo no longer redeemable at confirmation, completing without it")
		result, err = s.completePurchase(ctx, t, paymentID, false)
	}
	return result, err
}

// completePurchase runs the confirmation transaction: the pending→completed
// transition, the balance credit, and (when withPromo) the promo redemption
// plus bonus entry commit together or not at all.
func (s *Service) completePurchase(ctx context.Context, t *ledger.Transaction, paymentID string, withPromo bool) (*ConfirmResult, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	transitioned, err := s.store.CompleteTx(ctx, tx, t, paymentID)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		// lost the race to a duplicate delivery or the expiry sweep;
		// re-read the terminal state and report it
		tx.Rollback()
		t, err = s.store.GetByID(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if t.Status == ledger.StatusCompleted {
			return s.alreadyConfirmed(ctx, t)
		}
		return nil, ErrOrderClosed
	}

	var bonus int64
	if withPromo && t.PromoCodeID.Valid {
		bonus, err = s.redeemPromoTx(ctx, tx, t)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.invalidateBalance(ctx, t.ClinicID)

	balance, err := s.store.GetBalance(ctx, t.ClinicID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("clinic_id", t.ClinicID.String()).
		Str("order_id", t.OrderID.String).
		Int64("credits", t.Amount).
		Int64("bonus_credits", bonus).
		Msg("top-up confirmed")

	return &ConfirmResult{
		TransactionID: t.ID,
		Credits:       t.Amount,
		BonusCredits:  bonus,
		Balance:       balance,
	}, nil
}

// redeemPromoTx applies the promo attached to a purchase inside the
// confirmation transaction: usage counter, usage row, and the bonus-credit
// entry commit together with the completion or not at all.
func (s *Service) redeemPromoTx(ctx context.Context, tx *sqlx.Tx, t *ledger.Transaction) (int64, error) {
	code, err := s.promos.GetCode(ctx, t.PromoCodeID.UUID)
	if err != nil {
		return 0, err
	}

	gross := s.unitPrice.Mul(decimal.NewFromInt(t.Amount))
	discount := decimal.Zero
	if t.ChargeAmount.Valid {
		discount = gross.Sub(t.ChargeAmount.Decimal)
	}

	app := &promo.Application{
		CodeID:       code.ID,
		Code:         code.Code,
		Discount:     discount,
		BonusCredits: code.BonusCredits,
		FinalAmount:  gross.Sub(discount),
	}
	if err := s.promos.Redeem(ctx, tx, app, t.ClinicID, t.ID); err != nil {
		return 0, err
	}

	if code.BonusCredits > 0 {
		bonusTx := &ledger.Transaction{
			ClinicID:    t.ClinicID,
			Amount:      code.BonusCredits,
			Kind:        ledger.KindPromoBonus,
			Status:      ledger.StatusCompleted,
			PromoCodeID: t.PromoCodeID,
			Description: fmt.Sprintf("promo bonus for code %s", code.Code),
		}
		if err := s.store.AppendTx(ctx, tx, bonusTx); err != nil {
			return 0, err
		}
	}
	return code.BonusCredits, nil
}

// alreadyConfirmed reports a completed purchase a second time. The bonus is
// re-derived from the redemption row so duplicate deliveries see the same
// outcome as the first.
func (s *Service) alreadyConfirmed(ctx context.Context, t *ledger.Transaction) (*ConfirmResult, error) {
	balance, err := s.store.GetBalance(ctx, t.ClinicID)
	if err != nil {
		return nil, err
	}

	var bonus int64
	if t.PromoCodeID.Valid {
		usage, err := s.promos.UsageForTransaction(ctx, t.ID)
		if err != nil && !errors.Is(err, promo.ErrUsageNotFound) {
			return nil, err
		}
		if usage != nil {
			bonus = usage.BonusCredits
		}
	}

	return &ConfirmResult{
		TransactionID:    t.ID,
		Credits:          t.Amount,
		BonusCredits:     bonus,
		Balance:          balance,
		AlreadyProcessed: true,
	}, nil
}

// RefundDisputeTx writes the compensating credit for an approved dispute
// inside the caller's transaction. A partial unique index on the dispute id
// guarantees at most one refund per dispute ever commits.
func (s *Service) RefundDisputeTx(ctx context.Context, tx *sqlx.Tx, clinicID, disputeID, leadID uuid.UUID, amount int64) (*ledger.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	t := &ledger.Transaction{
		ClinicID:    clinicID,
		Amount:      amount,
		Kind:        ledger.KindRefund,
		Status:      ledger.StatusCompleted,
		LeadID:      uuid.NullUUID{UUID: leadID, Valid: true},
		DisputeID:   uuid.NullUUID{UUID: disputeID, Valid: true},
		Description: "refund for approved lead dispute",
	}
	if err := s.store.AppendTx(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// InvalidateBalance drops the cached balance after an external-transaction
// write commits (dispute refunds)
func (s *Service) InvalidateBalance(ctx context.Context, clinicID uuid.UUID) {
	s.invalidateBalance(ctx, clinicID)
}

// AdjustBalance writes a manual admin credit or debit
func (s *Service) AdjustBalance(ctx context.Context, clinicID uuid.UUID, amount int64, reason string, adminID uuid.UUID) (*DeductionResult, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	t := &ledger.Transaction{
		ClinicID:    clinicID,
		Amount:      amount,
		Kind:        ledger.KindAdminAdjustment,
		Status:      ledger.StatusCompleted,
		AdminID:     uuid.NullUUID{UUID: adminID, Valid: true},
		Description: reason,
	}
	if err := s.store.Append(ctx, t); err != nil {
		return nil, err
	}

	s.invalidateBalance(ctx, clinicID)

	balance, err := s.store.GetBalance(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("clinic_id", clinicID.String()).
		Str("admin_id", adminID.String()).
		Int64("amount", amount).
		Msg("admin balance adjustment")

	return &DeductionResult{
		TransactionID: t.ID,
		Cost:          amount,
		Balance:       balance,
		LowBalance:    balance < 0,
	}, nil
}

// Reconcile recomputes a clinic's balance from the ledger and refreshes the
// cache with the corrected value
func (s *Service) Reconcile(ctx context.Context, clinicID uuid.UUID) (int64, error) {
	balance, err := s.store.Reconcile(ctx, clinicID)
	if err != nil {
		return 0, err
	}
	s.invalidateBalance(ctx, clinicID)
	return balance, nil
}

// DeactivateAccount disables top-ups for a clinic. History and balance are
// retained; accounts are never deleted.
func (s *Service) DeactivateAccount(ctx context.Context, clinicID uuid.UUID) error {
	return s.store.SetActive(ctx, clinicID, false)
}

// ListTransactions returns the clinic's ledger entries, newest first
func (s *Service) ListTransactions(ctx context.Context, clinicID uuid.UUID, p ledger.Pagination) ([]ledger.Transaction, error) {
	return s.store.ListTransactions(ctx, clinicID, p)
}

// SearchTransactions is the admin cross-clinic view
func (s *Service) SearchTransactions(ctx context.Context, filters ledger.SearchFilters) ([]ledger.Transaction, error) {
	return s.store.SearchTransactions(ctx, filters)
}
