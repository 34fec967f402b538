package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const queryTimeout = 3 * time.Second

const transactionColumns = `
	id, clinic_id, amount, kind, status, lead_id, order_id, payment_id,
	promo_code_id, dispute_id, admin_id, charge_amount, description,
	created_at, completed_at`

// Store provides the append-only transaction log and the cached,
// ledger-reconciled balance per clinic account. All mutation goes through
// the billing service.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// EnsureAccount creates the clinic's balance row if missing
func (s *Store) EnsureAccount(ctx context.Context, clinicID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clinic_accounts (clinic_id, balance, active)
		VALUES ($1, 0, TRUE)
		ON CONFLICT (clinic_id) DO NOTHING
	`, clinicID)
	if err != nil {
		return fmt.Errorf("%w: ensure account", ErrInternal)
	}
	return nil
}

// GetAccount returns the clinic account row
func (s *Store) GetAccount(ctx context.Context, clinicID uuid.UUID) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acc Account
	err := s.db.GetContext(ctx2, &acc, `
		SELECT clinic_id, balance, active, created_at, updated_at
		FROM clinic_accounts
		WHERE clinic_id = $1
	`, clinicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}
	return &acc, nil
}

// SetActive flips the account active flag. Accounts are never deleted.
func (s *Store) SetActive(ctx context.Context, clinicID uuid.UUID, active bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clinic_accounts SET active = $2, updated_at = NOW() WHERE clinic_id = $1
	`, clinicID, active)
	if err != nil {
		return fmt.Errorf("%w: set active", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// lockAccount creates the account row if missing and takes a FOR UPDATE lock
// on it, serializing all balance-affecting work for the clinic.
func (s *Store) lockAccount(ctx context.Context, tx *sqlx.Tx, clinicID uuid.UUID) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO clinic_accounts (clinic_id, balance, active)
		VALUES ($1, 0, TRUE)
		ON CONFLICT (clinic_id) DO NOTHING
	`, clinicID); err != nil {
		return 0, fmt.Errorf("%w: ensure account", ErrInternal)
	}

	var balance int64
	if err := tx.GetContext(ctx, &balance, `
		SELECT balance FROM clinic_accounts WHERE clinic_id = $1 FOR UPDATE
	`, clinicID); err != nil {
		return 0, fmt.Errorf("%w: lock account", ErrInternal)
	}
	return balance, nil
}

func (s *Store) adjustBalance(ctx context.Context, tx *sqlx.Tx, clinicID uuid.UUID, delta int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE clinic_accounts SET balance = balance + $2, updated_at = NOW() WHERE clinic_id = $1
	`, clinicID, delta)
	if err != nil {
		return fmt.Errorf("%w: update balance", ErrInternal)
	}
	return nil
}

// Append writes a new transaction in its own unit of work
func (s *Store) Append(ctx context.Context, t *Transaction) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := s.AppendTx(ctx2, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return nil
}

// AppendTx writes a new transaction within an external transaction. A
// completed entry adjusts the cached balance atomically with the insert;
// a pending entry leaves the balance untouched until completion.
// This method does NOT commit or rollback — the caller is responsible.
func (s *Store) AppendTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	if t.Amount == 0 {
		return ErrInvalidAmount
	}
	if !validKind(t.Kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, t.Kind)
	}
	if t.Status != StatusPending && t.Status != StatusCompleted {
		return fmt.Errorf("%w: new entries must be pending or completed", ErrInvalidTransaction)
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	if _, err := s.lockAccount(ctx, tx, t.ClinicID); err != nil {
		return err
	}

	var completedAt sql.NullTime
	if t.Status == StatusCompleted {
		completedAt = sql.NullTime{Time: t.CreatedAt, Valid: true}
	}
	t.CompletedAt = completedAt

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (
			id, clinic_id, amount, kind, status, lead_id, order_id, payment_id,
			promo_code_id, dispute_id, admin_id, charge_amount, description,
			created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, t.ID, t.ClinicID, t.Amount, t.Kind, t.Status, t.LeadID, t.OrderID, t.PaymentID,
		t.PromoCodeID, t.DisputeID, t.AdminID, t.ChargeAmount, t.Description,
		t.CreatedAt, t.CompletedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}

	if t.Status == StatusCompleted {
		if err := s.adjustBalance(ctx, tx, t.ClinicID, t.Amount); err != nil {
			return err
		}
	}

	return nil
}

// GetBalance returns the cached balance for a clinic
func (s *Store) GetBalance(ctx context.Context, clinicID uuid.UUID) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int64
	err := s.db.GetContext(ctx2, &balance, `
		SELECT balance FROM clinic_accounts WHERE clinic_id = $1
	`, clinicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get balance", ErrInternal)
	}
	return balance, nil
}

// Reconcile recomputes the balance from completed transactions and corrects
// the cache when it drifted. Returns the authoritative balance.
func (s *Store) Reconcile(ctx context.Context, clinicID uuid.UUID) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	cached, err := s.lockAccount(ctx2, tx, clinicID)
	if err != nil {
		return 0, err
	}

	var actual int64
	if err := tx.GetContext(ctx2, &actual, `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_transactions
		WHERE clinic_id = $1 AND status = 'completed'
	`, clinicID); err != nil {
		return 0, fmt.Errorf("%w: sum transactions", ErrInternal)
	}

	if actual != cached {
		log.Warn().
			Str("clinic_id", clinicID.String()).
			Int64("cached", cached).
			Int64("actual", actual).
			Msg("balance cache drift corrected")

		if _, err := tx.ExecContext(ctx2, `
			UPDATE clinic_accounts SET balance = $2, updated_at = NOW() WHERE clinic_id = $1
		`, clinicID, actual); err != nil {
			return 0, fmt.Errorf("%w: correct balance", ErrInternal)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return actual, nil
}

// ListTransactions returns a clinic's transactions, most recent first
func (s *Store) ListTransactions(ctx context.Context, clinicID uuid.UUID, pagination Pagination) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 20
	}

	transactions := make([]Transaction, 0)
	err := s.db.SelectContext(ctx2, &transactions, `
		SELECT `+transactionColumns+`
		FROM credit_transactions
		WHERE clinic_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, clinicID, limit, pagination.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}
	return transactions, nil
}

// SearchTransactions returns filtered transactions (admin use)
func (s *Store) SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	base := `
		SELECT ` + transactionColumns + `
		FROM credit_transactions
		WHERE 1=1`
	args := make([]interface{}, 0, 8)
	idx := 1

	if filters.ClinicID != nil {
		base += fmt.Sprintf(" AND clinic_id = $%d", idx)
		args = append(args, *filters.ClinicID)
		idx++
	}
	if filters.Kind != nil {
		base += fmt.Sprintf(" AND kind = $%d", idx)
		args = append(args, *filters.Kind)
		idx++
	}
	if filters.Status != nil {
		base += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, *filters.Status)
		idx++
	}
	if filters.LeadID != nil {
		base += fmt.Sprintf(" AND lead_id = $%d", idx)
		args = append(args, *filters.LeadID)
		idx++
	}
	if filters.DateFrom != nil {
		base += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *filters.DateFrom)
		idx++
	}
	if filters.DateTo != nil {
		base += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, *filters.DateTo)
		idx++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	base = strings.TrimSpace(base) + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filters.Offset)

	transactions := make([]Transaction, 0)
	if err := s.db.SelectContext(ctx2, &transactions, base, args...); err != nil {
		return nil, fmt.Errorf("%w: search transactions", ErrInternal)
	}
	return transactions, nil
}

// GetByID returns a transaction by id
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.getOne(ctx, `WHERE id = $1`, id)
}

// GetLeadDeduction returns the debit recorded for a delivered lead, if any
func (s *Store) GetLeadDeduction(ctx context.Context, clinicID, leadID uuid.UUID) (*Transaction, error) {
	return s.getOne(ctx, `WHERE clinic_id = $1 AND lead_id = $2 AND kind = 'lead_deduction'`, clinicID, leadID)
}

// GetByOrderID returns the purchase transaction referencing a gateway order
func (s *Store) GetByOrderID(ctx context.Context, orderID string) (*Transaction, error) {
	return s.getOne(ctx, `WHERE order_id = $1 AND kind = 'purchase'`, orderID)
}

func (s *Store) getOne(ctx context.Context, where string, args ...interface{}) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := s.db.GetContext(ctx2, &t, `
		SELECT `+transactionColumns+`
		FROM credit_transactions `+where+`
		LIMIT 1
	`, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get transaction", ErrInternal)
	}
	return &t, nil
}

// CompleteTx transitions a pending transaction to completed and credits the
// cached balance in the same unit of work. Returns false when the row was no
// longer pending — the caller treats that as "already handled" and re-reads
// the terminal state. The status guard makes duplicate confirmations and the
// expiry sweep race-safe.
func (s *Store) CompleteTx(ctx context.Context, tx *sqlx.Tx, t *Transaction, paymentID string) (bool, error) {
	if _, err := s.lockAccount(ctx, tx, t.ClinicID); err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE credit_transactions
		SET status = 'completed', payment_id = $2, completed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, t.ID, paymentID)
	if err != nil {
		return false, fmt.Errorf("%w: complete transaction", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return false, nil
	}

	if err := s.adjustBalance(ctx, tx, t.ClinicID, t.Amount); err != nil {
		return false, err
	}
	return true, nil
}

// Fail transitions a pending transaction to failed. The balance was never
// credited for a pending row, so there is nothing to adjust.
func (s *Store) Fail(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx2, `
		UPDATE credit_transactions
		SET status = 'failed'
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, fmt.Errorf("%w: fail transaction", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return rows > 0, nil
}

// FailExpiredPending sweeps pending purchases older than the cutoff to
// failed. It uses the same status-guarded transition as confirmation, so a
// late legitimate callback and the sweep cannot both win.
func (s *Store) FailExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE credit_transactions
		SET status = 'failed'
		WHERE status = 'pending' AND kind = 'purchase' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep expired pending", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return rows, nil
}
