package dispute

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const disputeColumns = `
	id, lead_id, clinic_id, transaction_id, reason, description, status,
	admin_notes, refund_amount, resolved_by, created_at, resolved_at`

// Repository handles dispute database operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new dispute repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new pending dispute. A partial unique index on
// transaction_id where status='pending' enforces at most one open dispute
// per deduction even under concurrent filings.
func (r *Repository) Create(ctx context.Context, d *Dispute) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lead_disputes (
			id, lead_id, clinic_id, transaction_id, reason, description,
			status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, d.LeadID, d.ClinicID, d.TransactionID, d.Reason, d.Description,
		d.Status, d.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateDispute
		}
		return err
	}
	return nil
}

// GetByID returns a dispute by id
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, `
		SELECT `+disputeColumns+`
		FROM lead_disputes
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByIDForUpdateTx locks a dispute row inside the resolution transaction
func (r *Repository) GetByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Dispute, error) {
	var d Dispute
	err := tx.GetContext(ctx, &d, `
		SELECT `+disputeColumns+`
		FROM lead_disputes
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HasResolvedForTransaction reports whether the deduction already went
// through a decided dispute. Policy: no re-filing after rejection.
func (r *Repository) HasResolvedForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM lead_disputes
			WHERE transaction_id = $1 AND status <> 'pending'
		)
	`, transactionID)
	return exists, err
}

// ResolveTx finalizes a dispute inside the resolution transaction
func (r *Repository) ResolveTx(ctx context.Context, tx *sqlx.Tx, d *Dispute) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE lead_disputes
		SET status = $2, admin_notes = $3, refund_amount = $4,
			resolved_by = $5, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, d.ID, d.Status, d.AdminNotes, d.RefundAmount, d.ResolvedBy)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDisputeResolved
	}
	return nil
}

// ListByClinic returns a clinic's disputes, newest first
func (r *Repository) ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]Dispute, error) {
	if limit <= 0 {
		limit = 20
	}
	disputes := make([]Dispute, 0)
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+`
		FROM lead_disputes
		WHERE clinic_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, clinicID, limit, offset)
	if err != nil {
		return nil, err
	}
	return disputes, nil
}

// ListPending returns all open disputes for the admin queue, oldest first
func (r *Repository) ListPending(ctx context.Context, limit, offset int) ([]Dispute, error) {
	if limit <= 0 {
		limit = 50
	}
	disputes := make([]Dispute, 0)
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+`
		FROM lead_disputes
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return disputes, nil
}
