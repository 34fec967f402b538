package dispute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/clinika/clinika-api/internal/domain/billing"
	"github.com/clinika/clinika-api/internal/domain/ledger"
)

// Service runs the dispute state machine. The refund itself is written by
// the billing service inside the resolution transaction; this service never
// touches the ledger directly.
type Service struct {
	db      *sqlx.DB
	repo    *Repository
	store   *ledger.Store
	billing *billing.Service
}

// NewService creates a new dispute service
func NewService(db *sqlx.DB, repo *Repository, store *ledger.Store, billingSvc *billing.Service) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		store:   store,
		billing: billingSvc,
	}
}

// File opens a dispute against the deduction recorded for a lead. At most
// one open dispute per deduction; a deduction whose dispute was already
// decided cannot be contested again.
func (s *Service) File(ctx context.Context, clinicID, leadID uuid.UUID, reason Reason, description string) (*Dispute, error) {
	debit, err := s.store.GetLeadDeduction(ctx, clinicID, leadID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrDebitNotFound
		}
		return nil, err
	}

	resolved, err := s.repo.HasResolvedForTransaction(ctx, debit.ID)
	if err != nil {
		return nil, err
	}
	if resolved {
		return nil, ErrDisputeResolved
	}

	d := &Dispute{
		ID:            uuid.New(),
		LeadID:        leadID,
		ClinicID:      clinicID,
		TransactionID: debit.ID,
		Reason:        reason,
		Description:   description,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	log.Info().
		Str("dispute_id", d.ID.String()).
		Str("clinic_id", clinicID.String()).
		Str("lead_id", leadID.String()).
		Str("reason", string(reason)).
		Msg("dispute filed")

	return d, nil
}

// Resolve decides a pending dispute. Approval writes the refund transaction
// in the same unit of work as the state change; rejection has no ledger
// effect. Either way the transition is final.
func (s *Service) Resolve(ctx context.Context, disputeID uuid.UUID, approve bool, adminNotes string, refundAmount *int64, adminID uuid.UUID) (*Dispute, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	d, err := s.repo.GetByIDForUpdateTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Resolved() {
		return nil, ErrDisputeResolved
	}

	d.ResolvedBy = uuid.NullUUID{UUID: adminID, Valid: true}
	d.AdminNotes = sql.NullString{String: adminNotes, Valid: adminNotes != ""}

	if !approve {
		d.Status = StatusRejected
		if err := s.repo.ResolveTx(ctx, tx, d); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}

		log.Info().
			Str("dispute_id", d.ID.String()).
			Str("admin_id", adminID.String()).
			Msg("dispute rejected")
		return d, nil
	}

	debit, err := s.store.GetByID(ctx, d.TransactionID)
	if err != nil {
		return nil, err
	}
	fullDebit := -debit.Amount

	amount := fullDebit
	if refundAmount != nil {
		amount = *refundAmount
	}
	if amount <= 0 || amount > fullDebit {
		return nil, ErrInvalidRefund
	}

	if _, err := s.billing.RefundDisputeTx(ctx, tx, d.ClinicID, d.ID, d.LeadID, amount); err != nil {
		return nil, err
	}

	d.Status = StatusApproved
	d.RefundAmount = sql.NullInt64{Int64: amount, Valid: true}
	if err := s.repo.ResolveTx(ctx, tx, d); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.billing.InvalidateBalance(ctx, d.ClinicID)

	log.Info().
		Str("dispute_id", d.ID.String()).
		Str("admin_id", adminID.String()).
		Int64("refund", amount).
		Msg("dispute approved and refunded")

	return d, nil
}

// Get returns one dispute, restricted to its owner for non-admin callers
func (s *Service) Get(ctx context.Context, disputeID, clinicID uuid.UUID, isAdmin bool) (*Dispute, error) {
	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && d.ClinicID != clinicID {
		return nil, ErrNotOwner
	}
	return d, nil
}

// ListByClinic returns a clinic's disputes
func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]Dispute, error) {
	return s.repo.ListByClinic(ctx, clinicID, limit, offset)
}

// ListPending returns the admin adjudication queue
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]Dispute, error) {
	return s.repo.ListPending(ctx, limit, offset)
}
