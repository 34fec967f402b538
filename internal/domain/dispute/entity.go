package dispute

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the dispute lifecycle state
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Reason is the clinic's stated ground for contesting a deduction
type Reason string

const (
	ReasonInvalidContact Reason = "invalid_contact"
	ReasonDuplicateLead  Reason = "duplicate_lead"
	ReasonWrongProcedure Reason = "wrong_procedure"
	ReasonSpam           Reason = "spam"
	ReasonOther          Reason = "other"
)

// Dispute is a clinic's challenge against a lead deduction. Resolution is
// one-way: approved triggers exactly one refund transaction, rejected has
// no ledger effect, and neither state can be reopened.
//
// A partial unique index on transaction_id WHERE status = 'pending' in the
// lead_disputes migration enforces one open dispute per deduction.
type Dispute struct {
	ID            uuid.UUID      `db:"id"`
	LeadID        uuid.UUID      `db:"lead_id"`
	ClinicID      uuid.UUID      `db:"clinic_id"`
	TransactionID uuid.UUID      `db:"transaction_id"`
	Reason        Reason         `db:"reason"`
	Description   string         `db:"description"`
	Status        Status         `db:"status"`
	AdminNotes    sql.NullString `db:"admin_notes"`
	RefundAmount  sql.NullInt64  `db:"refund_amount"`
	ResolvedBy    uuid.NullUUID  `db:"resolved_by"`
	CreatedAt     time.Time      `db:"created_at"`
	ResolvedAt    sql.NullTime   `db:"resolved_at"`
}

func (d *Dispute) Resolved() bool {
	return d.Status != StatusPending
}
