package dispute

import (
	"time"

	"github.com/google/uuid"
)

// FileRequest opens a dispute against a lead deduction
type FileRequest struct {
	LeadID      uuid.UUID `json:"lead_id" validate:"required"`
	Reason      string    `json:"reason" validate:"required,dispute_reason"`
	Description string    `json:"description" validate:"max=2000"`
}

// ResolveRequest is the admin adjudication payload. RefundAmount only
// applies to approvals and defaults to the full original deduction.
type ResolveRequest struct {
	Decision     string `json:"decision" validate:"required,dispute_decision"`
	AdminNotes   string `json:"admin_notes" validate:"max=2000"`
	RefundAmount *int64 `json:"refund_amount,omitempty"`
}

// Response is the dispute read-model
type Response struct {
	ID            uuid.UUID  `json:"id"`
	LeadID        uuid.UUID  `json:"lead_id"`
	ClinicID      uuid.UUID  `json:"clinic_id"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	Reason        string     `json:"reason"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status"`
	AdminNotes    string     `json:"admin_notes,omitempty"`
	RefundAmount  *int64     `json:"refund_amount,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func (d *Dispute) ToResponse() *Response {
	resp := &Response{
		ID:            d.ID,
		LeadID:        d.LeadID,
		ClinicID:      d.ClinicID,
		TransactionID: d.TransactionID,
		Reason:        string(d.Reason),
		Description:   d.Description,
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt,
	}
	if d.AdminNotes.Valid {
		resp.AdminNotes = d.AdminNotes.String
	}
	if d.RefundAmount.Valid {
		amount := d.RefundAmount.Int64
		resp.RefundAmount = &amount
	}
	if d.ResolvedAt.Valid {
		ts := d.ResolvedAt.Time
		resp.ResolvedAt = &ts
	}
	return resp
}
