package dispute

import "errors"

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	ErrDebitNotFound   = errors.New("no deduction found for lead")

	// ErrDuplicateDispute means an open dispute already exists for the debit
	ErrDuplicateDispute = errors.New("an open dispute already exists for this deduction")

	// ErrDisputeResolved covers both re-resolving a terminal dispute and
	// filing a new one against a deduction whose dispute was already decided
	ErrDisputeResolved = errors.New("dispute already resolved")

	ErrInvalidRefund = errors.New("refund amount exceeds the original deduction")
	ErrNotOwner      = errors.New("dispute belongs to another clinic")
)
