package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when a transaction amount is zero
	ErrInvalidAmount = errors.New("invalid amount: must be non-zero")

	// ErrInvalidTransaction is returned for a malformed transaction
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrDuplicate is returned when an idempotency key already exists.
	// Callers treat it as "already handled" and fetch the existing row.
	ErrDuplicate = errors.New("duplicate transaction")

	// ErrNotFound is returned when a transaction doesn't exist
	ErrNotFound = errors.New("transaction not found")

	// ErrAccountNotFound is returned when a clinic account doesn't exist
	ErrAccountNotFound = errors.New("clinic account not found")

	// ErrAccountInactive is returned when an operation requires an active account
	ErrAccountInactive = errors.New("clinic account is deactivated")

	ErrInternal = errors.New("internal error")
)
