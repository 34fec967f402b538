package billing

import "errors"

var (
	// ErrSignatureMismatch means the payment callback failed verification.
	// The account is never credited on this path.
	ErrSignatureMismatch = errors.New("payment not verified: signature mismatch")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderClosed means the purchase already reached a terminal failed
	// state (expired or previously rejected) and cannot be confirmed.
	ErrOrderClosed = errors.New("order is no longer confirmable")
)
