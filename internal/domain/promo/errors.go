package promo

import (
	"errors"
	"fmt"
)

// ErrPromoInvalid is the root of the promo error family; every rejection
// below wraps it so callers can branch coarsely with errors.Is.
var ErrPromoInvalid = errors.New("promo code invalid")

var (
	ErrPromoNotFound        = fmt.Errorf("%w: not found", ErrPromoInvalid)
	ErrPromoInactive        = fmt.Errorf("%w: inactive", ErrPromoInvalid)
	ErrPromoExpired         = fmt.Errorf("%w: outside validity window", ErrPromoInvalid)
	ErrPromoBelowMinimum    = fmt.Errorf("%w: amount below minimum", ErrPromoInvalid)
	ErrPromoExhausted       = fmt.Errorf("%w: usage limit reached", ErrPromoInvalid)
	ErrPromoAlreadyRedeemed = fmt.Errorf("%w: already redeemed by clinic", ErrPromoInvalid)

	ErrCodeExists    = errors.New("promo code already exists")
	ErrUsageNotFound = errors.New("promo usage not found")
)
