package service

import "errors"

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrUnknownVariant     = errors.New("variant is not offered for this product")
	ErrIllegalTransition  = errors.New("illegal transition of checkout status")
	ErrCheckoutInProgress = errors.New("checkout with this idempotency key is already in progress")
	ErrUnknownCopyTarget  = errors.New("unknown copy target")
)
