package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNetworkFailure     = errors.New("network failure")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
)

// ValidationError lists the required checkout fields that were left blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "please fill in all required fields: " + strings.Join(e.Fields, ", ")
}
