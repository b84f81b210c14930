package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for ledger operations.
// The HTTP adapter maps these to status codes.
var (
	ErrInvalidShareCount  = errors.New("invalid_share_count")
	ErrQuoteNotFound      = errors.New("quote_not_found")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrInsufficientShares = errors.New("insufficient_shares")
	ErrStorageFailure     = errors.New("storage_failure")
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrAmountOverflow     = errors.New("amount_overflow")
)

// ShareCountReason says why a raw share input was rejected.
type ShareCountReason string

const (
	ReasonMissing    ShareCountReason = "missing"
	ReasonNotInteger ShareCountReason = "not_integer"
	ReasonZero       ShareCountReason = "zero"
	ReasonNegative   ShareCountReason = "negative"
)

// ShareCountError carries the rejected input and the reason.
// It matches ErrInvalidShareCount with errors.Is.
type ShareCountError struct {
	Input  string
	Reason ShareCountReason
}

func (e *ShareCountError) Error() string {
	return fmt.Sprintf("shares must be a positive integer: %q (%s)", e.Input, e.Reason)
}

func (e *ShareCountError) Unwrap() error { return ErrInvalidShareCount }

// ValidationError represents a request validation failure outside share parsing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsRejection reports whether err is a user-correctable rejection: nothing was
// mutated and retrying with corrected input is safe.
func IsRejection(err error) bool {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, ErrInvalidShareCount),
		errors.Is(err, ErrQuoteNotFound),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientShares),
		errors.Is(err, ErrAccountNotFound):
		return true
	}
	return false
}
