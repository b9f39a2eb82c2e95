package errors

import (
	"errors"
)

// Common error types
var (
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEligibilityDenied = errors.New("eligibility denied")
	ErrNotFound          = errors.New("not found")
	ErrDeliveryFailure   = errors.New("delivery failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrInternal          = errors.New("internal error")
)

// Eligibility reasons, each wraps ErrEligibilityDenied.
var (
	ErrSelfDealing    = &reason{code: "self_dealing"}
	ErrFollowRequired = &reason{code: "follow_required"}
	ErrAlreadyEngaged = &reason{code: "already_engaged"}
)

type reason struct {
	code string
}

func (r *reason) Error() string { return "eligibility denied: " + r.code }

func (r *reason) Unwrap() error { return ErrEligibilityDenied }

// Code returns the machine readable reason code.
func (r *reason) Code() string { return r.code }

// Kind maps err onto one of the taxonomy sentinels, ErrInternal otherwise.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrValidation,
		ErrInsufficientFunds,
		ErrEligibilityDenied,
		ErrNotFound,
		ErrDeliveryFailure,
		ErrUnauthorized,
		ErrRateLimited,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// Reason returns the eligibility reason code carried by err, or "".
func Reason(err error) string {
	var r *reason
	if errors.As(err, &r) {
		return r.code
	}
	return ""
}

// Is, As and Join are re-exported so callers importing this package under
// the errors name keep the stdlib helpers.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
	New  = errors.New
)
