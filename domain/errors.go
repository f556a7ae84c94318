package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a member has no rate.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindDataConversion   ErrorKind = "DataConversionError"
	KindInsufficientData ErrorKind = "InsufficientData"
	KindDegenerateDates  ErrorKind = "DegenerateDates"
	KindNoSignVariation  ErrorKind = "NoSignVariation"
	KindSolverDivergence ErrorKind = "SolverDivergence"
	KindFetchFailed      ErrorKind = "FetchFailed"
)

var (
	ErrDataConversion   = errors.New("cashflow conversion failed")
	ErrInsufficientData = errors.New("fewer than two cashflows")
	ErrDegenerateDates  = errors.New("all cashflows share the same date")
	ErrNoSignVariation  = errors.New("cashflows need both inflows and outflows")
)

// Reason is the human-readable message shown for a failed computation.
func (k ErrorKind) Reason(detail string) string {
	switch k {
	case KindInsufficientData:
		return "Insufficient data for XIRR calculation."
	case KindDegenerateDates:
		return "Invalid data for XIRR calculation. All cashflows fall on the same date."
	case KindNoSignVariation:
		return "Invalid data for XIRR calculation. Need both inflows & outflows."
	case KindDataConversion:
		return "Data Error: " + detail
	case KindFetchFailed:
		return "Data Error: could not load cashflows"
	case KindSolverDivergence:
		return "Error calculating XIRR."
	}
	return ""
}

// ValidationError is returned by the validator for a rejected record set.
type ValidationError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError whose sentinel matches kind.
func NewValidationError(kind ErrorKind, detail string) *ValidationError {
	var sentinel error
	switch kind {
	case KindDataConversion:
		sentinel = ErrDataConversion
	case KindInsufficientData:
		sentinel = ErrInsufficientData
	case KindDegenerateDates:
		sentinel = ErrDegenerateDates
	case KindNoSignVariation:
		sentinel = ErrNoSignVariation
	default:
		sentinel = errors.New(string(kind))
	}
	return &ValidationError{Kind: kind, Detail: detail, Err: sentinel}
}
