package utils

import "fmt"

// ValidationError represents an error occurring during input validation.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// InsufficientDataError is returned when a series does not contain enough
// observed buckets for the requested analysis. It is an expected outcome,
// not a crash: callers are expected to degrade gracefully.
type InsufficientDataError struct {
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d observed buckets required, got %d", e.Required, e.Actual)
}

// NewInsufficientDataError creates an InsufficientDataError with the given counts.
func NewInsufficientDataError(required, actual int) error {
	return &InsufficientDataError{Required: required, Actual: actual}
}

// InsufficientPriceVarianceError is returned when price history does not
// contain enough distinct price points to estimate elasticity.
type InsufficientPriceVarianceError struct {
	RequiredPoints int
	DistinctPoints int
}

func (e *InsufficientPriceVarianceError) Error() string {
	return fmt.Sprintf("insufficient price variance: %d distinct price points required, got %d", e.RequiredPoints, e.DistinctPoints)
}

// NewInsufficientPriceVarianceError creates an InsufficientPriceVarianceError.
func NewInsufficientPriceVarianceError(required, distinct int) error {
	return &InsufficientPriceVarianceError{RequiredPoints: required, DistinctPoints: distinct}
}

// InvalidTimeframeError is returned for malformed time ranges or horizons.
// These are input-shape errors: fail fast, never retried internally.
type InvalidTimeframeError struct {
	Reason string
}

func (e *InvalidTimeframeError) Error() string {
	return fmt.Sprintf("invalid timeframe: %s", e.Reason)
}

// NewInvalidTimeframeError creates an InvalidTimeframeError with a reason.
func NewInvalidTimeframeError(reason string) error {
	return &InvalidTimeframeError{Reason: reason}
}

// NewInvalidTimeframeErrorf creates an InvalidTimeframeError with a formatted reason.
func NewInvalidTimeframeErrorf(format string, args ...interface{}) error {
	return &InvalidTimeframeError{Reason: fmt.Sprintf(format, args...)}
}
