// Package errors provides severity-aware error types.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// EstimateError is a structured error with context.
type EstimateError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	ScopeItemID string   `json:"scope_item_id,omitempty"`
	Recoverable bool     `json:"recoverable"`
	Err         error    `json:"-"`
}

func (e *EstimateError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
	if e.ScopeItemID != "" {
		msg = fmt.Sprintf("%s (scope item: %s)", msg, e.ScopeItemID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *EstimateError) Unwrap() error { return e.Err }

// Error codes
const (
	ErrCodeUnsupportedMeasurement = "UNSUPPORTED_MEASUREMENT"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeCalculationFailed      = "CALCULATION_FAILED"
	ErrCodePipelineFailed         = "PIPELINE_FAILED"
)

// NewUnsupportedMeasurementError is returned when an item's measurement type has no calculator.
func NewUnsupportedMeasurementError(measurementType, scopeItemID string) *EstimateError {
	return &EstimateError{
		Code:        ErrCodeUnsupportedMeasurement,
		Message:     fmt.Sprintf("no calculator for measurement type: %q", measurementType),
		Severity:    SeverityError,
		ScopeItemID: scopeItemID,
		Recoverable: true,
	}
}

// NewInvalidQuantityError is returned for stated quantities that cannot be measured.
func NewInvalidQuantityError(quantity float64, scopeItemID string) *EstimateError {
	return &EstimateError{
		Code:        ErrCodeInvalidQuantity,
		Message:     fmt.Sprintf("stated quantity %.2f is not a valid measurement", quantity),
		Severity:    SeverityError,
		ScopeItemID: scopeItemID,
		Recoverable: true,
	}
}

// NewCalculationFailedError wraps an unexpected calculator failure for one item.
func NewCalculationFailedError(scopeItemID string, cause error) *EstimateError {
	return &EstimateError{
		Code:        ErrCodeCalculationFailed,
		Message:     "quantity calculation failed",
		Severity:    SeverityError,
		ScopeItemID: scopeItemID,
		Recoverable: true,
		Err:         cause,
	}
}

// NewPipelineFailedError marks a failure that degraded a whole estimation run.
func NewPipelineFailedError(cause error) *EstimateError {
	return &EstimateError{
		Code:        ErrCodePipelineFailed,
		Message:     "estimation pipeline failed",
		Severity:    SeverityFatal,
		Recoverable: false,
		Err:         cause,
	}
}

// CodeOf extracts the code from an EstimateError anywhere in err's chain.
func CodeOf(err error) string {
	var ee *EstimateError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
