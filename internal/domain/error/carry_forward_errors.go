// Package error defines domain-specific errors for the ledger application.
package error

import "errors"

// Carry-forward domain errors.
var (
	// ErrDuplicateCarryOver is returned when a carry-over entry already exists for the month.
	ErrDuplicateCarryOver = errors.New("carry-over entry already exists")

	// ErrInvalidPeriod is returned when a year/month pair is out of range.
	ErrInvalidPeriod = errors.New("invalid period")
)

// CarryForwardErrorCode defines error codes for carry-forward errors.
type CarryForwardErrorCode string

const (
	ErrCodeInvalidPeriod CarryForwardErrorCode = "CFW-010002"
)

// CarryForwardError represents a carry-forward error with code and message.
type CarryForwardError struct {
	Code    CarryForwardErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CarryForwardError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CarryForwardError) Unwrap() error {
	return e.Err
}

// NewCarryForwardError creates a new CarryForwardError with the given code and message.
func NewCarryForwardError(code CarryForwardErrorCode, message string, err error) *CarryForwardError {
	return &CarryForwardError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
