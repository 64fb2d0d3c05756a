// Package error defines domain-specific errors for the ledger application.
package error

import "errors"

// Account domain errors.
var (
	// ErrAccountNotFound is returned when an account is not found in the system.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSessionReset is returned to callers waiting on an account resolution
	// that was superseded by a session reset.
	ErrSessionReset = errors.New("session was reset")

	// ErrAccountResolution is returned when the resolution unit of work fails.
	ErrAccountResolution = errors.New("account resolution failed")

	// ErrAccountNotOwned is returned when switching to an account owned by another user.
	ErrAccountNotOwned = errors.New("account does not belong to the signed-in user")
)

// AccountErrorCode defines error codes for account errors.
// Format: ACC-XXYYYY where XX is category and YYYY is specific error.
type AccountErrorCode string

const (
	ErrCodeAccountNotFound  AccountErrorCode = "ACC-010001"
	ErrCodeAccountNotOwned  AccountErrorCode = "ACC-010002"
	ErrCodeInvalidAccountID AccountErrorCode = "ACC-010003"
	ErrCodeSessionReset     AccountErrorCode = "ACC-020001"
	ErrCodeResolutionFailed AccountErrorCode = "ACC-020002"
)

// AccountError represents an account error with code and message.
type AccountError struct {
	Code    AccountErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AccountError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AccountError) Unwrap() error {
	return e.Err
}

// NewAccountError creates a new AccountError with the given code and message.
func NewAccountError(code AccountErrorCode, message string, err error) *AccountError {
	return &AccountError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
