// Package error defines domain-specific errors for the ledger application.
package error

import "errors"

// Store lifecycle errors.
var (
	// ErrStoreNotOpen is returned when the ledger store is used before Open or after Close.
	ErrStoreNotOpen = errors.New("ledger store is not open")

	// ErrSchemaMismatch is returned when the on-disk schema is newer than the known migrations.
	ErrSchemaMismatch = errors.New("ledger store schema version mismatch")

	// ErrMigrationFailed is returned when automatic schema migration fails.
	ErrMigrationFailed = errors.New("ledger store migration failed")

	// ErrInvalidStoreMode is returned for an unknown store mode.
	ErrInvalidStoreMode = errors.New("invalid store mode")

	// ErrStoreReloadFailed is returned when a store mode transition fails on local I/O.
	ErrStoreReloadFailed = errors.New("ledger store reload failed")

	// ErrTransitionTimeout is returned when the new store does not come online in time.
	ErrTransitionTimeout = errors.New("ledger store transition timed out")
)

// StoreErrorCode defines error codes for store errors.
type StoreErrorCode string

const (
	ErrCodeStoreNotOpen      StoreErrorCode = "STO-010001"
	ErrCodeSchemaMismatch    StoreErrorCode = "STO-010002"
	ErrCodeMigrationFailed   StoreErrorCode = "STO-010003"
	ErrCodeInvalidStoreMode  StoreErrorCode = "STO-020001"
	ErrCodeStoreReloadFailed StoreErrorCode = "STO-020002"
	ErrCodeTransitionTimeout StoreErrorCode = "STO-020003"
)

// StoreError represents a store lifecycle error with code and message.
type StoreError struct {
	Code    StoreErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given code and message.
func NewStoreError(code StoreErrorCode, message string, err error) *StoreError {
	return &StoreError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
