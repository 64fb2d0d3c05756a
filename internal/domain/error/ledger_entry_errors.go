// Package error defines domain-specific errors for the ledger application.
package error

import "errors"

// ErrLedgerEntryNotFound is returned when a ledger entry is not found.
var ErrLedgerEntryNotFound = errors.New("ledger entry not found")
