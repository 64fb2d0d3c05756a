// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry represents a single income or expense record.
type LedgerEntry struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Amount          decimal.Decimal // Non-negative magnitude
	IsExpense       bool
	Date            time.Time
	Note            string
	IsCarryOver     bool   // Set only by the carry-forward engine
	CarryOverPeriod string // YYYY-MM of the target month, carry-over entries only
	CategoryID      *uuid.UUID
	ContactID       *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// NewLedgerEntry creates a new user-authored LedgerEntry.
func NewLedgerEntry(
	accountID uuid.UUID,
	amount decimal.Decimal,
	isExpense bool,
	date time.Time,
	note string,
	categoryID *uuid.UUID,
	contactID *uuid.UUID,
) *LedgerEntry {
	now := time.Now().UTC()

	return &LedgerEntry{
		ID:         uuid.New(),
		AccountID:  accountID,
		Amount:     amount.Abs(),
		IsExpense:  isExpense,
		Date:       date.UTC(),
		Note:       note,
		CategoryID: categoryID,
		ContactID:  contactID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewCarryOverEntry creates the income entry carrying a positive balance into period.
func NewCarryOverEntry(accountID uuid.UUID, amount decimal.Decimal, period Period, categoryID uuid.UUID, note string) *LedgerEntry {
	now := time.Now().UTC()

	return &LedgerEntry{
		ID:              uuid.New(),
		AccountID:       accountID,
		Amount:          amount,
		IsExpense:       false,
		Date:            period.Start(),
		Note:            note,
		IsCarryOver:     true,
		CarryOverPeriod: period.String(),
		CategoryID:      &categoryID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SignedAmount returns the amount with expenses negated.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.IsExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}
