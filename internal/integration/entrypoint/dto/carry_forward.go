package dto

import (
	"time"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// SetCarryForwardRequest represents the request body for toggling carry-forward.
type SetCarryForwardRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// CarryForwardSettingsResponse represents the carry-forward flag of an account.
type CarryForwardSettingsResponse struct {
	AccountID string `json:"account_id"`
	Enabled   bool   `json:"enabled"`
}

// CarryForwardRunResponse represents the result of a carry-forward run.
type CarryForwardRunResponse struct {
	AccountID string                `json:"account_id"`
	Enabled   bool                  `json:"enabled"`
	Created   []LedgerEntryResponse `json:"created"`
}

// CarryForwardDeleteResponse represents the result of deleting a month's
// carry-over. The month is suppressed even when nothing was deleted.
type CarryForwardDeleteResponse struct {
	Period     string `json:"period"`
	Deleted    bool   `json:"deleted"`
	Suppressed bool   `json:"suppressed"`
}

// LedgerEntryResponse represents a ledger entry in API responses.
type LedgerEntryResponse struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Amount          string    `json:"amount"`
	IsExpense       bool      `json:"is_expense"`
	Date            time.Time `json:"date"`
	Note            string    `json:"note,omitempty"`
	IsCarryOver     bool      `json:"is_carry_over"`
	CarryOverPeriod string    `json:"carry_over_period,omitempty"`
	CategoryID      *string   `json:"category_id,omitempty"`
}

// ToLedgerEntryResponse converts a domain LedgerEntry entity to a LedgerEntryResponse DTO.
func ToLedgerEntryResponse(entry *entity.LedgerEntry) LedgerEntryResponse {
	response := LedgerEntryResponse{
		ID:              entry.ID.String(),
		AccountID:       entry.AccountID.String(),
		Amount:          entry.Amount.StringFixed(2),
		IsExpense:       entry.IsExpense,
		Date:            entry.Date,
		Note:            entry.Note,
		IsCarryOver:     entry.IsCarryOver,
		CarryOverPeriod: entry.CarryOverPeriod,
	}
	if entry.CategoryID != nil {
		id := entry.CategoryID.String()
		response.CategoryID = &id
	}
	return response
}
