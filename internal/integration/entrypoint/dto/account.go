package dto

import (
	"time"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	Guest     bool      `json:"guest"`
	CreatedAt time.Time `json:"created_at"`
}

// ToAccountResponse converts a domain Account entity to an AccountResponse DTO.
func ToAccountResponse(account *entity.Account) *AccountResponse {
	if account == nil {
		return nil
	}
	return &AccountResponse{
		ID:        account.ID.String(),
		Name:      account.Name,
		IsDefault: account.IsDefault,
		Guest:     account.IsGuest(),
		CreatedAt: account.CreatedAt,
	}
}
