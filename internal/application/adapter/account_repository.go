// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// AccountRepository defines the interface for account persistence operations.
type AccountRepository interface {
	// Create creates a new account in the database.
	Create(ctx context.Context, account *entity.Account) error

	// FindByID retrieves an account by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindAll retrieves all accounts, oldest first.
	FindAll(ctx context.Context) ([]*entity.Account, error)

	// FindByUser retrieves all accounts owned by a user, oldest first.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Account, error)

	// Count returns the number of accounts.
	Count(ctx context.Context) (int64, error)

	// Delete soft-deletes an account.
	Delete(ctx context.Context, id uuid.UUID) error
}
