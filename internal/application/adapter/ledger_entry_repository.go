// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// LedgerEntryRepository defines the interface for ledger entry persistence operations.
// Date ranges are half-open: start <= date < end.
type LedgerEntryRepository interface {
	// Create creates a new ledger entry in the database. A second carry-over
	// entry for the same account and month fails with ErrDuplicateCarryOver.
	Create(ctx context.Context, entry *entity.LedgerEntry) error

	// FindByID retrieves a ledger entry by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.LedgerEntry, error)

	// FindByAccountAndRange retrieves the account's entries dated within the range.
	FindByAccountAndRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*entity.LedgerEntry, error)

	// FindCarryOver retrieves the carry-over entry dated within the range.
	// Returns nil without error when none exists.
	FindCarryOver(ctx context.Context, accountID uuid.UUID, start, end time.Time) (*entity.LedgerEntry, error)

	// ExistsCarryOver checks whether a carry-over entry is dated within the range.
	ExistsCarryOver(ctx context.Context, accountID uuid.UUID, start, end time.Time) (bool, error)

	// NetBalance returns income minus expenses for the account within the range.
	NetBalance(ctx context.Context, accountID uuid.UUID, start, end time.Time) (decimal.Decimal, error)

	// ReassignAccount moves every entry of one account to another.
	ReassignAccount(ctx context.Context, fromAccountID, toAccountID uuid.UUID) (int64, error)

	// ReassignCategory moves every entry of one category to another.
	ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID uuid.UUID) (int64, error)

	// Delete soft-deletes a ledger entry.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByAccount soft-deletes every entry of an account.
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}
