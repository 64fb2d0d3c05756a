// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

// ledgerEntryRepository implements the adapter.LedgerEntryRepository interface.
type ledgerEntryRepository struct {
	db *gorm.DB
}

// NewLedgerEntryRepository creates a new ledger entry repository instance.
func NewLedgerEntryRepository(db *gorm.DB) adapter.LedgerEntryRepository {
	return &ledgerEntryRepository{
		db: db,
	}
}

// Create creates a new ledger entry in the database.
func (r *ledgerEntryRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	entryModel := model.LedgerEntryFromEntity(entry)
	result := r.db.WithContext(ctx).Create(entryModel)
	if result.Error != nil {
		if entry.IsCarryOver && IsDuplicateKeyError(result.Error) {
			return domainerror.ErrDuplicateCarryOver
		}
		return result.Error
	}
	return nil
}

// FindByID retrieves a ledger entry by its ID.
func (r *ledgerEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntryModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrLedgerEntryNotFound
		}
		return nil, result.Error
	}
	return entryModel.ToEntity(), nil
}

// inRange scopes a query to one account's entries with start <= date < end.
func inRange(accountID uuid.UUID, start, end time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("account_id = ? AND date >= ? AND date < ?", accountID, start.UTC(), end.UTC())
	}
}

// FindByAccountAndRange retrieves the account's entries dated within the range.
func (r *ledgerEntryRepository) FindByAccountAndRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*entity.LedgerEntry, error) {
	var entryModels []model.LedgerEntryModel
	result := r.db.WithContext(ctx).
		Scopes(inRange(accountID, start, end)).
		Order("date ASC").
		Order("created_at ASC").
		Find(&entryModels)
	if result.Error != nil {
		return nil, result.Error
	}

	entries := make([]*entity.LedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToEntity()
	}
	return entries, nil
}

// FindCarryOver retrieves the carry-over entry dated within the range.
func (r *ledgerEntryRepository) FindCarryOver(ctx context.Context, accountID uuid.UUID, start, end time.Time) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntryModel
	result := r.db.WithContext(ctx).
		Scopes(inRange(accountID, start, end)).
		Where("is_carry_over = ?", true).
		Order("created_at ASC").
		First(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return entryModel.ToEntity(), nil
}

// ExistsCarryOver checks whether a carry-over entry is dated within the range.
func (r *ledgerEntryRepository) ExistsCarryOver(ctx context.Context, accountID uuid.UUID, start, end time.Time) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Scopes(inRange(accountID, start, end)).
		Where("is_carry_over = ?", true).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// NetBalance returns income minus expenses for the account within the range.
// Amounts are summed as decimals rather than in SQL to avoid float rounding.
func (r *ledgerEntryRepository) NetBalance(ctx context.Context, accountID uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	var rows []struct {
		Amount    decimal.Decimal
		IsExpense bool
	}
	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Select("amount", "is_expense").
		Scopes(inRange(accountID, start, end)).
		Find(&rows)
	if result.Error != nil {
		return decimal.Zero, result.Error
	}

	net := decimal.Zero
	for _, row := range rows {
		if row.IsExpense {
			net = net.Sub(row.Amount)
		} else {
			net = net.Add(row.Amount)
		}
	}
	return net, nil
}

// ReassignAccount moves every entry of one account to another. Carry-over
// entries for a month the target account already carries over are deleted
// instead of moved.
func (r *ledgerEntryRepository) ReassignAccount(ctx context.Context, fromAccountID, toAccountID uuid.UUID) (int64, error) {
	carried := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Select("carry_over_period").
		Where("account_id = ? AND is_carry_over = ?", toAccountID, true)
	if err := softDelete(r.db.WithContext(ctx), &model.LedgerEntryModel{},
		"account_id = ? AND is_carry_over = ? AND carry_over_period IN (?)", fromAccountID, true, carried,
	).Error; err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Where("account_id = ?", fromAccountID).
		Updates(map[string]interface{}{
			"account_id": toAccountID,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReassignCategory moves every entry of one category to another.
func (r *ledgerEntryRepository) ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Where("category_id = ?", fromCategoryID).
		Updates(map[string]interface{}{
			"category_id": toCategoryID,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete soft-deletes a ledger entry.
func (r *ledgerEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := softDelete(r.db.WithContext(ctx), &model.LedgerEntryModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrLedgerEntryNotFound
	}
	return nil
}

// DeleteByAccount soft-deletes every entry of an account.
func (r *ledgerEntryRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	result := softDelete(r.db.WithContext(ctx), &model.LedgerEntryModel{}, "account_id = ?", accountID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

