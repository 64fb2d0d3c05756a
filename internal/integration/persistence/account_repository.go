// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

// accountRepository implements the adapter.AccountRepository interface.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance.
func NewAccountRepository(db *gorm.DB) adapter.AccountRepository {
	return &accountRepository{
		db: db,
	}
}

// Create creates a new account in the database.
func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountModel := model.AccountFromEntity(account)
	result := r.db.WithContext(ctx).Create(accountModel)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// FindByID retrieves an account by its ID.
func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var accountModel model.AccountModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&accountModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrAccountNotFound
		}
		return nil, result.Error
	}
	return accountModel.ToEntity(), nil
}

// FindAll retrieves all accounts, oldest first.
func (r *accountRepository) FindAll(ctx context.Context) ([]*entity.Account, error) {
	return r.find(r.db.WithContext(ctx))
}

// FindByUser retrieves all accounts owned by a user, oldest first.
func (r *accountRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Account, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *accountRepository) find(query *gorm.DB) ([]*entity.Account, error) {
	var accountModels []model.AccountModel
	result := query.Order("created_at ASC").Order("id ASC").Find(&accountModels)
	if result.Error != nil {
		return nil, result.Error
	}

	accounts := make([]*entity.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToEntity()
	}
	return accounts, nil
}

// Count returns the number of accounts.
func (r *accountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.AccountModel{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// Delete soft-deletes an account.
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := softDelete(r.db.WithContext(ctx), &model.AccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrAccountNotFound
	}
	return nil
}
