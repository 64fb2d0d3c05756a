// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// AccountModel represents the accounts table in the database.
type AccountModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"type:varchar(100);not null"`
	IsDefault bool           `gorm:"default:false"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null;index"`
	DeletedAt gorm.DeletedAt `gorm:"index"` // Soft-delete support
}

// TableName returns the table name for the AccountModel.
func (AccountModel) TableName() string {
	return "accounts"
}

// ToEntity converts an AccountModel to a domain Account entity.
func (m *AccountModel) ToEntity() *entity.Account {
	return &entity.Account{
		ID:        m.ID,
		Name:      m.Name,
		IsDefault: m.IsDefault,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		DeletedAt: deletedAtToEntity(m.DeletedAt),
	}
}

// AccountFromEntity creates an AccountModel from a domain Account entity.
func AccountFromEntity(account *entity.Account) *AccountModel {
	return &AccountModel{
		ID:        account.ID,
		Name:      account.Name,
		IsDefault: account.IsDefault,
		UserID:    account.UserID,
		CreatedAt: account.CreatedAt.UTC(),
		UpdatedAt: account.UpdatedAt.UTC(),
		DeletedAt: deletedAtFromEntity(account.DeletedAt),
	}
}

// AccountColumns lists the columns replaced when a newer remote copy is merged.
var AccountColumns = []string{"name", "is_default", "user_id", "created_at", "updated_at", "deleted_at"}
