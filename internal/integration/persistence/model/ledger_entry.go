// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// LedgerEntryModel represents the ledger_entries table in the database.
type LedgerEntryModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	IsExpense       bool            `gorm:"not null;default:false"`
	Date            time.Time       `gorm:"not null;index"`
	Note            string          `gorm:"type:text"`
	IsCarryOver     bool            `gorm:"not null;default:false"`
	CarryOverPeriod string          `gorm:"type:varchar(7)"`
	CategoryID      *uuid.UUID      `gorm:"type:uuid;index"`
	ContactID       *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null;index"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"` // Soft-delete support
}

// TableName returns the table name for the LedgerEntryModel.
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToEntity converts a LedgerEntryModel to a domain LedgerEntry entity.
func (m *LedgerEntryModel) ToEntity() *entity.LedgerEntry {
	return &entity.LedgerEntry{
		ID:              m.ID,
		AccountID:       m.AccountID,
		Amount:          m.Amount,
		IsExpense:       m.IsExpense,
		Date:            m.Date.UTC(),
		Note:            m.Note,
		IsCarryOver:     m.IsCarryOver,
		CarryOverPeriod: m.CarryOverPeriod,
		CategoryID:      m.CategoryID,
		ContactID:       m.ContactID,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		DeletedAt:       deletedAtToEntity(m.DeletedAt),
	}
}

// LedgerEntryFromEntity creates a LedgerEntryModel from a domain LedgerEntry entity.
func LedgerEntryFromEntity(entry *entity.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:              entry.ID,
		AccountID:       entry.AccountID,
		Amount:          entry.Amount,
		IsExpense:       entry.IsExpense,
		Date:            entry.Date.UTC(),
		Note:            entry.Note,
		IsCarryOver:     entry.IsCarryOver,
		CarryOverPeriod: entry.CarryOverPeriod,
		CategoryID:      entry.CategoryID,
		ContactID:       entry.ContactID,
		CreatedAt:       entry.CreatedAt.UTC(),
		UpdatedAt:       entry.UpdatedAt.UTC(),
		DeletedAt:       deletedAtFromEntity(entry.DeletedAt),
	}
}

// LedgerEntryColumns lists the columns replaced when a newer remote copy is merged.
var LedgerEntryColumns = []string{
	"account_id", "amount", "is_expense", "date", "note", "is_carry_over",
	"carry_over_period", "category_id", "contact_id", "created_at", "updated_at", "deleted_at",
}
