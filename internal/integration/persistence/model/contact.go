// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// ContactModel represents the contacts table in the database.
type ContactModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null;index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for the ContactModel.
func (ContactModel) TableName() string {
	return "contacts"
}

// ToEntity converts a ContactModel to a domain Contact entity.
func (m *ContactModel) ToEntity() *entity.Contact {
	return &entity.Contact{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		DeletedAt: deletedAtToEntity(m.DeletedAt),
	}
}

// ContactFromEntity creates a ContactModel from a domain Contact entity.
func ContactFromEntity(contact *entity.Contact) *ContactModel {
	return &ContactModel{
		ID:        contact.ID,
		Name:      contact.Name,
		CreatedAt: contact.CreatedAt.UTC(),
		UpdatedAt: contact.UpdatedAt.UTC(),
		DeletedAt: deletedAtFromEntity(contact.DeletedAt),
	}
}

// ContactColumns lists the columns replaced when a newer remote copy is merged.
var ContactColumns = []string{"name", "created_at", "updated_at", "deleted_at"}
