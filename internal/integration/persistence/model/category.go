// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// CategoryModel represents the categories table in the database.
type CategoryModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"type:varchar(50);not null"`
	Type      string         `gorm:"type:varchar(10);not null"`
	Icon      string         `gorm:"type:varchar(50);default:'tag'"`
	IsCustom  bool           `gorm:"default:false"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null;index"`
	DeletedAt gorm.DeletedAt `gorm:"index"` // Soft-delete support
}

// TableName returns the table name for the CategoryModel.
func (CategoryModel) TableName() string {
	return "categories"
}

// ToEntity converts a CategoryModel to a domain Category entity.
func (m *CategoryModel) ToEntity() *entity.Category {
	return &entity.Category{
		ID:        m.ID,
		Name:      m.Name,
		Type:      entity.CategoryType(m.Type),
		Icon:      m.Icon,
		IsCustom:  m.IsCustom,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		DeletedAt: deletedAtToEntity(m.DeletedAt),
	}
}

// CategoryFromEntity creates a CategoryModel from a domain Category entity.
func CategoryFromEntity(category *entity.Category) *CategoryModel {
	return &CategoryModel{
		ID:        category.ID,
		Name:      category.Name,
		Type:      string(category.Type),
		Icon:      category.Icon,
		IsCustom:  category.IsCustom,
		CreatedAt: category.CreatedAt.UTC(),
		UpdatedAt: category.UpdatedAt.UTC(),
		DeletedAt: deletedAtFromEntity(category.DeletedAt),
	}
}

// CategoryColumns lists the columns replaced when a newer remote copy is merged.
var CategoryColumns = []string{"name", "type", "icon", "is_custom", "created_at", "updated_at", "deleted_at"}
