// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// UserModel represents the users table in the database.
type UserModel struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey"`
	AppleUserIdentifier string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	LastSignInAt        time.Time      `gorm:"not null"`
	CreatedAt           time.Time      `gorm:"not null"`
	UpdatedAt           time.Time      `gorm:"not null;index"`
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for the UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts a UserModel to a domain User entity.
func (m *UserModel) ToEntity() *entity.User {
	return &entity.User{
		ID:                  m.ID,
		AppleUserIdentifier: m.AppleUserIdentifier,
		LastSignInAt:        m.LastSignInAt.UTC(),
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
		DeletedAt:           deletedAtToEntity(m.DeletedAt),
	}
}

// UserFromEntity creates a UserModel from a domain User entity.
func UserFromEntity(user *entity.User) *UserModel {
	return &UserModel{
		ID:                  user.ID,
		AppleUserIdentifier: user.AppleUserIdentifier,
		LastSignInAt:        user.LastSignInAt.UTC(),
		CreatedAt:           user.CreatedAt.UTC(),
		UpdatedAt:           user.UpdatedAt.UTC(),
		DeletedAt:           deletedAtFromEntity(user.DeletedAt),
	}
}

// UserColumns lists the columns replaced when a newer remote copy is merged.
var UserColumns = []string{"apple_user_identifier", "last_sign_in_at", "created_at", "updated_at", "deleted_at"}

func deletedAtToEntity(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time.UTC()
	return &t
}

func deletedAtFromEntity(t *time.Time) gorm.DeletedAt {
	if t == nil {
		return gorm.DeletedAt{}
	}
	return gorm.DeletedAt{Time: t.UTC(), Valid: true}
}
