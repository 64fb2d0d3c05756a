// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
)

// PreferenceModel is a key/value row in the preference store.
type PreferenceModel struct {
	Name      string    `gorm:"type:varchar(150);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the PreferenceModel.
func (PreferenceModel) TableName() string {
	return "preferences"
}

// SuppressionModel records that carry-forward into a month was undone by the user.
type SuppressionModel struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	Month     int       `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the SuppressionModel.
func (SuppressionModel) TableName() string {
	return "carry_forward_suppressions"
}
