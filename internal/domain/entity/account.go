// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAccountName is the name given to the account created when none exists.
const DefaultAccountName = "Personal"

// guestOwnerKey groups accounts without an owning user.
const guestOwnerKey = "guest"

// Account represents a named ledger scope owning a set of ledger entries.
type Account struct {
	ID        uuid.UUID
	Name      string
	IsDefault bool
	UserID    *uuid.UUID // nil for guest accounts
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // Soft-delete support
}

// NewAccount creates a new Account entity.
func NewAccount(name string, isDefault bool, userID *uuid.UUID) *Account {
	now := time.Now().UTC()

	return &Account{
		ID:        uuid.New(),
		Name:      name,
		IsDefault: isDefault,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsGuest reports whether the account has no owning user.
func (a *Account) IsGuest() bool {
	return a.UserID == nil
}

// OwnerKey returns the owner part of the account deduplication key.
func (a *Account) OwnerKey() string {
	if a.UserID == nil {
		return guestOwnerKey
	}
	return a.UserID.String()
}

// OwnedBy reports whether the account belongs to the given user.
func (a *Account) OwnedBy(userID uuid.UUID) bool {
	return a.UserID != nil && *a.UserID == userID
}
