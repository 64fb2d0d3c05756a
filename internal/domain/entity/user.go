// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated person owning zero or more accounts.
type User struct {
	ID                  uuid.UUID
	AppleUserIdentifier string // Stable external identity
	LastSignInAt        time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// NewUser creates a new User for the given external identity.
func NewUser(appleUserIdentifier string) *User {
	now := time.Now().UTC()
	return &User{
		ID:                  uuid.New(),
		AppleUserIdentifier: appleUserIdentifier,
		LastSignInAt:        now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// MarkSignedIn records a sign-in at the given time.
func (u *User) MarkSignedIn(at time.Time) {
	u.LastSignInAt = at.UTC()
	u.UpdatedAt = at.UTC()
}
