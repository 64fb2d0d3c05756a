// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// UserRepository persists signed-in identities. Guest accounts have no user.
type UserRepository interface {
	// Create stores the user created on first sign-in.
	Create(ctx context.Context, user *entity.User) error

	// FindByID retrieves a live user by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByAppleUserIdentifier retrieves the live user for an external identity.
	FindByAppleUserIdentifier(ctx context.Context, identifier string) (*entity.User, error)

	// RecordSignIn stores the user's last sign-in time.
	RecordSignIn(ctx context.Context, user *entity.User) error

	// Delete soft-deletes a user by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}
