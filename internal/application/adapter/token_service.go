// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenClaims represents the claims contained in a session token.
type TokenClaims struct {
	UserID              uuid.UUID
	AppleUserIdentifier string
	ExpiresAt           time.Time
}

// TokenService defines the interface for session token operations.
type TokenService interface {
	// GenerateSessionToken issues a signed session token for the user.
	GenerateSessionToken(ctx context.Context, userID uuid.UUID, appleUserIdentifier string) (string, time.Time, error)

	// ValidateSessionToken validates a session token and returns its claims.
	ValidateSessionToken(ctx context.Context, token string) (*TokenClaims, error)
}
