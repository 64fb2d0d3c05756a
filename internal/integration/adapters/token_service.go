// Package adapters implements adapter interfaces from the application layer.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

const (
	tokenIssuer      = "finance-tracker-ledger"
	tokenTypeSession = "session"
)

// SessionClaims represents the custom claims for session tokens.
type SessionClaims struct {
	AppleUserIdentifier string `json:"apple_user_identifier"`
	TokenType           string `json:"token_type"`
	jwt.RegisteredClaims
}

// tokenService implements the adapter.TokenService interface.
type tokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenService creates a new token service instance.
func NewTokenService(secret string, expiry time.Duration) adapter.TokenService {
	return &tokenService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// GenerateSessionToken issues a signed session token for the user.
func (s *tokenService) GenerateSessionToken(_ context.Context, userID uuid.UUID, appleUserIdentifier string) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.expiry)
	claims := SessionClaims{
		AppleUserIdentifier: appleUserIdentifier,
		TokenType:           tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateSessionToken validates a session token and returns its claims.
func (s *tokenService) ValidateSessionToken(_ context.Context, tokenString string) (*adapter.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerror.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %w", domainerror.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.TokenType != tokenTypeSession {
		return nil, domainerror.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject: %w", domainerror.ErrInvalidToken, err)
	}

	return &adapter.TokenClaims{
		UserID:              userID,
		AppleUserIdentifier: claims.AppleUserIdentifier,
		ExpiresAt:           claims.ExpiresAt.Time,
	}, nil
}
