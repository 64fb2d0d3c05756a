package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

type stubTokenService struct {
	claims *adapter.TokenClaims
	err    error
}

func (s stubTokenService) GenerateSessionToken(context.Context, uuid.UUID, string) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (s stubTokenService) ValidateSessionToken(context.Context, string) (*adapter.TokenClaims, error) {
	return s.claims, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(tokens adapter.TokenService) *gin.Engine {
	engine := gin.New()
	engine.GET("/me", NewAuthMiddleware(tokens).Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserIDFromContext(c)
		identifier, _ := GetAppleUserIdentifierFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID.String(), "identifier": identifier})
	})
	return engine
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()
	valid := stubTokenService{claims: &adapter.TokenClaims{UserID: userID, AppleUserIdentifier: "apple-1"}}

	tests := []struct {
		name       string
		header     string
		tokens     adapter.TokenService
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", valid, http.StatusUnauthorized, string(domainerror.ErrCodeMissingToken)},
		{"wrong scheme", "Basic abc", valid, http.StatusUnauthorized, string(domainerror.ErrCodeInvalidToken)},
		{"expired", "Bearer tok", stubTokenService{err: domainerror.ErrExpiredToken}, http.StatusUnauthorized, string(domainerror.ErrCodeExpiredToken)},
		{"invalid", "Bearer tok", stubTokenService{err: domainerror.ErrInvalidToken}, http.StatusUnauthorized, string(domainerror.ErrCodeInvalidToken)},
		{"valid", "Bearer tok", valid, http.StatusOK, userID.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			newAuthEngine(tt.tokens).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestRateLimiter_BlocksAfterLimitUntilWindowResets(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	engine := gin.New()
	engine.PUT("/sync", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() int {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/sync", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusTooManyRequests, hit())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, hit())

	now = now.Add(2 * time.Minute)
	limiter.Cleanup()
	limiter.mu.Lock()
	remaining := len(limiter.windows)
	limiter.mu.Unlock()
	require.Zero(t, remaining)
}

func TestRateLimiter_DisabledWhenLimitNotPositive(t *testing.T) {
	limiter := NewRateLimiter(0, time.Minute)
	engine := gin.New()
	engine.PUT("/sync", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/sync", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_SignedInUsersHaveSeparateBudgets(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	engine := gin.New()
	engine.PUT("/sync",
		func(c *gin.Context) {
			if id, err := uuid.Parse(c.GetHeader("X-User")); err == nil {
				c.Set(string(UserIDKey), id)
			}
		},
		limiter.Middleware(),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	hit := func(user string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/sync", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	alice, bob := uuid.NewString(), uuid.NewString()
	assert.Equal(t, http.StatusOK, hit(alice))
	assert.Equal(t, http.StatusTooManyRequests, hit(alice))
	assert.Equal(t, http.StatusOK, hit(bob))

	// Guests from the same address share one budget, apart from users.
	assert.Equal(t, http.StatusOK, hit(""))
	assert.Equal(t, http.StatusTooManyRequests, hit(""))
}
