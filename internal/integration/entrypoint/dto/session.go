package dto

import (
	"time"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// SignInRequest represents the request body for sign-in.
type SignInRequest struct {
	AppleUserIdentifier string `json:"apple_user_identifier" binding:"required,max=255"`
}

// DeleteProfileRequest represents the optional request body for profile deletion.
type DeleteProfileRequest struct {
	Confirmation string `json:"confirmation"`
}

// SessionResponse represents the response for sign-in.
type SessionResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      UserResponse     `json:"user"`
	Account   *AccountResponse `json:"account,omitempty"`
}

// UserResponse represents the user data in API responses.
type UserResponse struct {
	ID                  string    `json:"id"`
	AppleUserIdentifier string    `json:"apple_user_identifier"`
	LastSignInAt        time.Time `json:"last_sign_in_at"`
	CreatedAt           time.Time `json:"created_at"`
}

// DeleteProfileResponse represents the response for profile deletion.
type DeleteProfileResponse struct {
	AccountsDeleted int   `json:"accounts_deleted"`
	EntriesDeleted  int64 `json:"entries_deleted"`
}

// ToUserResponse converts a domain User entity to a UserResponse DTO.
func ToUserResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:                  user.ID.String(),
		AppleUserIdentifier: user.AppleUserIdentifier,
		LastSignInAt:        user.LastSignInAt,
		CreatedAt:           user.CreatedAt,
	}
}
