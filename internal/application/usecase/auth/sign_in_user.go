package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// SignInUserInput represents the input for user sign-in.
type SignInUserInput struct {
	AppleUserIdentifier string
}

// SignInUserOutput represents the output of user sign-in.
type SignInUserOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
	Created   bool
}

// SignInUserUseCase handles user sign-in logic.
type SignInUserUseCase struct {
	uow          adapter.UnitOfWork
	prefs        adapter.PreferenceStore
	tokenService adapter.TokenService
	session      SessionResetter
}

// NewSignInUserUseCase creates a new SignInUserUseCase instance.
func NewSignInUserUseCase(
	uow adapter.UnitOfWork,
	prefs adapter.PreferenceStore,
	tokenService adapter.TokenService,
	session SessionResetter,
) *SignInUserUseCase {
	return &SignInUserUseCase{
		uow:          uow,
		prefs:        prefs,
		tokenService: tokenService,
		session:      session,
	}
}

// Execute signs the user in, creating the User on first sign-in. A change
// of identity resets the account session.
func (uc *SignInUserUseCase) Execute(ctx context.Context, input SignInUserInput) (*SignInUserOutput, error) {
	identifier := strings.TrimSpace(input.AppleUserIdentifier)
	if identifier == "" {
		return nil, domainerror.NewAuthError(
			domainerror.ErrCodeMissingIdentity,
			"external user identifier is required",
			domainerror.ErrMissingIdentity,
		)
	}

	output := &SignInUserOutput{}
	err := uc.uow.Do(ctx, func(repos adapter.Repositories) error {
		user, err := repos.Users.FindByAppleUserIdentifier(ctx, identifier)
		if errors.Is(err, domainerror.ErrUserNotFound) {
			user = entity.NewUser(identifier)
			if err := repos.Users.Create(ctx, user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			output.User = user
			output.Created = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}

		user.MarkSignedIn(time.Now())
		if err := repos.Users.RecordSignIn(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		output.User = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	previous, err := uc.prefs.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}
	if previous != identifier {
		if err := uc.prefs.SetIdentity(ctx, identifier); err != nil {
			return nil, fmt.Errorf("failed to persist identity: %w", err)
		}
		uc.session.Reset("identity changed")
	}

	token, expiresAt, err := uc.tokenService.GenerateSessionToken(ctx, output.User.ID, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	output.Token = token
	output.ExpiresAt = expiresAt

	slog.Info("User signed in", "user_id", output.User.ID, "created", output.Created)
	return output, nil
}
