package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// DeleteProfileInput represents the input for profile deletion.
type DeleteProfileInput struct {
	UserID       uuid.UUID
	Confirmation string
}

// DeleteProfileOutput represents the output of profile deletion.
type DeleteProfileOutput struct {
	AccountsDeleted int
	EntriesDeleted  int64
}

// DeleteProfileUseCase handles profile deletion logic.
type DeleteProfileUseCase struct {
	uow     adapter.UnitOfWork
	prefs   adapter.PreferenceStore
	session SessionResetter
}

// NewDeleteProfileUseCase creates a new DeleteProfileUseCase instance.
func NewDeleteProfileUseCase(uow adapter.UnitOfWork, prefs adapter.PreferenceStore, session SessionResetter) *DeleteProfileUseCase {
	return &DeleteProfileUseCase{
		uow:     uow,
		prefs:   prefs,
		session: session,
	}
}

// Execute deletes the user with their accounts and entries, drops the
// preferences scoped to those accounts and resets the session.
func (uc *DeleteProfileUseCase) Execute(ctx context.Context, input DeleteProfileInput) (*DeleteProfileOutput, error) {
	// Validate confirmation text if provided (clients may confirm in UI)
	if input.Confirmation != "" && input.Confirmation != "DELETE" {
		return nil, domainerror.NewAuthError(
			domainerror.ErrCodeInvalidConfirmation,
			"confirmation must be exactly 'DELETE'",
			nil,
		)
	}

	output := &DeleteProfileOutput{}
	var identifier string
	var accountIDs []uuid.UUID

	err := uc.uow.Do(ctx, func(repos adapter.Repositories) error {
		user, err := repos.Users.FindByID(ctx, input.UserID)
		if err != nil {
			return err
		}
		identifier = user.AppleUserIdentifier

		accounts, err := repos.Accounts.FindByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, account := range accounts {
			deleted, err := repos.Entries.DeleteByAccount(ctx, account.ID)
			if err != nil {
				return fmt.Errorf("failed to delete entries of account %s: %w", account.ID, err)
			}
			if err := repos.Accounts.Delete(ctx, account.ID); err != nil {
				return fmt.Errorf("failed to delete account %s: %w", account.ID, err)
			}
			accountIDs = append(accountIDs, account.ID)
			output.EntriesDeleted += deleted
		}

		return repos.Users.Delete(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, domainerror.ErrUserNotFound) {
			return nil, domainerror.NewAuthError(domainerror.ErrCodeUserNotFound, "user not found", err)
		}
		return nil, err
	}
	output.AccountsDeleted = len(accountIDs)

	for _, id := range accountIDs {
		if err := uc.prefs.ClearAccount(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to clear preferences of account %s: %w", id, err)
		}
	}

	identity, err := uc.prefs.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}
	if identity == identifier {
		if err := uc.prefs.SetIdentity(ctx, ""); err != nil {
			return nil, fmt.Errorf("failed to clear identity: %w", err)
		}
	}
	uc.session.Reset("profile deleted")

	slog.Info("Profile deleted",
		"user_id", input.UserID,
		"accounts_deleted", output.AccountsDeleted,
		"entries_deleted", output.EntriesDeleted,
	)
	return output, nil
}
