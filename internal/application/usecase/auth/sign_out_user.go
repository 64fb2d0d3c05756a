package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finance-tracker/ledger/internal/application/adapter"
)

// SignOutUserUseCase handles user sign-out logic.
type SignOutUserUseCase struct {
	prefs   adapter.PreferenceStore
	session SessionResetter
}

// NewSignOutUserUseCase creates a new SignOutUserUseCase instance.
func NewSignOutUserUseCase(prefs adapter.PreferenceStore, session SessionResetter) *SignOutUserUseCase {
	return &SignOutUserUseCase{
		prefs:   prefs,
		session: session,
	}
}

// Execute forgets the signed-in identity and resets the account session.
// The ledger data stays on the device.
func (uc *SignOutUserUseCase) Execute(ctx context.Context) error {
	if err := uc.prefs.SetIdentity(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	uc.session.Reset("sign-out")

	slog.Info("User signed out")
	return nil
}
