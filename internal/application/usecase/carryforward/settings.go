package carryforward

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// Enabled reports whether carry-forward is on for the account.
func (e *Engine) Enabled(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return e.prefs.CarryForwardEnabled(ctx, accountID)
}

// SetEnabled persists the account's carry-forward flag and announces it.
func (e *Engine) SetEnabled(ctx context.Context, accountID uuid.UUID, enabled bool) error {
	if err := e.prefs.SetCarryForwardEnabled(ctx, accountID, enabled); err != nil {
		return fmt.Errorf("failed to persist carry-forward flag: %w", err)
	}

	slog.Info("Carry-forward toggled", "account_id", accountID, "enabled", enabled)
	e.bus.CarryForwardToggled.Publish(notify.CarryForwardToggled{AccountID: accountID, Enabled: enabled})
	return nil
}

// PruneSuppressions drops suppression records for months older than the
// retention window.
func (e *Engine) PruneSuppressions(ctx context.Context, now time.Time) (int64, error) {
	cutoff := entity.PeriodOf(now).AddMonths(-e.suppressionMonths)
	pruned, err := e.prefs.PruneSuppressions(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		slog.Info("Pruned carry-forward suppressions", "pruned", pruned, "cutoff", cutoff.String())
	}
	return pruned, nil
}
