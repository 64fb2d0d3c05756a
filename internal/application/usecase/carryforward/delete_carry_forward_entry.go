package carryforward

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// DeleteEntryInput represents the input for deleting a carry-over entry.
type DeleteEntryInput struct {
	AccountID uuid.UUID
	Year      int
	Month     int
}

// DeleteEntryOutput reports what a delete changed. The month is suppressed
// whether or not an entry existed.
type DeleteEntryOutput struct {
	Period  entity.Period
	Deleted bool
}

// DeleteCarryForwardEntry deletes the carry-over entry of a month and keeps
// the engine from recreating it. The suppression is recorded before the
// delete so a concurrent run cannot slip a new entry in between. Deleting a
// month without an entry only records the suppression.
func (e *Engine) DeleteCarryForwardEntry(ctx context.Context, input DeleteEntryInput) (*DeleteEntryOutput, error) {
	if input.Year < 1 || input.Month < 1 || input.Month > 12 {
		return nil, domainerror.NewCarryForwardError(
			domainerror.ErrCodeInvalidPeriod,
			fmt.Sprintf("invalid period %d-%d", input.Year, input.Month),
			domainerror.ErrInvalidPeriod,
		)
	}
	period := entity.NewPeriod(input.Year, time.Month(input.Month))

	if err := e.prefs.Suppress(ctx, input.AccountID, period); err != nil {
		return nil, fmt.Errorf("failed to record suppression: %w", err)
	}

	output := &DeleteEntryOutput{Period: period}
	err := e.uow.Do(ctx, func(repos adapter.Repositories) error {
		entry, err := repos.Entries.FindCarryOver(ctx, input.AccountID, period.Start(), period.End())
		if err != nil {
			return fmt.Errorf("failed to find carry-over entry: %w", err)
		}
		if entry == nil {
			return nil
		}
		if err := repos.Entries.Delete(ctx, entry.ID); err != nil {
			return err
		}
		output.Deleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Suppressed carry-over",
		"account_id", input.AccountID,
		"period", period.String(),
		"deleted", output.Deleted,
	)
	return output, nil
}
