// Package carryforward carries positive monthly balances into the next month.
package carryforward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// lookback is how many months before the current one are backfilled.
const lookback = 2

// RunInput represents the input for a carry-forward run.
type RunInput struct {
	AccountID uuid.UUID
	Now       time.Time // zero means the current time
}

// RunOutput represents the output of a carry-forward run.
type RunOutput struct {
	Enabled bool
	Created []*entity.LedgerEntry
}

// Engine creates at most one carry-over entry per account and month.
type Engine struct {
	uow               adapter.UnitOfWork
	prefs             adapter.PreferenceStore
	bus               *notify.Bus
	suppressionMonths int
	now               func() time.Time

	group singleflight.Group
}

// NewEngine creates a new carry-forward Engine. Suppression records older
// than suppressionMonths are dropped by PruneSuppressions.
func NewEngine(uow adapter.UnitOfWork, prefs adapter.PreferenceStore, bus *notify.Bus, suppressionMonths int) *Engine {
	return &Engine{
		uow:               uow,
		prefs:             prefs,
		bus:               bus,
		suppressionMonths: suppressionMonths,
		now:               time.Now,
	}
}

// Execute checks the current month and the two before it, oldest first, so
// a backfilled month feeds the balance of the next one.
func (e *Engine) Execute(ctx context.Context, input RunInput) (*RunOutput, error) {
	logger := slog.With("account_id", input.AccountID)

	enabled, err := e.prefs.CarryForwardEnabled(ctx, input.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read carry-forward flag: %w", err)
	}
	output := &RunOutput{Enabled: enabled}
	if !enabled {
		logger.Debug("Carry-forward disabled")
		return output, nil
	}

	now := input.Now
	if now.IsZero() {
		now = e.now()
	}
	current := entity.PeriodOf(now)

	for offset := lookback; offset >= 0; offset-- {
		target := current.AddMonths(-offset)
		entry, err := e.carryInto(ctx, input.AccountID, target)
		if err != nil {
			return nil, fmt.Errorf("failed to carry forward into %s: %w", target, err)
		}
		if entry != nil {
			logger.Info("Created carry-over entry", "period", target.String(), "amount", entry.Amount.String())
			output.Created = append(output.Created, entry)
		}
	}

	return output, nil
}

// carryInto creates the carry-over entry for target when it is due. It
// returns nil when the month is suppressed, already carried over, or the
// prior month did not end positive.
func (e *Engine) carryInto(ctx context.Context, accountID uuid.UUID, target entity.Period) (*entity.LedgerEntry, error) {
	suppressed, err := e.prefs.IsSuppressed(ctx, accountID, target)
	if err != nil {
		return nil, fmt.Errorf("failed to read suppression: %w", err)
	}
	if suppressed {
		return nil, nil
	}

	var created *entity.LedgerEntry
	err = e.uow.Do(ctx, func(repos adapter.Repositories) error {
		exists, err := repos.Entries.ExistsCarryOver(ctx, accountID, target.Start(), target.End())
		if err != nil || exists {
			return err
		}

		prior := target.Prev()
		net, err := repos.Entries.NetBalance(ctx, accountID, prior.Start(), prior.End())
		if err != nil {
			return fmt.Errorf("failed to compute balance of %s: %w", prior, err)
		}
		if !net.IsPositive() {
			return nil
		}

		category, err := carryOverCategory(ctx, repos)
		if err != nil {
			return err
		}

		// Re-check right before the insert; the unique index catches the rest.
		exists, err = repos.Entries.ExistsCarryOver(ctx, accountID, target.Start(), target.End())
		if err != nil || exists {
			return err
		}

		entry := entity.NewCarryOverEntry(accountID, net, target, category.ID, "Carried over from "+prior.Label())
		if err := repos.Entries.Create(ctx, entry); err != nil {
			return err
		}
		created = entry
		return nil
	})
	if errors.Is(err, domainerror.ErrDuplicateCarryOver) {
		slog.Info("Carry-over entry created concurrently", "account_id", accountID, "period", target.String())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// carryOverCategory finds the carry-over category, creating it once.
func carryOverCategory(ctx context.Context, repos adapter.Repositories) (*entity.Category, error) {
	category, err := repos.Categories.FindByNameAndType(ctx, entity.CarryOverCategoryName, entity.CategoryTypeIncome)
	if err != nil {
		return nil, fmt.Errorf("failed to find carry-over category: %w", err)
	}
	if category != nil {
		return category, nil
	}

	category = entity.NewCategory(entity.CarryOverCategoryName, entity.CategoryTypeIncome, entity.CarryOverCategoryIcon, false)
	if err := repos.Categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create carry-over category: %w", err)
	}
	return category, nil
}

// Trigger runs Execute for the account at the current time. Concurrent
// triggers for the same account share one run. The run is detached from
// ctx cancellation so a leaving caller does not fail the others.
func (e *Engine) Trigger(ctx context.Context, accountID uuid.UUID) (*RunOutput, error) {
	result, err, shared := e.group.Do(accountID.String(), func() (interface{}, error) {
		return e.Execute(context.WithoutCancel(ctx), RunInput{AccountID: accountID})
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Carry-forward trigger coalesced", "account_id", accountID)
	}
	return result.(*RunOutput), nil
}
