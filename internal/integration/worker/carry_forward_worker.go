package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/application/usecase/carryforward"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// CarryForwardRunner creates carry-over entries and prunes old suppressions.
type CarryForwardRunner interface {
	Trigger(ctx context.Context, accountID uuid.UUID) (*carryforward.RunOutput, error)
	PruneSuppressions(ctx context.Context, now time.Time) (int64, error)
}

// CurrentAccount exposes the account the session is working in.
type CurrentAccount interface {
	Current() *entity.Account
}

// CarryForwardWorkerConfig holds configuration for the carry-forward worker.
type CarryForwardWorkerConfig struct {
	Interval      time.Duration
	PruneInterval time.Duration
}

// DefaultCarryForwardWorkerConfig returns the default worker configuration.
func DefaultCarryForwardWorkerConfig() CarryForwardWorkerConfig {
	return CarryForwardWorkerConfig{
		Interval:      time.Hour,
		PruneInterval: 24 * time.Hour,
	}
}

// CarryForwardWorker runs carry-forward for the current account when the
// account changes, the store reloads, the feature is enabled, and on a
// fixed interval so a month boundary is picked up without user activity.
type CarryForwardWorker struct {
	runner        CarryForwardRunner
	accounts      CurrentAccount
	bus           *notify.Bus
	interval      time.Duration
	pruneInterval time.Duration
	now           func() time.Time
}

// NewCarryForwardWorker creates a new carry-forward worker.
func NewCarryForwardWorker(runner CarryForwardRunner, accounts CurrentAccount, bus *notify.Bus, config CarryForwardWorkerConfig) *CarryForwardWorker {
	defaults := DefaultCarryForwardWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.PruneInterval <= 0 {
		config.PruneInterval = defaults.PruneInterval
	}
	return &CarryForwardWorker{
		runner:        runner,
		accounts:      accounts,
		bus:           bus,
		interval:      config.Interval,
		pruneInterval: config.PruneInterval,
		now:           time.Now,
	}
}

// Start begins the worker loop. It blocks until the context is cancelled.
func (w *CarryForwardWorker) Start(ctx context.Context) {
	slog.Info("Carry-forward worker started",
		"interval", w.interval,
		"prune_interval", w.pruneInterval,
	)

	accountChanged, stopAccount := w.bus.AccountChanged.Subscribe(notify.DefaultBuffer)
	defer stopAccount()
	storeReloaded, stopStore := w.bus.StoreReloaded.Subscribe(notify.DefaultBuffer)
	defer stopStore()
	toggled, stopToggled := w.bus.CarryForwardToggled.Subscribe(notify.DefaultBuffer)
	defer stopToggled()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	pruneTicker := time.NewTicker(w.pruneInterval)
	defer pruneTicker.Stop()

	// Process immediately on start, then on events and tickers
	w.prune(ctx)
	w.runCurrent(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Carry-forward worker shutting down")
			return
		case event, ok := <-accountChanged:
			if !ok {
				return
			}
			w.run(ctx, event.AccountID, "account_changed")
		case _, ok := <-storeReloaded:
			if !ok {
				return
			}
			w.runCurrent(ctx, "store_reloaded")
		case event, ok := <-toggled:
			if !ok {
				return
			}
			if event.Enabled {
				w.run(ctx, event.AccountID, "enabled")
			}
		case <-ticker.C:
			w.runCurrent(ctx, "interval")
		case <-pruneTicker.C:
			w.prune(ctx)
		}
	}
}

func (w *CarryForwardWorker) runCurrent(ctx context.Context, reason string) {
	current := w.accounts.Current()
	if current == nil {
		slog.Debug("Carry-forward skipped, no current account", "reason", reason)
		return
	}
	w.run(ctx, current.ID, reason)
}

func (w *CarryForwardWorker) run(ctx context.Context, accountID uuid.UUID, reason string) {
	logger := slog.With("account_id", accountID, "reason", reason)

	output, err := w.runner.Trigger(ctx, accountID)
	if err != nil {
		logger.Error("Carry-forward run failed", "error", err)
		return
	}
	if len(output.Created) > 0 {
		logger.Info("Carry-forward created entries", "count", len(output.Created))
	}
}

func (w *CarryForwardWorker) prune(ctx context.Context) {
	removed, err := w.runner.PruneSuppressions(ctx, w.now())
	if err != nil {
		slog.Error("Failed to prune carry-forward suppressions", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("Pruned carry-forward suppressions", "count", removed)
	}
}
