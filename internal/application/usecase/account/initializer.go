// Package account contains account-related use cases.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/application/usecase/category"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// defaultResolveTimeout bounds one resolution, which runs detached from
// the callers waiting on it.
const defaultResolveTimeout = 30 * time.Second

// State is the lifecycle state of the initializer.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	default:
		return "uninitialized"
	}
}

type resolution struct {
	account *entity.Account
	err     error
}

// Initializer guarantees exactly one current account per session. Concurrent
// callers share a single resolution.
type Initializer struct {
	uow            adapter.UnitOfWork
	prefs          adapter.PreferenceStore
	bus            *notify.Bus
	seed           *category.SeedDefaultCategoriesUseCase
	reconcile      *category.ReconcileCategoriesUseCase
	resolveTimeout time.Duration

	mu              sync.Mutex
	state           State
	generation      uint64
	current         *entity.Account
	waiters         []chan resolution
	categoriesReady bool
}

// NewInitializer creates a new account Initializer.
func NewInitializer(uow adapter.UnitOfWork, prefs adapter.PreferenceStore, bus *notify.Bus) *Initializer {
	return &Initializer{
		uow:            uow,
		prefs:          prefs,
		bus:            bus,
		seed:           category.NewSeedDefaultCategoriesUseCase(uow),
		reconcile:      category.NewReconcileCategoriesUseCase(uow),
		resolveTimeout: defaultResolveTimeout,
	}
}

// State returns the current lifecycle state.
func (i *Initializer) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Current returns the current account, or nil when not initialized.
func (i *Initializer) Current() *entity.Account {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateInitialized {
		return nil
	}
	return i.current
}

// EnsureInitialized returns the current account, resolving it first when
// needed. Cancelling ctx only stops this caller's wait; the resolution
// itself keeps running for the other callers.
func (i *Initializer) EnsureInitialized(ctx context.Context) (*entity.Account, error) {
	i.mu.Lock()
	if i.state == StateInitialized {
		account := i.current
		i.mu.Unlock()
		return account, nil
	}

	ch := make(chan resolution, 1)
	i.waiters = append(i.waiters, ch)
	if i.state == StateUninitialized {
		i.state = StateInitializing
		go i.run(i.generation)
	}
	i.mu.Unlock()

	select {
	case r := <-ch:
		return r.account, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (i *Initializer) run(generation uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), i.resolveTimeout)
	defer cancel()

	account, err := i.resolve(ctx)
	if err != nil {
		err = domainerror.NewAccountError(
			domainerror.ErrCodeResolutionFailed,
			"failed to resolve current account",
			fmt.Errorf("%w: %w", domainerror.ErrAccountResolution, err),
		)
	}

	i.mu.Lock()
	if generation != i.generation {
		// A reset or an explicit switch superseded this resolution and
		// already answered the waiters.
		i.mu.Unlock()
		slog.Info("Discarding superseded account resolution", "generation", generation)
		return
	}

	waiters := i.waiters
	i.waiters = nil
	previous := i.current
	if err != nil {
		i.state = StateUninitialized
	} else {
		i.current = account
		i.state = StateInitialized
	}
	i.mu.Unlock()

	if err != nil {
		slog.Error("Account resolution failed", "error", err, "waiters", len(waiters))
	} else {
		slog.Info("Account resolved", "account_id", account.ID, "name", account.Name, "waiters", len(waiters))
		i.publishChange(previous, account)
	}

	for _, w := range waiters {
		w <- resolution{account: account, err: err}
	}
}

// resolve picks or creates the current account inside one unit of work.
func (i *Initializer) resolve(ctx context.Context) (*entity.Account, error) {
	i.prepareCategories(ctx)

	identity, err := i.prefs.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}
	preferredID, err := i.prefs.CurrentAccountID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferred account: %w", err)
	}

	var account *entity.Account
	err = i.uow.Do(ctx, func(repos adapter.Repositories) error {
		accounts, err := repos.Accounts.FindAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		accounts, err = dedupe(ctx, repos, accounts)
		if err != nil {
			return err
		}

		user, err := signedInUser(ctx, repos, identity)
		if err != nil {
			return err
		}

		candidates := accounts
		if user != nil {
			if owned := ownedBy(accounts, user.ID); len(owned) > 0 {
				candidates = owned
			}
		}
		if account = pick(candidates, preferredID); account != nil {
			return nil
		}

		count, err := repos.Accounts.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count accounts: %w", err)
		}
		if count > 0 {
			// Another writer committed between the listing and now.
			accounts, err = repos.Accounts.FindAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}
			account = pick(accounts, preferredID)
			return nil
		}

		var userID *uuid.UUID
		if user != nil {
			userID = &user.ID
		}
		account = entity.NewAccount(entity.DefaultAccountName, true, userID)
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return fmt.Errorf("failed to create default account: %w", err)
		}
		slog.Info("Created default account", "account_id", account.ID, "guest", account.IsGuest())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := i.prefs.SetCurrentAccountID(ctx, account.ID); err != nil {
		slog.Warn("Failed to persist current account", "account_id", account.ID, "error", err)
	}
	return account, nil
}

// prepareCategories reconciles and seeds categories once per session.
// Failures are logged and retried on the next resolution.
func (i *Initializer) prepareCategories(ctx context.Context) {
	i.mu.Lock()
	ready := i.categoriesReady
	i.mu.Unlock()
	if ready {
		return
	}

	reconciled, err := i.reconcile.Execute(ctx)
	if err != nil {
		slog.Error("Category reconciliation failed", "error", err)
		return
	}
	seeded, err := i.seed.Execute(ctx)
	if err != nil {
		slog.Error("Default category seeding failed", "error", err)
		return
	}
	slog.Info("Categories prepared", "merged", reconciled.Merged, "seeded", len(seeded.Created))

	i.mu.Lock()
	i.categoriesReady = true
	i.mu.Unlock()
}

// dedupe merges accounts sharing an owner and a name into the oldest one
// and returns the survivors, oldest first.
func dedupe(ctx context.Context, repos adapter.Repositories, accounts []*entity.Account) ([]*entity.Account, error) {
	type groupKey struct {
		owner string
		name  string
	}

	keepers := make(map[groupKey]*entity.Account, len(accounts))
	survivors := make([]*entity.Account, 0, len(accounts))
	for _, a := range accounts {
		key := groupKey{owner: a.OwnerKey(), name: a.Name}
		keeper, ok := keepers[key]
		if !ok {
			keepers[key] = a
			survivors = append(survivors, a)
			continue
		}

		moved, err := repos.Entries.ReassignAccount(ctx, a.ID, keeper.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reassign entries of account %s: %w", a.ID, err)
		}
		if err := repos.Accounts.Delete(ctx, a.ID); err != nil {
			return nil, fmt.Errorf("failed to delete duplicate account %s: %w", a.ID, err)
		}
		slog.Info("Merged duplicate account",
			"duplicate_id", a.ID,
			"kept_id", keeper.ID,
			"name", a.Name,
			"entries_moved", moved,
		)
	}
	return survivors, nil
}

// signedInUser returns the user behind identity, or nil for guests and
// identities that never signed in on this store.
func signedInUser(ctx context.Context, repos adapter.Repositories, identity string) (*entity.User, error) {
	if identity == "" {
		return nil, nil
	}
	user, err := repos.Users.FindByAppleUserIdentifier(ctx, identity)
	if errors.Is(err, domainerror.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func ownedBy(accounts []*entity.Account, userID uuid.UUID) []*entity.Account {
	var owned []*entity.Account
	for _, a := range accounts {
		if a.OwnedBy(userID) {
			owned = append(owned, a)
		}
	}
	return owned
}

// pick returns the preferred account when present, else the oldest.
func pick(accounts []*entity.Account, preferredID *uuid.UUID) *entity.Account {
	if len(accounts) == 0 {
		return nil
	}
	if preferredID != nil {
		for _, a := range accounts {
			if a.ID == *preferredID {
				return a
			}
		}
	}
	return accounts[0]
}

// Reset ends the session: the cached account is dropped and queued callers
// fail with ErrSessionReset. In-flight I/O is not interrupted; its result is
// discarded.
func (i *Initializer) Reset(reason string) {
	i.mu.Lock()
	i.generation++
	waiters := i.waiters
	i.waiters = nil
	i.state = StateUninitialized
	i.current = nil
	i.categoriesReady = false
	i.mu.Unlock()

	slog.Info("Account session reset", "reason", reason, "waiters", len(waiters))

	err := domainerror.NewAccountError(
		domainerror.ErrCodeSessionReset,
		"session was reset: "+reason,
		domainerror.ErrSessionReset,
	)
	for _, w := range waiters {
		w <- resolution{err: err}
	}
}

// SwitchAccount makes the given account current. The account must belong
// to the signed-in user, or be a guest account when nobody is signed in.
func (i *Initializer) SwitchAccount(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	identity, err := i.prefs.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var account *entity.Account
	err = i.uow.Do(ctx, func(repos adapter.Repositories) error {
		found, err := repos.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}

		user, err := signedInUser(ctx, repos, identity)
		if err != nil {
			return err
		}
		if (user == nil && !found.IsGuest()) || (user != nil && !found.OwnedBy(user.ID)) {
			return domainerror.ErrAccountNotOwned
		}

		account = found
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domainerror.ErrAccountNotFound):
			return nil, domainerror.NewAccountError(domainerror.ErrCodeAccountNotFound, "account not found", err)
		case errors.Is(err, domainerror.ErrAccountNotOwned):
			return nil, domainerror.NewAccountError(domainerror.ErrCodeAccountNotOwned, "account does not belong to the signed-in user", err)
		}
		return nil, fmt.Errorf("failed to switch account: %w", err)
	}

	if err := i.prefs.SetCurrentAccountID(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("failed to persist current account: %w", err)
	}

	i.mu.Lock()
	i.generation++
	waiters := i.waiters
	i.waiters = nil
	previous := i.current
	i.current = account
	i.state = StateInitialized
	i.mu.Unlock()

	slog.Info("Switched account", "account_id", account.ID, "name", account.Name)
	i.publishChange(previous, account)
	for _, w := range waiters {
		w <- resolution{account: account}
	}
	return account, nil
}

// OnStoreReloaded re-resolves the current account by identifier after the
// ledger store was rebuilt.
func (i *Initializer) OnStoreReloaded(ctx context.Context) error {
	i.mu.Lock()
	if i.state != StateInitialized {
		i.mu.Unlock()
		return nil
	}
	id := i.current.ID
	i.mu.Unlock()

	var found *entity.Account
	err := i.uow.Do(ctx, func(repos adapter.Repositories) error {
		account, err := repos.Accounts.FindByID(ctx, id)
		if errors.Is(err, domainerror.ErrAccountNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = account
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to re-resolve account %s: %w", id, err)
	}

	i.mu.Lock()
	if i.state != StateInitialized || i.current.ID != id {
		i.mu.Unlock()
		return nil
	}
	if found != nil {
		i.current = found
		i.mu.Unlock()
		return nil
	}
	// The rebuilt store no longer has the account; resolve a new one and
	// keep the old one as the previous id for the change event.
	i.state = StateUninitialized
	i.mu.Unlock()

	slog.Warn("Current account missing after store reload", "account_id", id)
	_, err = i.EnsureInitialized(ctx)
	return err
}

func (i *Initializer) publishChange(previous, account *entity.Account) {
	if previous != nil && previous.ID == account.ID {
		return
	}
	event := notify.AccountChanged{AccountID: account.ID, Name: account.Name}
	if previous != nil {
		previousID := previous.ID
		event.PreviousID = &previousID
	}
	i.bus.AccountChanged.Publish(event)
}
