// Package store manages the ledger store's lifecycle: opening, schema
// recovery, hot-swapping between local and local+remote modes, and the
// replication cycle against the remote replica.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/config"
	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/notify"
	remotesync "github.com/finance-tracker/ledger/internal/application/usecase/remote_sync"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/infra/db"
)

// Status describes the store for health reporting.
type Status struct {
	Mode           entity.StoreMode `json:"mode"`
	Open           bool             `json:"open"`
	RemoteAttached bool             `json:"remote_attached"`
	Transitioning  bool             `json:"transitioning"`
	Path           string           `json:"path"`
}

// Controller owns the ledger database handle and the remote replica.
//
// Units of work pin the handle with a read lock; a mode transition takes
// the write lock, so it waits for in-flight work and blocks new work until
// the new handle is in place. Observers and remote events are dispatched
// only after the lock and the transition gate are released.
type Controller struct {
	cfg        *config.StoreConfig
	prefs      adapter.PreferenceStore
	bus        *notify.Bus
	newReplica adapter.RemoteReplicaFactory
	now        func() time.Time

	// openDB opens and migrates the local database.
	openDB func(ctx context.Context) (*db.Database, error)

	mu       sync.RWMutex
	database *db.Database
	mode     entity.StoreMode
	// reopenPending is set when a failed transition could not restore the
	// previous handle.
	reopenPending bool

	replicaMu sync.Mutex
	replica   adapter.RemoteReplica

	transitioning atomic.Bool
	syncMu        sync.Mutex

	observersMu sync.RWMutex
	observers   []adapter.StoreObserver

	sinkMu sync.RWMutex
	sink   adapter.RemoteEventSink
}

// NewController creates a new store controller. newReplica may be nil when
// no remote backend is configured.
func NewController(
	cfg *config.StoreConfig,
	prefs adapter.PreferenceStore,
	bus *notify.Bus,
	newReplica adapter.RemoteReplicaFactory,
) *Controller {
	c := &Controller{
		cfg:        cfg,
		prefs:      prefs,
		bus:        bus,
		newReplica: newReplica,
		now:        func() time.Time { return time.Now().UTC() },
		mode:       entity.StoreModeLocal,
	}
	c.openDB = c.openLocal
	return c
}

// AddObserver registers an observer notified after reloads and refreshes.
func (c *Controller) AddObserver(observer adapter.StoreObserver) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	c.observers = append(c.observers, observer)
}

// SetEventSink sets the receiver of remote lifecycle events.
func (c *Controller) SetEventSink(sink adapter.RemoteEventSink) {
	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()
	c.sink = sink
}

// Open loads or creates the ledger store in the persisted mode.
func (c *Controller) Open(ctx context.Context) error {
	mode, err := c.prefs.StoreMode(ctx)
	if err != nil {
		slog.Warn("Failed to read persisted store mode, using local", "error", err)
		mode = entity.StoreModeLocal
	}

	var events []entity.RemoteEvent
	defer func() { c.dispatch(ctx, events) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.database != nil {
		return nil
	}

	database, err := c.openDB(ctx)
	if err != nil {
		return domainerror.NewStoreError(domainerror.ErrCodeStoreNotOpen, "failed to open ledger store", err)
	}
	c.database = database
	c.mode = mode
	c.reopenPending = false

	if mode == entity.StoreModeLocalRemote {
		c.attachLocked(ctx, &events)
	}

	slog.Info("Ledger store opened", "path", c.cfg.Path, "mode", string(mode))
	return nil
}

// Close detaches the replica and closes the ledger store.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachReplicaLocked(ctx)

	if c.database == nil {
		return nil
	}
	err := c.database.Close()
	c.database = nil
	return err
}

// Mode returns the current store mode.
func (c *Controller) Mode() entity.StoreMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Status returns the store status for health reporting.
func (c *Controller) Status() Status {
	c.mu.RLock()
	status := Status{
		Mode:          c.mode,
		Open:          c.database != nil,
		Transitioning: c.transitioning.Load(),
		Path:          c.cfg.Path,
	}
	c.mu.RUnlock()

	c.replicaMu.Lock()
	status.RemoteAttached = c.replica != nil
	c.replicaMu.Unlock()
	return status
}

// DB returns the current database handle, or nil when the store is closed.
func (c *Controller) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.database == nil {
		return nil
	}
	return c.database.DB()
}

// Pin returns the current handle and keeps it from being swapped until
// release is called.
func (c *Controller) Pin() (*gorm.DB, func()) {
	c.mu.RLock()
	if c.database == nil {
		return nil, c.mu.RUnlock
	}
	return c.database.DB(), c.mu.RUnlock
}

// SetMode rebuilds the store in the given mode. A request for the current
// mode is a no-op, and a request made while another transition is running
// is dropped with ModeBusy. When an earlier failed transition left the store
// closed, a request for the current mode reopens it and reports ModeSwitched.
func (c *Controller) SetMode(ctx context.Context, mode entity.StoreMode) (adapter.ModeResult, error) {
	if !mode.IsValid() {
		return adapter.ModeUnchanged, domainerror.ErrInvalidStoreMode
	}
	if !c.transitioning.CompareAndSwap(false, true) {
		slog.Info("Store transition already in progress, ignoring request", "mode", string(mode))
		return adapter.ModeBusy, nil
	}

	var events []entity.RemoteEvent
	defer func() {
		c.transitioning.Store(false)
		c.dispatch(ctx, events)
	}()

	tctx, cancel := context.WithTimeout(ctx, c.cfg.TransitionTimeout)
	defer cancel()

	logger := slog.With("mode", string(mode))

	c.mu.Lock()
	previous := c.mode
	if previous == mode && !c.reopenPending {
		c.mu.Unlock()
		return adapter.ModeUnchanged, nil
	}

	logger = logger.With("previous_mode", string(previous))
	if previous == mode {
		logger.Info("Reopening ledger store after failed restore")
	} else {
		logger.Info("Store transition started")
	}

	if err := c.swapLocked(tctx, mode, &events); err != nil {
		code := domainerror.ErrCodeStoreReloadFailed
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			code = domainerror.ErrCodeTransitionTimeout
			err = fmt.Errorf("%w: %v", domainerror.ErrTransitionTimeout, err)
		}
		logger.Error("Store transition failed, restoring previous mode", "error", err)

		c.restoreLocked(previous, &events)
		c.mu.Unlock()

		c.bus.StoreReloadFailed.Publish(notify.StoreReloadFailed{Mode: mode, Reason: err.Error()})
		return adapter.ModeUnchanged, domainerror.NewStoreError(
			code, "failed to switch store mode",
			fmt.Errorf("%w: %w", domainerror.ErrStoreReloadFailed, err),
		)
	}
	c.mode = mode
	c.reopenPending = false
	c.mu.Unlock()

	if err := c.prefs.SetStoreMode(ctx, mode); err != nil {
		logger.Error("Failed to persist store mode", "error", err)
	}

	c.notifyObservers(ctx)
	c.bus.StoreReloaded.Publish(notify.StoreReloaded{Mode: mode})

	logger.Info("Store transition completed")
	return adapter.ModeSwitched, nil
}

// swapLocked flushes, detaches and reattaches the store. It must be called
// with mu held for writing.
func (c *Controller) swapLocked(ctx context.Context, mode entity.StoreMode, events *[]entity.RemoteEvent) error {
	// Flush: pending changes go to the replica first; a failed export is
	// retried by the next sync cycle from the unchanged watermark.
	if c.database != nil {
		if replica := c.currentReplica(); replica != nil {
			if _, err := c.export(ctx, c.database.DB(), replica); err != nil {
				slog.Warn("Failed to export pending changes before transition", "error", err)
			}
		}
		if err := c.database.Checkpoint(ctx); err != nil {
			return err
		}
	}

	// Detach.
	c.detachReplicaLocked(ctx)
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			slog.Warn("Failed to close ledger store cleanly", "error", err)
		}
		c.database = nil
	}

	// Reattach.
	database, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	c.database = database

	if mode == entity.StoreModeLocalRemote {
		c.attachLocked(ctx, events)
	}
	return nil
}

// restoreLocked reopens the store in its previous mode after a failed
// transition. The caller's deadline may already have passed, so it runs on
// a fresh deadline. If the reopen fails too, the next SetMode for the
// previous mode retries it.
func (c *Controller) restoreLocked(previous entity.StoreMode, events *[]entity.RemoteEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.TransitionTimeout)
	defer cancel()

	if c.database == nil {
		database, err := c.openDB(ctx)
		if err != nil {
			slog.Error("Failed to reopen ledger store after failed transition", "error", err)
			c.reopenPending = true
			return
		}
		c.database = database
		c.reopenPending = false
	}

	if previous == entity.StoreModeLocalRemote && c.currentReplica() == nil {
		c.attachLocked(ctx, events)
	}
}

// Refresh notifies observers after remote-origin changes.
func (c *Controller) Refresh(ctx context.Context) error {
	c.notifyObservers(ctx)
	return nil
}

func (c *Controller) notifyObservers(ctx context.Context) {
	c.observersMu.RLock()
	observers := make([]adapter.StoreObserver, len(c.observers))
	copy(observers, c.observers)
	c.observersMu.RUnlock()

	for _, observer := range observers {
		if err := observer.OnStoreReloaded(ctx); err != nil {
			slog.Error("Store observer failed to reload", "error", err)
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, events []entity.RemoteEvent) {
	if len(events) == 0 {
		return
	}

	c.sinkMu.RLock()
	sink := c.sink
	c.sinkMu.RUnlock()

	for _, event := range events {
		if sink == nil {
			slog.Info("Remote event without sink", "event", string(event.Kind))
			continue
		}
		sink.Handle(ctx, event)
	}
}

func (c *Controller) event(kind entity.RemoteEventKind, records int, err error) entity.RemoteEvent {
	return entity.RemoteEvent{
		Kind:       kind,
		Error:      remotesync.ClassifyRemoteError(err),
		Records:    records,
		OccurredAt: c.now(),
	}
}

func (c *Controller) currentReplica() adapter.RemoteReplica {
	c.replicaMu.Lock()
	defer c.replicaMu.Unlock()
	return c.replica
}

// attachLocked builds and attaches the replica. Failure never aborts the
// caller; it is reported as a setupFailed event.
func (c *Controller) attachLocked(ctx context.Context, events *[]entity.RemoteEvent) {
	if c.newReplica == nil {
		*events = append(*events, c.event(entity.RemoteSetupFailed, 0, domainerror.ErrRemoteNotConfigured))
		return
	}

	replica, err := c.newReplica(ctx)
	if err == nil {
		actx, cancel := context.WithTimeout(ctx, c.cfg.AttachTimeout)
		err = replica.Attach(actx)
		cancel()
	}
	if err != nil {
		slog.Warn("Failed to attach remote replica", "error", err)
		*events = append(*events, c.event(entity.RemoteSetupFailed, 0, err))
		return
	}

	c.replicaMu.Lock()
	c.replica = replica
	c.replicaMu.Unlock()

	slog.Info("Remote replica attached", "replica", replica.Name())
	*events = append(*events, c.event(entity.RemoteSetupSucceeded, 0, nil))
}

func (c *Controller) detachReplicaLocked(ctx context.Context) {
	c.replicaMu.Lock()
	replica := c.replica
	c.replica = nil
	c.replicaMu.Unlock()

	if replica == nil {
		return
	}
	if err := replica.Detach(ctx); err != nil {
		slog.Warn("Failed to detach remote replica", "replica", replica.Name(), "error", err)
	}
}
