package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finance-tracker/ledger/config"
	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/infra/db"
	"github.com/finance-tracker/ledger/internal/infra/db/dbtest"
	"github.com/finance-tracker/ledger/internal/integration/persistence"
)

// fakeReplica is an in-memory adapter.RemoteReplica.
type fakeReplica struct {
	mu        sync.Mutex
	attachErr error
	pushErr   error
	pulled    *adapter.ChangeSet
	pushed    []*adapter.ChangeSet
	attached  bool
}

func (r *fakeReplica) Name() string { return "fake" }

func (r *fakeReplica) Attach(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attachErr != nil {
		return r.attachErr
	}
	r.attached = true
	return nil
}

func (r *fakeReplica) Detach(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = false
	return nil
}

func (r *fakeReplica) Push(_ context.Context, changes *adapter.ChangeSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pushErr != nil {
		return r.pushErr
	}
	r.pushed = append(r.pushed, changes)
	return nil
}

func (r *fakeReplica) Pull(context.Context, time.Time) (*adapter.ChangeSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changes := r.pulled
	r.pulled = nil
	if changes == nil {
		return &adapter.ChangeSet{}, nil
	}
	return changes, nil
}

// recordingSink collects remote events.
type recordingSink struct {
	mu     sync.Mutex
	events []entity.RemoteEvent
}

func (s *recordingSink) Handle(_ context.Context, event entity.RemoteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) kinds() []entity.RemoteEventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]entity.RemoteEventKind, len(s.events))
	for i, e := range s.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// countingObserver counts reload notifications.
type countingObserver struct {
	calls atomic.Int32
}

func (o *countingObserver) OnStoreReloaded(context.Context) error {
	o.calls.Add(1)
	return nil
}

type fixture struct {
	controller *Controller
	prefs      adapter.PreferenceStore
	bus        *notify.Bus
	replica    *fakeReplica
	sink       *recordingSink
	observer   *countingObserver
	path       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	cfg := &config.StoreConfig{
		Path:              path,
		BusyTimeout:       time.Second,
		TransitionTimeout: 5 * time.Second,
		OpenRetries:       2,
		OpenRetryBase:     time.Millisecond,
		AttachTimeout:     time.Second,
	}

	prefsDB := dbtest.NewPreferenceDatabase(t, persistence.PreferenceModels()...)
	prefs := persistence.NewPreferenceStore(prefsDB.DB(), false)
	bus := notify.NewBus()
	replica := &fakeReplica{}

	controller := NewController(cfg, prefs, bus, func(context.Context) (adapter.RemoteReplica, error) {
		return replica, nil
	})
	sink := &recordingSink{}
	observer := &countingObserver{}
	controller.SetEventSink(sink)
	controller.AddObserver(observer)
	t.Cleanup(func() { _ = controller.Close(context.Background()) })

	return &fixture{
		controller: controller,
		prefs:      prefs,
		bus:        bus,
		replica:    replica,
		sink:       sink,
		observer:   observer,
		path:       path,
	}
}

func createAccount(t *testing.T, conn persistence.Connection, name string) *entity.Account {
	t.Helper()
	account := entity.NewAccount(name, true, nil)
	err := persistence.NewUnitOfWork(conn).Do(context.Background(), func(repos adapter.Repositories) error {
		return repos.Accounts.Create(context.Background(), account)
	})
	require.NoError(t, err)
	return account
}

func TestController_OpenFresh(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.controller.Open(context.Background()))

	status := f.controller.Status()
	assert.True(t, status.Open)
	assert.Equal(t, entity.StoreModeLocal, status.Mode)
	assert.False(t, status.RemoteAttached)
	assert.True(t, f.controller.DB().Migrator().HasTable("accounts"))
	assert.Empty(t, f.sink.kinds())
}

func TestController_OpenRecoversIncompatibleSchema(t *testing.T) {
	f := newFixture(t)

	// A store written by a newer schema.
	newer, err := db.NewSQLiteConnection(f.path, time.Second)
	require.NoError(t, err)
	_, err = newer.Migrate(context.Background())
	require.NoError(t, err)
	require.NoError(t, newer.DB().Exec(
		"INSERT INTO goose_db_version (version_id, is_applied) VALUES (?, ?)", 9999, true,
	).Error)
	require.NoError(t, newer.Close())

	recoveries, stop := f.bus.SchemaRecoveryNeeded.Subscribe(1)
	defer stop()

	require.NoError(t, f.controller.Open(context.Background()))

	select {
	case recovery := <-recoveries:
		assert.FileExists(t, recovery.BackupPath)
		assert.Contains(t, recovery.BackupPath, f.path+".backup-")
	default:
		t.Fatal("expected SchemaRecoveryNeeded")
	}
	assert.True(t, f.controller.Status().Open)

	count, err := persistence.NewAccountRepository(f.controller.DB()).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestController_SetModeSameModeIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.controller.Open(context.Background()))
	reloads, stop := f.bus.StoreReloaded.Subscribe(1)
	defer stop()

	result, err := f.controller.SetMode(context.Background(), entity.StoreModeLocal)
	require.NoError(t, err)

	assert.Equal(t, adapter.ModeUnchanged, result)
	assert.Equal(t, int32(0), f.observer.calls.Load())
	select {
	case <-reloads:
		t.Fatal("unexpected StoreReloaded")
	default:
	}
}

func TestController_SetModeRejectsInvalidMode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.controller.Open(context.Background()))

	_, err := f.controller.SetMode(context.Background(), entity.StoreMode("cloud"))
	assert.ErrorIs(t, err, domainerror.ErrInvalidStoreMode)
}

func TestController_SetModeKeepsData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.controller.Open(ctx))
	account := createAccount(t, f.controller, "Personal")

	reloads, stop := f.bus.StoreReloaded.Subscribe(1)
	defer stop()

	result, err := f.controller.SetMode(ctx, entity.StoreModeLocalRemote)
	require.NoError(t, err)
	assert.Equal(t, adapter.ModeSwitched, result)

	assert.Equal(t, entity.StoreModeLocalRemote, f.controller.Mode())
	assert.True(t, f.controller.Status().RemoteAttached)
	assert.Equal(t, int32(1), f.observer.calls.Load())
	assert.Equal(t, notify.StoreReloaded{Mode: entity.StoreModeLocalRemote}, <-reloads)
	assert.Equal(t, []entity.RemoteEventKind{entity.RemoteSetupSucceeded}, f.sink.kinds())

	persisted, err := f.prefs.StoreMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StoreModeLocalRemote, persisted)

	found, err := persistence.NewAccountRepository(f.controller.DB()).FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Personal", found.Name)

	// Switching back exports pending changes before detaching.
	_, err = f.controller.SetMode(ctx, entity.StoreModeLocal)
	require.NoError(t, err)
	assert.False(t, f.controller.Status().RemoteAttached)
	require.Len(t, f.replica.pushed, 1)
	assert.Len(t, f.replica.pushed[0].Accounts, 1)
}

func TestController_RemoteFailureDoesNotAbortTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.replica.attachErr = errors.New("WRONGPASS invalid username-password pair")
	require.NoError(t, f.controller.Open(ctx))

	result, err := f.controller.SetMode(ctx, entity.StoreModeLocalRemote)
	require.NoError(t, err)

	assert.Equal(t, adapter.ModeSwitched, result)
	assert.Equal(t, entity.StoreModeLocalRemote, f.controller.Mode())
	assert.False(t, f.controller.Status().RemoteAttached)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, entity.RemoteSetupFailed, f.sink.events[0].Kind)
	assert.Equal(t, entity.RemoteErrorAccountUnavailable, f.sink.events[0].Error.Class)
}

func TestController_SecondTransitionIsDropped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.controller.Open(context.Background()))

	f.controller.transitioning.Store(true)
	result, err := f.controller.SetMode(context.Background(), entity.StoreModeLocalRemote)
	f.controller.transitioning.Store(false)

	require.NoError(t, err)
	assert.Equal(t, adapter.ModeBusy, result)
	assert.Equal(t, entity.StoreModeLocal, f.controller.Mode())
}

func TestController_ConcurrentTransitionsSwitchOnce(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.controller.Open(context.Background()))

	const callers = 8
	results := make(chan adapter.ModeResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.controller.SetMode(context.Background(), entity.StoreModeLocalRemote)
			assert.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	switched := 0
	for result := range results {
		if result == adapter.ModeSwitched {
			switched++
		}
	}
	assert.Equal(t, 1, switched)
	assert.Equal(t, int32(1), f.observer.calls.Load())
}

func TestController_LocalFailureRestoresPreviousMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.controller.Open(ctx))
	account := createAccount(t, f.controller, "Personal")

	failures, stop := f.bus.StoreReloadFailed.Subscribe(1)
	defer stop()

	realOpen := f.controller.openDB
	var calls atomic.Int32
	f.controller.openDB = func(ctx context.Context) (*db.Database, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("disk I/O error")
		}
		return realOpen(ctx)
	}

	result, err := f.controller.SetMode(ctx, entity.StoreModeLocalRemote)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerror.ErrStoreReloadFailed)
	assert.Equal(t, adapter.ModeUnchanged, result)

	assert.Equal(t, entity.StoreModeLocal, f.controller.Mode())
	assert.True(t, f.controller.Status().Open)
	assert.Equal(t, entity.StoreModeLocalRemote, (<-failures).Mode)
	assert.Equal(t, int32(0), f.observer.calls.Load())

	_, err = persistence.NewAccountRepository(f.controller.DB()).FindByID(ctx, account.ID)
	assert.NoError(t, err)

	persisted, err := f.prefs.StoreMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StoreModeLocal, persisted)
}

func TestController_TransitionTimeoutIsFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.controller.cfg.TransitionTimeout = 50 * time.Millisecond
	require.NoError(t, f.controller.Open(ctx))

	realOpen := f.controller.openDB
	var calls atomic.Int32
	f.controller.openDB = func(ctx context.Context) (*db.Database, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return realOpen(ctx)
	}

	_, err := f.controller.SetMode(ctx, entity.StoreModeLocalRemote)
	assert.ErrorIs(t, err, domainerror.ErrTransitionTimeout)
	assert.True(t, f.controller.Status().Open)
	assert.False(t, f.controller.Status().Transitioning)
}

func TestController_SyncExportsAndImports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.prefs.SetStoreMode(ctx, entity.StoreModeLocalRemote))
	require.NoError(t, f.controller.Open(ctx))
	local := createAccount(t, f.controller, "Personal")

	remote := entity.NewAccount("Shared", false, nil)
	f.replica.pulled = &adapter.ChangeSet{Accounts: []*entity.Account{remote}}

	require.NoError(t, f.controller.Sync(ctx))

	require.Len(t, f.replica.pushed, 1)
	assert.Equal(t, local.ID, f.replica.pushed[0].Accounts[0].ID)

	_, err := persistence.NewAccountRepository(f.controller.DB()).FindByID(ctx, remote.ID)
	assert.NoError(t, err)

	assert.Equal(t, []entity.RemoteEventKind{
		entity.RemoteSetupSucceeded,
		entity.RemoteExportSucceeded,
		entity.RemoteImportSucceeded,
	}, f.sink.kinds())

	exported, err := f.prefs.SyncWatermark(ctx, adapter.SyncDirectionExport)
	require.NoError(t, err)
	assert.False(t, exported.IsZero())

	imported, err := f.prefs.SyncWatermark(ctx, adapter.SyncDirectionImport)
	require.NoError(t, err)
	assert.True(t, imported.Equal(remote.UpdatedAt))
}

func TestController_SyncReportsPushFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.prefs.SetStoreMode(ctx, entity.StoreModeLocalRemote))
	require.NoError(t, f.controller.Open(ctx))
	createAccount(t, f.controller, "Personal")
	f.replica.pushErr = domainerror.ErrRemotePartialFailure

	require.NoError(t, f.controller.Sync(ctx))

	events := f.sink.events
	require.Len(t, events, 3)
	assert.Equal(t, entity.RemoteExportFailed, events[1].Kind)
	assert.Equal(t, entity.RemoteErrorPartialFailure, events[1].Error.Class)

	watermark, err := f.prefs.SyncWatermark(ctx, adapter.SyncDirectionExport)
	require.NoError(t, err)
	assert.True(t, watermark.IsZero())
}

func TestController_SyncInLocalModeIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.controller.Open(ctx))

	require.NoError(t, f.controller.Sync(ctx))
	assert.Empty(t, f.sink.kinds())
}

func TestController_UnitOfWorkAfterClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.controller.Open(ctx))
	require.NoError(t, f.controller.Close(ctx))

	err := persistence.NewUnitOfWork(f.controller).Do(ctx, func(adapter.Repositories) error { return nil })
	assert.ErrorIs(t, err, domainerror.ErrStoreNotOpen)
}

func TestController_SetModeReopensAfterFailedRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.controller.Open(ctx))
	account := createAccount(t, f.controller, "Personal")

	realOpen := f.controller.openDB
	var failing atomic.Bool
	failing.Store(true)
	f.controller.openDB = func(ctx context.Context) (*db.Database, error) {
		if failing.Load() {
			return nil, errors.New("disk I/O error")
		}
		return realOpen(ctx)
	}

	// Both the swap and the restore fail.
	_, err := f.controller.SetMode(ctx, entity.StoreModeLocalRemote)
	require.ErrorIs(t, err, domainerror.ErrStoreReloadFailed)
	assert.Equal(t, entity.StoreModeLocal, f.controller.Mode())
	assert.False(t, f.controller.Status().Open)
	assert.Nil(t, f.controller.DB())

	// Still failing: the store stays closed and the reopen stays pending.
	_, err = f.controller.SetMode(ctx, entity.StoreModeLocal)
	require.ErrorIs(t, err, domainerror.ErrStoreReloadFailed)
	assert.False(t, f.controller.Status().Open)

	failing.Store(false)
	reloads, stop := f.bus.StoreReloaded.Subscribe(1)
	defer stop()

	result, err := f.controller.SetMode(ctx, entity.StoreModeLocal)
	require.NoError(t, err)
	assert.Equal(t, adapter.ModeSwitched, result)
	assert.True(t, f.controller.Status().Open)
	assert.Equal(t, entity.StoreModeLocal, f.controller.Mode())
	assert.Equal(t, notify.StoreReloaded{Mode: entity.StoreModeLocal}, <-reloads)

	found, err := persistence.NewAccountRepository(f.controller.DB()).FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Personal", found.Name)

	result, err = f.controller.SetMode(ctx, entity.StoreModeLocal)
	require.NoError(t, err)
	assert.Equal(t, adapter.ModeUnchanged, result)
}

func TestController_SetModeBeforeOpenDoesNotOpen(t *testing.T) {
	f := newFixture(t)

	result, err := f.controller.SetMode(context.Background(), entity.StoreModeLocal)
	require.NoError(t, err)
	assert.Equal(t, adapter.ModeUnchanged, result)
	assert.Nil(t, f.controller.DB())
}
