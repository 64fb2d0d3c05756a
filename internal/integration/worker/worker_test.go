package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/application/usecase/carryforward"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

type countingSyncRunner struct {
	calls atomic.Int32
}

func (r *countingSyncRunner) RunSync(context.Context) error {
	r.calls.Add(1)
	return errors.New("remote unreachable")
}

type recordingRunner struct {
	mu        sync.Mutex
	triggered []uuid.UUID
	prunes    int
}

func (r *recordingRunner) Trigger(_ context.Context, accountID uuid.UUID) (*carryforward.RunOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggered = append(r.triggered, accountID)
	return &carryforward.RunOutput{Enabled: true}, nil
}

func (r *recordingRunner) PruneSuppressions(context.Context, time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prunes++
	return 1, nil
}

func (r *recordingRunner) snapshot() ([]uuid.UUID, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.triggered...), r.prunes
}

type fixedAccount struct {
	account *entity.Account
}

func (f fixedAccount) Current() *entity.Account {
	return f.account
}

func TestSyncWorker_RunsOnIntervalUntilCancelled(t *testing.T) {
	runner := &countingSyncRunner{}
	worker := NewSyncWorker(runner, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sync worker did not stop")
	}
}

func TestCarryForwardWorker_TriggersOnEvents(t *testing.T) {
	current := &entity.Account{ID: uuid.New(), Name: "Personal"}
	other := uuid.New()
	runner := &recordingRunner{}
	bus := notify.NewBus()
	worker := NewCarryForwardWorker(runner, fixedAccount{account: current}, bus, CarryForwardWorkerConfig{
		Interval:      time.Hour,
		PruneInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	// Startup runs for the current account and prunes once.
	require.Eventually(t, func() bool {
		triggered, prunes := runner.snapshot()
		return len(triggered) == 1 && prunes == 1
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return bus.CarryForwardToggled.Subscribers() == 1 }, time.Second, time.Millisecond)

	bus.AccountChanged.Publish(notify.AccountChanged{AccountID: other, Name: "Joint"})
	require.Eventually(t, func() bool {
		triggered, _ := runner.snapshot()
		return len(triggered) == 2
	}, time.Second, time.Millisecond)

	// Disabling does not run; enabling does.
	bus.CarryForwardToggled.Publish(notify.CarryForwardToggled{AccountID: current.ID, Enabled: false})
	bus.CarryForwardToggled.Publish(notify.CarryForwardToggled{AccountID: current.ID, Enabled: true})
	bus.StoreReloaded.Publish(notify.StoreReloaded{Mode: entity.StoreModeLocalRemote})

	require.Eventually(t, func() bool {
		triggered, _ := runner.snapshot()
		return len(triggered) == 4
	}, time.Second, time.Millisecond)

	triggered, _ := runner.snapshot()
	assert.Equal(t, current.ID, triggered[0])
	assert.Equal(t, other, triggered[1])
	assert.ElementsMatch(t, []uuid.UUID{current.ID, current.ID}, triggered[2:])
}

func TestCarryForwardWorker_SkipsWithoutCurrentAccount(t *testing.T) {
	runner := &recordingRunner{}
	bus := notify.NewBus()
	worker := NewCarryForwardWorker(runner, fixedAccount{}, bus, CarryForwardWorkerConfig{
		Interval:      5 * time.Millisecond,
		PruneInterval: time.Hour,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	worker.Start(ctx)

	triggered, prunes := runner.snapshot()
	assert.Empty(t, triggered)
	assert.Equal(t, 1, prunes)
}
