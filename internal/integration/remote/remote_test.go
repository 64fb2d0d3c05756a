package remote

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/infra/db"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, func() *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, func() *redis.Client {
		return redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}
}

func sampleChanges(at time.Time) *adapter.ChangeSet {
	account := entity.NewAccount("Personal", true, nil)
	account.CreatedAt, account.UpdatedAt = at, at
	entry := entity.NewLedgerEntry(account.ID, decimal.RequireFromString("12.50"), true, at, "lunch", nil, nil)
	entry.CreatedAt, entry.UpdatedAt = at, at
	return &adapter.ChangeSet{
		Accounts: []*entity.Account{account},
		Entries:  []*entity.LedgerEntry{entry},
	}
}

func TestRedisReplica_PushPull(t *testing.T) {
	ctx := context.Background()
	_, newClient := newRedis(t)
	replica := NewRedisReplica(newClient(), "test")
	require.NoError(t, replica.Attach(ctx))
	defer replica.Detach(ctx)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	changes := sampleChanges(at)
	require.NoError(t, replica.Push(ctx, changes))

	pulled, err := replica.Pull(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, pulled.Accounts, 1)
	require.Len(t, pulled.Entries, 1)
	assert.Equal(t, changes.Accounts[0].ID, pulled.Accounts[0].ID)
	assert.True(t, pulled.Entries[0].Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "lunch", pulled.Entries[0].Note)

	later, err := replica.Pull(ctx, at.Add(time.Second))
	require.NoError(t, err)
	assert.Zero(t, later.Len())
}

func TestRedisReplica_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	_, newClient := newRedis(t)
	replica := NewRedisReplica(newClient(), "test")
	require.NoError(t, replica.Attach(ctx))
	defer replica.Detach(ctx)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	account := entity.NewAccount("Renamed", false, nil)
	account.UpdatedAt = at
	require.NoError(t, replica.Push(ctx, &adapter.ChangeSet{Accounts: []*entity.Account{account}}))

	stale := *account
	stale.Name = "Stale"
	stale.UpdatedAt = at.Add(-time.Hour)
	require.NoError(t, replica.Push(ctx, &adapter.ChangeSet{Accounts: []*entity.Account{&stale}}))

	deleted := *account
	deletedAt := at.Add(time.Hour)
	deleted.DeletedAt = &deletedAt
	require.NoError(t, replica.Push(ctx, &adapter.ChangeSet{Accounts: []*entity.Account{&deleted}}))

	pulled, err := replica.Pull(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, pulled.Accounts, 1)
	assert.Equal(t, "Renamed", pulled.Accounts[0].Name)
	require.NotNil(t, pulled.Accounts[0].DeletedAt)
	assert.True(t, deletedAt.Equal(*pulled.Accounts[0].DeletedAt))
}

func TestRedisReplica_PartialFailure(t *testing.T) {
	ctx := context.Background()
	mr, newClient := newRedis(t)
	replica := NewRedisReplica(newClient(), "test")
	require.NoError(t, replica.Attach(ctx))
	defer replica.Detach(ctx)

	// A key of the wrong type makes every entry write fail.
	require.NoError(t, mr.Set("test:entries", "not-a-hash"))

	err := replica.Push(ctx, sampleChanges(time.Now().UTC()))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerror.ErrRemotePartialFailure)
}

func TestRedisReplica_AttachFailsWhenUnreachable(t *testing.T) {
	mr, newClient := newRedis(t)
	client := newClient()
	mr.Close()

	replica := NewRedisReplica(client, "test")
	err := replica.Attach(context.Background())
	require.Error(t, err)
	_ = replica.Detach(context.Background())
}

func TestSQLReplica_PushPull(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "remote.db")
	replica := NewSQLReplica("sql", func(context.Context) (*db.Database, error) {
		return db.NewSQLiteConnection(path, time.Second)
	})
	require.NoError(t, replica.Attach(ctx))
	defer replica.Detach(ctx)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	changes := sampleChanges(at)
	require.NoError(t, replica.Push(ctx, changes))

	stale := *changes.Accounts[0]
	stale.Name = "Stale"
	stale.UpdatedAt = at.Add(-time.Minute)
	require.NoError(t, replica.Push(ctx, &adapter.ChangeSet{Accounts: []*entity.Account{&stale}}))

	pulled, err := replica.Pull(ctx, at.Add(-time.Second))
	require.NoError(t, err)
	require.Len(t, pulled.Accounts, 1)
	assert.Equal(t, "Personal", pulled.Accounts[0].Name)
	require.Len(t, pulled.Entries, 1)
	assert.Equal(t, changes.Entries[0].ID, pulled.Entries[0].ID)
}

func TestSQLReplica_RequiresAttach(t *testing.T) {
	replica := NewSQLReplica("sql", nil)
	_, err := replica.Pull(context.Background(), time.Time{})
	assert.Error(t, err)
	assert.Error(t, replica.Push(context.Background(), &adapter.ChangeSet{}))
	assert.NoError(t, replica.Detach(context.Background()))
}

type recordingSink struct {
	mu     sync.Mutex
	events []entity.RemoteEvent
}

func (s *recordingSink) Handle(_ context.Context, event entity.RemoteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() []entity.RemoteEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.RemoteEvent(nil), s.events...)
}

func TestEventSubscriber_ForwardsValidEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, newClient := newRedis(t)
	client := newClient()
	defer client.Close()

	sink := &recordingSink{}
	require.NoError(t, NewEventSubscriber(client, "ledger:events", sink).Start(ctx))

	valid, err := json.Marshal(entity.RemoteEvent{
		Kind:  entity.RemoteExportFailed,
		Error: &entity.RemoteError{Class: entity.RemoteErrorQuotaExceeded},
	})
	require.NoError(t, err)

	publisher := newClient()
	defer publisher.Close()
	require.NoError(t, publisher.Publish(ctx, "ledger:events", "{not json").Err())
	require.NoError(t, publisher.Publish(ctx, "ledger:events", `{"kind":"somethingElse"}`).Err())
	require.NoError(t, publisher.Publish(ctx, "ledger:events", valid).Err())

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	event := sink.snapshot()[0]
	assert.Equal(t, entity.RemoteExportFailed, event.Kind)
	require.NotNil(t, event.Error)
	assert.Equal(t, entity.RemoteErrorQuotaExceeded, event.Error.Class)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestChangeStamp(t *testing.T) {
	updated := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	deleted := updated.Add(time.Minute)
	earlier := updated.Add(-time.Minute)

	assert.Equal(t, updated, changeStamp(updated, nil))
	assert.Equal(t, deleted, changeStamp(updated, &deleted))
	assert.Equal(t, updated, changeStamp(updated, &earlier))
}
