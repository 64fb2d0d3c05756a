// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// RemoteReplica is an eventually consistent copy of the ledger held by a
// remote backend.
type RemoteReplica interface {
	// Name identifies the backend in logs.
	Name() string

	// Attach connects to the backend and prepares it for replication.
	Attach(ctx context.Context) error

	// Detach releases the backend connection.
	Detach(ctx context.Context) error

	// Push exports local changes. Records older than the remote copy are skipped.
	Push(ctx context.Context, changes *ChangeSet) error

	// Pull imports remote changes made after since.
	Pull(ctx context.Context, since time.Time) (*ChangeSet, error)
}

// RemoteReplicaFactory builds a detached replica for the configured backend.
type RemoteReplicaFactory func(ctx context.Context) (RemoteReplica, error)

// RemoteEventSink receives remote lifecycle events.
type RemoteEventSink interface {
	Handle(ctx context.Context, event entity.RemoteEvent)
}

// StoreObserver is notified after the ledger store has been swapped or
// changed by remote data.
type StoreObserver interface {
	OnStoreReloaded(ctx context.Context) error
}
