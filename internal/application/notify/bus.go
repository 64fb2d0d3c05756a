package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// AccountChanged is published when the current account changes.
type AccountChanged struct {
	AccountID  uuid.UUID  `json:"account_id"`
	Name       string     `json:"name"`
	PreviousID *uuid.UUID `json:"previous_id,omitempty"`
}

// StoreReloaded is published after a successful store mode transition.
type StoreReloaded struct {
	Mode entity.StoreMode `json:"mode"`
}

// StoreReloadFailed is published when a store mode transition fails.
type StoreReloadFailed struct {
	Mode   entity.StoreMode `json:"mode"`
	Reason string           `json:"reason"`
}

// SchemaRecoveryNeeded is published when an incompatible store was moved aside.
type SchemaRecoveryNeeded struct {
	BackupPath string `json:"backup_path"`
	Reason     string `json:"reason"`
}

// CarryForwardToggled is published when carry-forward is enabled or disabled.
type CarryForwardToggled struct {
	AccountID uuid.UUID `json:"account_id"`
	Enabled   bool      `json:"enabled"`
}

// Event is the envelope used when streaming bus traffic to clients.
type Event struct {
	Topic      string    `json:"topic"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Bus groups the topics observed by the UI.
type Bus struct {
	AccountChanged       *Topic[AccountChanged]
	StoreReloaded        *Topic[StoreReloaded]
	StoreReloadFailed    *Topic[StoreReloadFailed]
	SchemaRecoveryNeeded *Topic[SchemaRecoveryNeeded]
	SyncStatusChanged    *Topic[entity.SyncStatus]
	CarryForwardToggled  *Topic[CarryForwardToggled]
}

// NewBus creates a bus with all topics.
func NewBus() *Bus {
	return &Bus{
		AccountChanged:       NewTopic[AccountChanged]("account_changed"),
		StoreReloaded:        NewTopic[StoreReloaded]("store_reloaded"),
		StoreReloadFailed:    NewTopic[StoreReloadFailed]("store_reload_failed"),
		SchemaRecoveryNeeded: NewTopic[SchemaRecoveryNeeded]("schema_recovery_needed"),
		SyncStatusChanged:    NewTopic[entity.SyncStatus]("sync_status_changed"),
		CarryForwardToggled:  NewTopic[CarryForwardToggled]("carry_forward_toggled"),
	}
}

// Stream merges every topic into a single channel of envelopes until stop is
// called.
func (b *Bus) Stream(buffer int) (<-chan Event, func()) {
	out := make(chan Event, buffer)
	done := make(chan struct{})

	var stops []func()
	forward := func(name string, wait func() (any, bool)) {
		go func() {
			for {
				v, ok := wait()
				if !ok {
					return
				}
				select {
				case out <- Event{Topic: name, Payload: v, OccurredAt: time.Now().UTC()}:
				case <-done:
					return
				default:
				}
			}
		}()
	}

	stops = append(stops, pipe(b.AccountChanged, buffer, forward))
	stops = append(stops, pipe(b.StoreReloaded, buffer, forward))
	stops = append(stops, pipe(b.StoreReloadFailed, buffer, forward))
	stops = append(stops, pipe(b.SchemaRecoveryNeeded, buffer, forward))
	stops = append(stops, pipe(b.SyncStatusChanged, buffer, forward))
	stops = append(stops, pipe(b.CarryForwardToggled, buffer, forward))

	return out, func() {
		close(done)
		for _, stop := range stops {
			stop()
		}
	}
}

func pipe[T any](t *Topic[T], buffer int, forward func(string, func() (any, bool))) func() {
	ch, stop := t.Subscribe(buffer)
	forward(t.Name(), func() (any, bool) {
		v, ok := <-ch
		return v, ok
	})
	return stop
}
