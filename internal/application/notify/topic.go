// Package notify provides typed in-process event topics for UI observers.
package notify

import (
	"log/slog"
	"sync"
)

// DefaultBuffer is the subscription buffer used when none is given.
const DefaultBuffer = 16

// Topic fans a value out to every subscriber. Publish never blocks: a
// subscriber whose buffer is full misses the value.
type Topic[T any] struct {
	name   string
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan T
}

// NewTopic creates an empty topic.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{
		name: name,
		subs: make(map[int]chan T),
	}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// Subscribe registers a subscriber and returns its channel along with a
// function that unsubscribes and closes the channel.
func (t *Topic[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	ch := make(chan T, buffer)
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers v to every subscriber.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for id, ch := range t.subs {
		select {
		case ch <- v:
		default:
			slog.Warn("Dropping event for slow subscriber",
				"topic", t.name,
				"subscriber", id,
			)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (t *Topic[T]) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
