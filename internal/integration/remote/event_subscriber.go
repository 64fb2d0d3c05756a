package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// EventSubscriber forwards remote lifecycle events published on a redis
// channel to a sink.
type EventSubscriber struct {
	client  *redis.Client
	channel string
	sink    adapter.RemoteEventSink
}

// NewEventSubscriber creates a new EventSubscriber.
func NewEventSubscriber(client *redis.Client, channel string, sink adapter.RemoteEventSink) *EventSubscriber {
	return &EventSubscriber{
		client:  client,
		channel: channel,
		sink:    sink,
	}
}

// Start subscribes and forwards events until ctx is cancelled.
func (s *EventSubscriber) Start(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	// Wait for the subscription to be confirmed before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	slog.Info("Remote event subscriber started", "channel", s.channel)

	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				slog.Info("Remote event subscriber stopped", "channel", s.channel)
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				s.forward(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

func (s *EventSubscriber) forward(ctx context.Context, payload string) {
	var event entity.RemoteEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Warn("Dropping undecodable remote event", "channel", s.channel, "error", err)
		return
	}
	if !event.Kind.IsValid() {
		slog.Warn("Dropping unknown remote event", "channel", s.channel, "kind", string(event.Kind))
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.sink.Handle(ctx, event)
}
