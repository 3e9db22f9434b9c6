package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// envelope carries the publishing participant so subscribers can skip their own traffic.
type envelope struct {
	From  string       `json:"from"`
	Event domain.Event `json:"event"`
}

// Transport opens room channels over Redis pub/sub.
// Delivery is at-most-once, as with any Redis pub/sub consumer.
type Transport struct {
	client *backend.Client
	opts   options
}

// NewTransport creates a transport on an existing client.
func NewTransport(client *backend.Client, opts ...Option) *Transport {
	return &Transport{client: client, opts: newOptions(opts)}
}

// Channel opens the room channel for one participant.
func (t *Transport) Channel(roomID, participantID string) ports.Channel {
	base := t.opts.prefix + "room:" + roomID
	return &Channel{
		client:        t.client,
		participantID: participantID,
		eventsKey:     base + ":events",
		presenceKey:   base + ":presence",
		snapshotKey:   base + ":snapshot",
		snapshotTTL:   t.opts.snapshotTTL,
	}
}

// Channel is one participant's view of a room.
type Channel struct {
	client        *backend.Client
	participantID string
	eventsKey     string
	presenceKey   string
	snapshotKey   string
	snapshotTTL   time.Duration
}

// Send publishes an event to the room.
func (c *Channel) Send(ctx context.Context, evt domain.Event) error {
	data, err := json.Marshal(envelope{From: c.participantID, Event: evt})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.client.Publish(ctx, c.eventsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens to room events and presence, then announces this participant.
// It returns once Redis has confirmed the subscription, so nothing published
// afterwards is missed.
func (c *Channel) Subscribe(ctx context.Context) (ports.Subscription, error) {
	pubsub := c.client.Subscribe(ctx, c.eventsKey, c.presenceKey)
	for i := 0; i < 2; i++ {
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	eventsChan := make(chan domain.Event, 64)
	joinsChan := make(chan string, 16)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(joinsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				if msg.Channel == c.presenceKey {
					if msg.Payload == c.participantID {
						continue
					}
					select {
					case joinsChan <- msg.Payload:
					case <-subCtx.Done():
						return
					}
					continue
				}

				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal room event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				if env.From == c.participantID {
					continue
				}
				select {
				case eventsChan <- env.Event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	if err := c.client.Publish(ctx, c.presenceKey, c.participantID).Err(); err != nil {
		cancelFunc()
		return nil, fmt.Errorf("failed to announce presence: %w", err)
	}

	return &Subscription{
		events: eventsChan,
		joins:  joinsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// Snapshot reads the room snapshot. A missing key is an empty snapshot.
func (c *Channel) Snapshot(ctx context.Context) (domain.RoomSnapshot, error) {
	var snap domain.RoomSnapshot
	data, err := c.client.Get(ctx, c.snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return snap, nil
		}
		return snap, fmt.Errorf("failed to read room snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal room snapshot: %w", err)
	}
	return snap, nil
}

// SetSnapshot replaces the room snapshot; an empty snapshot deletes it.
func (c *Channel) SetSnapshot(ctx context.Context, snap domain.RoomSnapshot) error {
	if snap.IsEmpty() {
		if err := c.client.Del(ctx, c.snapshotKey).Err(); err != nil {
			return fmt.Errorf("failed to clear room snapshot: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal room snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.snapshotKey, data, c.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to write room snapshot: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to a room.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan domain.Event
	joins  <-chan string
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of room events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan domain.Event {
	return s.events
}

// Joins returns the ids of participants announcing themselves.
func (s *Subscription) Joins() <-chan string {
	return s.joins
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors; bad messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}
