package ports

import (
	"context"

	"github.com/aretw0/huddle/pkg/domain"
)

// Channel is the room broadcast capability a controller requires.
// Implementations do not echo a participant's own events back to it.
type Channel interface {
	// Send delivers an event to all other current room members.
	Send(ctx context.Context, evt domain.Event) error

	// Subscribe starts receiving room events. The caller must Close the subscription.
	Subscribe(ctx context.Context) (Subscription, error)

	// Snapshot reads the room's current resync snapshot. A room without one
	// returns an empty snapshot and no error.
	Snapshot(ctx context.Context) (domain.RoomSnapshot, error)

	// SetSnapshot replaces the room's resync snapshot. An empty snapshot clears it.
	SetSnapshot(ctx context.Context, snap domain.RoomSnapshot) error
}

// Subscription delivers room traffic to one participant.
type Subscription interface {
	// Events delivers broadcast events from other participants.
	Events() <-chan domain.Event

	// Joins delivers the participant id of each member joining the room.
	Joins() <-chan string

	// Errors delivers non-fatal decode or transport errors; the subscription continues.
	Errors() <-chan error

	// Close stops the subscription. Safe to call multiple times.
	Close() error
}

// Transport opens room channels for participants.
type Transport interface {
	Channel(roomID, participantID string) Channel
}
