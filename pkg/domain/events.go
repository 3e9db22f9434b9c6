package domain

import (
	"context"
	"time"
)

// Event is one broadcast message. Its Type is a "<namespace>:<action>" tag.
type Event struct {
	Type        string         `json:"type"`
	SenderID    string         `json:"sender_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	RoomScopeID string         `json:"room_scope_id,omitempty"`

	// SentAt is stamped by the emitting client; receivers derive identifiers from it.
	SentAt time.Time `json:"sent_at"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	next := e
	if e.Payload != nil {
		next.Payload = cloneMap(e.Payload)
	}
	return next
}

// Reaction is an ephemeral overlay with a fixed display lifetime.
// It is never part of RuntimeState and never replayed on resync.
type Reaction struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Symbol    string    `json:"symbol"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RoomSnapshot is the "current custom state" a room advertises to late joiners:
// the active slug and the single most recent event.
type RoomSnapshot struct {
	ActiveSlug string    `json:"active_slug,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	LastEvent  *Event    `json:"last_event,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// IsEmpty reports whether the snapshot carries nothing to resync from.
func (s RoomSnapshot) IsEmpty() bool {
	return s.ActiveSlug == ""
}

// ActivityEvent describes a lifecycle transition of the controller.
type ActivityEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"room_id"`
	Slug      string    `json:"slug"`
	Phase     string    `json:"phase,omitempty"`
	SenderID  string    `json:"sender_id,omitempty"`
}

// DispatchEvent describes one event applied to the shared state.
type DispatchEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	RoomID    string        `json:"room_id"`
	Namespace string        `json:"namespace"`
	Action    string        `json:"action"`
	SenderID  string        `json:"sender_id"`
	Duration  time.Duration `json:"duration"`
}

// LifecycleHooks are the controller's observability and presentation sinks.
// Every field is optional.
type LifecycleHooks struct {
	OnActivityStart func(context.Context, *ActivityEvent)
	OnActivityEnd   func(context.Context, *ActivityEvent)
	OnDispatch      func(context.Context, *DispatchEvent)
	OnStateChange   func(context.Context, RuntimeState)
	OnReaction      func(context.Context, Reaction)
	OnError         func(context.Context, error)
}

// CombineHooks fans every callback out to each non-nil hook, in order.
func CombineHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnActivityStart != nil {
			prev := out.OnActivityStart
			out.OnActivityStart = func(ctx context.Context, e *ActivityEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnActivityStart(ctx, e)
			}
		}
		if h.OnActivityEnd != nil {
			prev := out.OnActivityEnd
			out.OnActivityEnd = func(ctx context.Context, e *ActivityEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnActivityEnd(ctx, e)
			}
		}
		if h.OnDispatch != nil {
			prev := out.OnDispatch
			out.OnDispatch = func(ctx context.Context, e *DispatchEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnDispatch(ctx, e)
			}
		}
		if h.OnStateChange != nil {
			prev := out.OnStateChange
			out.OnStateChange = func(ctx context.Context, s RuntimeState) {
				if prev != nil {
					prev(ctx, s)
				}
				h.OnStateChange(ctx, s)
			}
		}
		if h.OnReaction != nil {
			prev := out.OnReaction
			out.OnReaction = func(ctx context.Context, r Reaction) {
				if prev != nil {
					prev(ctx, r)
				}
				h.OnReaction(ctx, r)
			}
		}
		if h.OnError != nil {
			prev := out.OnError
			out.OnError = func(ctx context.Context, err error) {
				if prev != nil {
					prev(ctx, err)
				}
				h.OnError(ctx, err)
			}
		}
	}
	return out
}
