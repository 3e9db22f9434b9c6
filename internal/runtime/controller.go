package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/aretw0/huddle/pkg/protocol"
)

// Resolver looks activity slugs up. *registry.Registry satisfies it.
type Resolver interface {
	Resolve(slug string) (domain.Activity, bool)
}

// Controller drives one client's view of a room.
type Controller struct {
	mu       sync.Mutex
	sendMu   sync.Mutex
	state    domain.RuntimeState
	identity domain.Identity

	resolver Resolver
	channel  ports.Channel

	reactions   map[string]domain.Reaction
	timers      map[string]*time.Timer
	reactionTTL time.Duration
	closed      bool

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
}

// New creates an Idle controller for a room.
// The channel may be nil for offline use (replay); nothing is broadcast then.
func New(roomID string, identity domain.Identity, resolver Resolver, channel ports.Channel, opts ...Option) *Controller {
	c := &Controller{
		state:       domain.NewRuntimeState(roomID),
		identity:    identity,
		resolver:    resolver,
		channel:     channel,
		reactions:   make(map[string]domain.Reaction),
		timers:      make(map[string]*time.Timer),
		reactionTTL: DefaultReactionTTL,
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a deep copy of the current runtime state.
func (c *Controller) State() domain.RuntimeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Identity returns the participant identity of this controller.
func (c *Controller) Identity() domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// SetAuthority flips the advisory authority flag, e.g. after a lock claim.
func (c *Controller) SetAuthority(authority bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity.IsAuthority = authority
}

// Dispatch applies one inbound event.
// Events scoped to another room are dropped without error.
func (c *Controller) Dispatch(ctx context.Context, evt domain.Event) error {
	_, err := c.apply(ctx, evt)
	return err
}

// Start begins an activity as its initiator and broadcasts "<slug>:start".
// The initial snapshot is computed locally by OnStart; receivers start from {}.
func (c *Controller) Start(ctx context.Context, slug string) error {
	act, ok := c.resolver.Resolve(slug)
	if !ok {
		err := &domain.LookupError{Slug: slug}
		c.reportError(ctx, err)
		return err
	}

	c.mu.Lock()
	prev := c.state
	scratch := domain.RuntimeState{
		ActiveSlug: slug,
		Phase:      act.Definition().InitialPhase(),
		RoomID:     prev.RoomID,
	}
	shared, err := c.callOnStart(act, scratch)
	if err != nil {
		c.mu.Unlock()
		herr := &domain.HandlerError{Slug: slug, Action: protocol.ActionStart, Cause: err}
		c.reportError(ctx, herr)
		return herr
	}
	scratch.Shared = shared
	if phase, ok := shared["phase"].(string); ok && phase != "" {
		scratch.Phase = phase
	}

	evt := c.stampLocked(protocol.Format(slug, protocol.ActionStart), map[string]any{"phase": scratch.Phase})
	c.state = scratch
	snapErr := c.writeSnapshot(ctx, evt, outcomeStarted)
	next := c.state.Clone()
	c.sendMu.Lock()
	c.mu.Unlock()

	sendErr := c.send(ctx, evt)
	c.sendMu.Unlock()

	if snapErr != nil {
		c.reportError(ctx, snapErr)
	}

	c.logger.InfoContext(ctx, "activity started", "room", next.RoomID, "slug", slug, "phase", next.Phase)
	c.notify(ctx, evt, outcome{kind: outcomeStarted, tag: protocol.Tag{Namespace: slug, Action: protocol.ActionStart}}, next, 0)
	return sendErr
}

// Emit applies an activity action locally and broadcasts it.
func (c *Controller) Emit(ctx context.Context, action string, payload map[string]any) error {
	slug := c.State().ActiveSlug
	if slug == "" {
		err := &domain.LookupError{Cause: domain.ErrNotActive}
		c.reportError(ctx, err)
		return err
	}
	return c.emitLocal(ctx, c.stamp(protocol.Format(slug, action), payload))
}

// End stops the active activity for everyone. It is a no-op while Idle.
func (c *Controller) End(ctx context.Context) error {
	slug := c.State().ActiveSlug
	if slug == "" {
		return nil
	}
	return c.emitLocal(ctx, c.stamp(protocol.Format(slug, protocol.ActionEnd), nil))
}

// React shows an ephemeral reaction locally and broadcasts it.
func (c *Controller) React(ctx context.Context, symbol string) error {
	namespace := c.State().ActiveSlug
	if namespace == "" {
		namespace = protocol.RoomNamespace
	}
	payload := map[string]any{
		"symbol": symbol,
		"id":     newReactionID(),
	}
	return c.emitLocal(ctx, c.stamp(protocol.Format(namespace, protocol.ActionReaction), payload))
}

// emitLocal runs an event through the dispatch path, then sends it.
// The local transition is never rolled back if the send fails.
func (c *Controller) emitLocal(ctx context.Context, evt domain.Event) error {
	_, err := c.applyAndSend(ctx, evt, true)
	return err
}

func (c *Controller) apply(ctx context.Context, evt domain.Event) (outcome, error) {
	return c.applyAndSend(ctx, evt, false)
}

func (c *Controller) applyAndSend(ctx context.Context, evt domain.Event, broadcast bool) (outcome, error) {
	started := c.now()

	c.mu.Lock()
	next, out, err := c.transition(c.state, evt)
	if err != nil {
		c.mu.Unlock()
		c.reportError(ctx, err)
		return out, err
	}
	if out.kind == outcomeDropped {
		roomID := c.state.RoomID
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "dropping event for another room", "room", roomID, "type", evt.Type, "scope", evt.RoomScopeID)
		return out, nil
	}

	var reaction *domain.Reaction
	if out.kind == outcomeReaction {
		reaction = c.addReactionLocked(evt)
	}
	var snapErr error
	if out.kind.changesState() {
		c.state = next
		snapErr = c.writeSnapshot(ctx, evt, out.kind)
	}
	snapshot := c.state.Clone()

	var sendErr error
	if broadcast {
		c.sendMu.Lock()
		c.mu.Unlock()
		sendErr = c.send(ctx, evt)
		c.sendMu.Unlock()
	} else {
		c.mu.Unlock()
	}

	if snapErr != nil {
		c.reportError(ctx, snapErr)
	}
	c.logger.DebugContext(ctx, "event dispatched", "room", snapshot.RoomID, "type", evt.Type, "sender", evt.SenderID)
	if reaction != nil && c.hooks.OnReaction != nil {
		c.hooks.OnReaction(ctx, *reaction)
	}
	c.notify(ctx, evt, out, snapshot, c.now().Sub(started))
	return out, sendErr
}

// notify fires hooks for an applied event. Must be called without the lock.
func (c *Controller) notify(ctx context.Context, evt domain.Event, out outcome, state domain.RuntimeState, took time.Duration) {
	if c.hooks.OnDispatch != nil {
		c.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			Timestamp: c.now(),
			RoomID:    state.RoomID,
			Namespace: out.tag.Namespace,
			Action:    out.tag.Action,
			SenderID:  evt.SenderID,
			Duration:  took,
		})
	}

	switch out.kind {
	case outcomeStarted:
		if c.hooks.OnActivityStart != nil {
			c.hooks.OnActivityStart(ctx, &domain.ActivityEvent{
				Timestamp: c.now(),
				RoomID:    state.RoomID,
				Slug:      state.ActiveSlug,
				Phase:     state.Phase,
				SenderID:  evt.SenderID,
			})
		}
	case outcomeEnded:
		if c.hooks.OnActivityEnd != nil {
			c.hooks.OnActivityEnd(ctx, &domain.ActivityEvent{
				Timestamp: c.now(),
				RoomID:    state.RoomID,
				Slug:      out.tag.Namespace,
				SenderID:  evt.SenderID,
			})
		}
	}

	if out.kind.changesState() && c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(ctx, state)
	}
}

// stamp builds an outbound event carrying this client's identity and room.
func (c *Controller) stamp(tag string, payload map[string]any) domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stampLocked(tag, payload)
}

// stampLocked is stamp for callers already holding c.mu.
func (c *Controller) stampLocked(tag string, payload map[string]any) domain.Event {
	return domain.Event{
		Type:        tag,
		SenderID:    c.identity.ParticipantID,
		Payload:     payload,
		RoomScopeID: c.state.RoomID,
		SentAt:      c.now().UTC(),
	}
}

func (c *Controller) send(ctx context.Context, evt domain.Event) error {
	if c.channel == nil {
		return nil
	}
	if err := c.channel.Send(ctx, evt); err != nil {
		err = fmt.Errorf("failed to broadcast %s: %w", evt.Type, err)
		c.reportError(ctx, err)
		return err
	}
	return nil
}

// writeSnapshot maintains the room's resync cache when this client is the
// authority. Must be called with the lock held.
func (c *Controller) writeSnapshot(ctx context.Context, evt domain.Event, kind outcomeKind) error {
	if c.channel == nil || !c.identity.IsAuthority {
		return nil
	}

	var snap domain.RoomSnapshot
	if kind != outcomeEnded {
		last := evt.Clone()
		snap = domain.RoomSnapshot{
			ActiveSlug: c.state.ActiveSlug,
			Phase:      c.state.Phase,
			LastEvent:  &last,
			UpdatedAt:  c.now().UTC(),
		}
	}
	if err := c.channel.SetSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("failed to write room snapshot: %w", err)
	}
	return nil
}

func (c *Controller) reportError(ctx context.Context, err error) {
	c.logger.WarnContext(ctx, "dispatch failed", "err", err)
	if c.hooks.OnError != nil {
		c.hooks.OnError(ctx, err)
	}
}
