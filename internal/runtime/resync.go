package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/huddle/pkg/domain"
)

// SyncLocal rebuilds local state from the room snapshot after a local join.
//
// Only the active slug and the single most recent event are replayed, so
// state built from older events is lost. Any failure leaves the controller
// untouched.
func (c *Controller) SyncLocal(ctx context.Context) error {
	if c.channel == nil {
		return nil
	}

	snap, err := c.channel.Snapshot(ctx)
	if err != nil {
		err = fmt.Errorf("failed to read room snapshot: %w", err)
		c.reportError(ctx, err)
		return err
	}
	if snap.IsEmpty() {
		c.logger.DebugContext(ctx, "no room snapshot, staying idle", "room", c.State().RoomID)
		return nil
	}

	act, ok := c.resolver.Resolve(snap.ActiveSlug)
	if !ok {
		err := &domain.LookupError{Slug: snap.ActiveSlug}
		c.reportError(ctx, err)
		return err
	}

	c.mu.Lock()
	phase := snap.Phase
	if phase == "" {
		phase = act.Definition().InitialPhase()
	}
	scratch := domain.RuntimeState{
		ActiveSlug: snap.ActiveSlug,
		Phase:      phase,
		Shared:     domain.SharedState{},
		RoomID:     c.state.RoomID,
	}
	if snap.LastEvent != nil {
		next, _, err := c.transition(scratch, *snap.LastEvent)
		if err != nil {
			c.mu.Unlock()
			c.reportError(ctx, err)
			return err
		}
		scratch = next
	}
	c.state = scratch
	state := scratch.Clone()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "resynced from room snapshot", "room", state.RoomID, "slug", state.ActiveSlug, "phase", state.Phase)
	if state.ActiveSlug != "" && c.hooks.OnActivityStart != nil {
		c.hooks.OnActivityStart(ctx, &domain.ActivityEvent{
			Timestamp: c.now(),
			RoomID:    state.RoomID,
			Slug:      state.ActiveSlug,
			Phase:     state.Phase,
		})
	}
	if c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(ctx, state)
	}
	return nil
}
