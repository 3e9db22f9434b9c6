package runtime

import (
	"sort"
	"time"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/google/uuid"
)

func newReactionID() string {
	return uuid.NewString()
}

// addReactionLocked records a reaction and schedules its removal.
// Must be called with the lock held.
func (c *Controller) addReactionLocked(evt domain.Event) *domain.Reaction {
	symbol, _ := evt.Payload["symbol"].(string)
	id, _ := evt.Payload["id"].(string)
	if id == "" {
		id = newReactionID()
	}

	r := domain.Reaction{
		ID:        id,
		SenderID:  evt.SenderID,
		Symbol:    symbol,
		ExpiresAt: c.now().Add(c.reactionTTL),
	}
	if c.closed {
		return &r
	}

	if old, ok := c.timers[id]; ok {
		old.Stop()
	}
	c.reactions[id] = r

	var timer *time.Timer
	timer = time.AfterFunc(c.reactionTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.timers[id] != timer {
			return
		}
		delete(c.timers, id)
		delete(c.reactions, id)
	})
	c.timers[id] = timer
	return &r
}

// Reactions returns the visible reactions, oldest expiry first.
func (c *Controller) Reactions() []domain.Reaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]domain.Reaction, 0, len(c.reactions))
	for _, r := range c.reactions {
		if r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

// Close stops all reaction timers. The controller stays readable.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.reactions = make(map[string]domain.Reaction)
	return nil
}
