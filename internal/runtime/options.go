package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/huddle/pkg/domain"
)

// DefaultReactionTTL is how long a reaction stays visible.
const DefaultReactionTTL = 2500 * time.Millisecond

// Option configures the Controller.
type Option func(*Controller)

// WithLogger configures the structured logger for the controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks sets the observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithReactionTTL overrides the reaction display lifetime.
func WithReactionTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.reactionTTL = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
