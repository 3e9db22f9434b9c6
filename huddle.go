package huddle

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/internal/runtime"
	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/aretw0/huddle/pkg/registry"
)

// Runtime is the high-level entry point of the library.
// It owns the activity registry and opens rooms bound to it.
type Runtime struct {
	registry    *registry.Registry
	store       ports.OverlayStore
	builtins    []domain.Activity
	builder     registry.Builder
	hooks       domain.LifecycleHooks
	reactionTTL time.Duration
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithOverlayStore sets where user registered activities are persisted.
func WithOverlayStore(store ports.OverlayStore) Option {
	return func(r *Runtime) {
		r.store = store
	}
}

// WithBuiltins replaces the compiled-in activity set (default: activities.Builtins()).
func WithBuiltins(builtins ...domain.Activity) Option {
	return func(r *Runtime) {
		r.builtins = builtins
	}
}

// WithBuilder sets how persisted definitions get their behavior back
// (default: activities.NewTemplate).
func WithBuilder(b registry.Builder) Option {
	return func(r *Runtime) {
		r.builder = b
	}
}

// WithLifecycleHooks registers observability hooks on every room.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runtime) {
		r.hooks = hooks
	}
}

// WithReactionTTL overrides how long reactions stay visible.
func WithReactionTTL(ttl time.Duration) Option {
	return func(r *Runtime) {
		r.reactionTTL = ttl
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// New builds the registry and loads the persisted overlay.
// An unreadable overlay is logged and treated as empty.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		builtins: activities.Builtins(),
		builder:  activities.NewTemplate,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = logging.NewNop()
	}

	regOpts := []registry.Option{
		registry.WithBuilder(rt.builder),
		registry.WithLogger(rt.logger),
	}
	if rt.store != nil {
		regOpts = append(regOpts, registry.WithStore(rt.store))
	}
	rt.registry = registry.New(rt.builtins, regOpts...)
	rt.registry.Load(ctx)

	return rt, nil
}

// Registry returns the activity registry shared by all rooms.
func (r *Runtime) Registry() *registry.Registry {
	return r.registry
}

// Register adds or replaces a user activity. See registry.Registry.Register.
func (r *Runtime) Register(ctx context.Context, act domain.Activity) error {
	return r.registry.Register(ctx, act)
}

// RegisterDefinition registers a serializable definition, giving it behavior
// through the configured builder.
func (r *Runtime) RegisterDefinition(ctx context.Context, def domain.Definition) error {
	return r.registry.Register(ctx, r.builder(def))
}

// RoomOption configures a single room.
type RoomOption func(*roomConfig)

type roomConfig struct {
	hooks domain.LifecycleHooks
}

// WithRoomHooks adds hooks for one room on top of the runtime-wide hooks.
func WithRoomHooks(hooks domain.LifecycleHooks) RoomOption {
	return func(c *roomConfig) {
		c.hooks = hooks
	}
}

// Open creates a controller for one participant in one room.
// The channel may be nil for offline replay.
func (r *Runtime) Open(roomID string, identity domain.Identity, channel ports.Channel, opts ...RoomOption) *Room {
	var cfg roomConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctrlOpts := []runtime.Option{
		runtime.WithLogger(r.logger.With("room", roomID, "participant", identity.ParticipantID)),
		runtime.WithLifecycleHooks(domain.CombineHooks(r.hooks, cfg.hooks)),
	}
	if r.reactionTTL > 0 {
		ctrlOpts = append(ctrlOpts, runtime.WithReactionTTL(r.reactionTTL))
	}
	return &Room{
		id:         roomID,
		controller: runtime.New(roomID, identity, r.registry, channel, ctrlOpts...),
	}
}

// Room is one participant's handle on a room.
type Room struct {
	id         string
	controller *runtime.Controller
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Identity returns the participant identity the room was opened with.
func (r *Room) Identity() domain.Identity { return r.controller.Identity() }

// SetAuthority flips the advisory authority flag.
func (r *Room) SetAuthority(authority bool) { r.controller.SetAuthority(authority) }

// State returns a deep copy of the runtime state.
func (r *Room) State() domain.RuntimeState { return r.controller.State() }

// Reactions returns the reactions currently visible.
func (r *Room) Reactions() []domain.Reaction { return r.controller.Reactions() }

// Dispatch applies an inbound event.
func (r *Room) Dispatch(ctx context.Context, evt domain.Event) error {
	return r.controller.Dispatch(ctx, evt)
}

// SyncLocal resyncs from the room snapshot after joining.
func (r *Room) SyncLocal(ctx context.Context) error {
	return r.controller.SyncLocal(ctx)
}

// Start begins an activity as its initiator.
func (r *Room) Start(ctx context.Context, slug string) error {
	return r.controller.Start(ctx, slug)
}

// Emit sends an action of the active activity.
func (r *Room) Emit(ctx context.Context, action string, payload map[string]any) error {
	return r.controller.Emit(ctx, action, payload)
}

// End stops the active activity for everyone.
func (r *Room) End(ctx context.Context) error {
	return r.controller.End(ctx)
}

// React shows an ephemeral reaction to everyone.
func (r *Room) React(ctx context.Context, symbol string) error {
	return r.controller.React(ctx, symbol)
}

// Close releases the room's timers.
func (r *Room) Close() error {
	return r.controller.Close()
}
