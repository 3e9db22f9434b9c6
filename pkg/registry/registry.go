package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/aretw0/huddle/pkg/protocol"
)

// BuiltinSourceID is the synthetic source reported for compiled-in activities.
const BuiltinSourceID = "builtin"

// Builder reconstructs the behavior of an overlay entry loaded from the store.
// Behavior cannot be persisted, so a later process needs one to resolve those slugs.
type Builder func(def domain.Definition) domain.Activity

// Entry is one listing row of the merged registry.
type Entry struct {
	Definition  domain.Definition `json:"definition"`
	UserDefined bool              `json:"user_defined"`
}

// Registry resolves activity slugs to implementations.
// Built-ins are immutable; the overlay holds user registered activities and is
// persisted through an OverlayStore.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]domain.Activity
	overlay  map[string]domain.Activity
	records  map[string]domain.Definition

	store   ports.OverlayStore
	builder Builder
	logger  *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithStore sets the durable overlay store.
func WithStore(store ports.OverlayStore) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// WithBuilder sets how persisted overlay entries get their behavior back.
func WithBuilder(b Builder) Option {
	return func(r *Registry) {
		r.builder = b
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry holding the given built-ins.
// Call Load to read a previously persisted overlay.
func New(builtins []domain.Activity, opts ...Option) *Registry {
	r := &Registry{
		builtins: make(map[string]domain.Activity, len(builtins)),
		overlay:  make(map[string]domain.Activity),
		records:  make(map[string]domain.Definition),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, act := range builtins {
		r.builtins[act.Definition().Slug] = act
	}
	return r
}

// Load reads the overlay from the store.
// A read failure is treated as an empty overlay and only logged.
func (r *Registry) Load(ctx context.Context) {
	if r.store == nil {
		return
	}

	stored, err := r.store.Get(ctx)
	if err != nil {
		r.logger.Warn("overlay unreadable, starting empty", "err", err)
		stored = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.overlay = make(map[string]domain.Activity, len(stored))
	r.records = make(map[string]domain.Definition, len(stored))
	for slug, def := range stored {
		if _, isBuiltin := r.builtins[slug]; isBuiltin {
			r.logger.Warn("ignoring overlay entry shadowing a built-in", "slug", slug)
			continue
		}
		if err := protocol.ValidateSlug(slug); err != nil {
			r.logger.Warn("ignoring overlay entry with invalid slug", "slug", slug, "err", err)
			continue
		}
		def.Slug = slug
		r.records[slug] = def
		if r.builder != nil {
			r.overlay[slug] = r.builder(def)
		}
	}
	r.logger.Debug("overlay loaded", "entries", len(r.records))
}

// Resolve looks a slug up, built-ins first.
func (r *Registry) Resolve(slug string) (domain.Activity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if act, ok := r.builtins[slug]; ok {
		return act, true
	}
	act, ok := r.overlay[slug]
	return act, ok
}

// Register adds or replaces a user activity.
// A slug colliding with a built-in fails with a ConflictError before anything
// is written. The registry only changes once the overlay has been persisted.
func (r *Registry) Register(ctx context.Context, act domain.Activity) error {
	def := act.Definition()
	if err := protocol.ValidateSlug(def.Slug); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, isBuiltin := r.builtins[def.Slug]; isBuiltin {
		return &domain.ConflictError{Slug: def.Slug}
	}

	next := make(map[string]domain.Definition, len(r.records)+1)
	for slug, rec := range r.records {
		next[slug] = rec
	}
	next[def.Slug] = def

	if r.store != nil {
		if err := r.store.Set(ctx, next); err != nil {
			return fmt.Errorf("failed to persist overlay: %w", err)
		}
	}

	r.records = next
	r.overlay[def.Slug] = act
	r.logger.Info("activity registered", "slug", def.Slug, "version", def.Metadata.DefinitionVersion)
	return nil
}

// ListAll returns every resolvable definition keyed by slug.
// Built-ins are reported with synthetic, non user-generated metadata.
func (r *Registry) ListAll() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Entry, len(r.builtins)+len(r.records))
	for slug, act := range r.builtins {
		def := act.Definition()
		def.Metadata = domain.Metadata{
			SourceID:          BuiltinSourceID,
			DefinitionVersion: def.Metadata.DefinitionVersion,
		}
		out[slug] = Entry{Definition: def}
	}
	for slug, def := range r.records {
		out[slug] = Entry{Definition: def, UserDefined: true}
	}
	return out
}

// IsUserDefined reports whether slug exists only in the overlay.
func (r *Registry) IsUserDefined(slug string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, isBuiltin := r.builtins[slug]; isBuiltin {
		return false
	}
	_, ok := r.records[slug]
	return ok
}

// Slugs returns every known slug, sorted.
func (r *Registry) Slugs() []string {
	all := r.ListAll()
	slugs := make([]string, 0, len(all))
	for slug := range all {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
