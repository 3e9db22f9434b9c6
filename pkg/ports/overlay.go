package ports

import (
	"context"

	"github.com/aretw0/huddle/pkg/domain"
)

// OverlayStore persists the registry overlay: user registered definitions keyed by slug.
// Only the serializable part of an activity is stored.
type OverlayStore interface {
	// Get returns the whole overlay. An empty store returns an empty map.
	Get(ctx context.Context) (map[string]domain.Definition, error)

	// Set replaces the whole overlay.
	Set(ctx context.Context, overlay map[string]domain.Definition) error
}
