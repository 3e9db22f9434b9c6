package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/huddle/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// OverlayStore implements ports.OverlayStore as a Redis hash.
type OverlayStore struct {
	client *backend.Client
	key    string
}

// NewOverlayStore creates an overlay store on an existing client.
func NewOverlayStore(client *backend.Client, opts ...Option) *OverlayStore {
	o := newOptions(opts)
	return &OverlayStore{client: client, key: o.prefix + "overlay"}
}

// Get reads every entry of the overlay hash.
func (s *OverlayStore) Get(ctx context.Context) (map[string]domain.Definition, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay from redis: %w", err)
	}

	overlay := make(map[string]domain.Definition, len(fields))
	for slug, raw := range fields {
		var def domain.Definition
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overlay entry %q: %w", slug, err)
		}
		overlay[slug] = def
	}
	return overlay, nil
}

// Set replaces the hash atomically (MULTI/EXEC).
func (s *OverlayStore) Set(ctx context.Context, overlay map[string]domain.Definition) error {
	values := make([]any, 0, len(overlay)*2)
	for slug, def := range overlay {
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("failed to marshal overlay entry %q: %w", slug, err)
		}
		values = append(values, slug, string(data))
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(values) > 0 {
		pipe.HSet(ctx, s.key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save overlay to redis: %w", err)
	}
	return nil
}
