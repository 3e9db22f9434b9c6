package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/huddle/pkg/domain"
)

// OverlayStore implements ports.OverlayStore in memory.
// Safe for concurrent use.
type OverlayStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewOverlayStore creates an empty in-memory overlay store.
func NewOverlayStore() *OverlayStore {
	return &OverlayStore{}
}

// Set replaces the overlay. It is kept serialized so callers never share maps with the store.
func (s *OverlayStore) Set(ctx context.Context, overlay map[string]domain.Definition) error {
	data, err := json.Marshal(overlay)
	if err != nil {
		return fmt.Errorf("failed to marshal overlay: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Get returns a copy of the overlay.
func (s *OverlayStore) Get(ctx context.Context) (map[string]domain.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overlay := make(map[string]domain.Definition)
	if len(s.data) == 0 {
		return overlay, nil
	}
	if err := json.Unmarshal(s.data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overlay: %w", err)
	}
	if overlay == nil {
		overlay = make(map[string]domain.Definition)
	}
	return overlay, nil
}
