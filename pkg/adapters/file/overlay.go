package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/huddle/pkg/domain"
)

// DefaultPath is used when no path is configured.
var DefaultPath = filepath.Join(".huddle", "overlay.json")

// OverlayStore implements ports.OverlayStore as one JSON document on disk.
type OverlayStore struct {
	Path string
	mu   sync.Mutex
}

// New creates an overlay store at path. An empty path uses DefaultPath.
func New(path string) *OverlayStore {
	if path == "" {
		path = DefaultPath
	}
	return &OverlayStore{Path: path}
}

// Get reads the overlay. A missing file is an empty overlay; a corrupt one is an error.
func (s *OverlayStore) Get(ctx context.Context) (map[string]domain.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	overlay := make(map[string]domain.Definition)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return overlay, nil
		}
		return nil, fmt.Errorf("failed to read overlay file: %w", err)
	}
	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overlay: %w", err)
	}
	if overlay == nil {
		overlay = make(map[string]domain.Definition)
	}
	return overlay, nil
}

// Set writes the overlay atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *OverlayStore) Set(ctx context.Context, overlay map[string]domain.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure overlay directory: %w", err)
	}

	data, err := json.MarshalIndent(overlay, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal overlay: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-overlay-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename overlay file: %w", err)
	}
	return nil
}
