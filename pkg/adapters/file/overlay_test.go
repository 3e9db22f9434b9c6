package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/adapters/file"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/aretw0/huddle/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.OverlayStore = (*file.OverlayStore)(nil)

func TestOverlayStore_Contract(t *testing.T) {
	ports.RunOverlayStoreContract(t, file.New(filepath.Join(t.TempDir(), "nested", "overlay.json")))
}

func TestOverlayStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	store := file.New(path)

	_, err := store.Get(context.Background())
	assert.Error(t, err)

	// The registry degrades to an empty overlay.
	r := registry.New(activities.Builtins(), registry.WithStore(store))
	r.Load(context.Background())
	assert.Equal(t, []string{"brainstorm", "snowball"}, r.Slugs())
}

func TestOverlayStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := file.New(filepath.Join(dir, "overlay.json"))
	require.NoError(t, store.Set(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "overlay.json", entries[0].Name())
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, file.DefaultPath, file.New("").Path)
}
