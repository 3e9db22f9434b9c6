// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/huddle"
	"github.com/stretchr/testify/require"
)

// SeedCatalog writes files into a fresh temporary directory and returns its
// absolute path, ready to be opened as an activity catalog.
// It fails the test immediately on error.
func SeedCatalog(t *testing.T, files map[string]string) string {
	t.Helper()

	// Loam sometimes prefers absolute paths, though t.TempDir usually returns one.
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644), "Failed to seed %s", name)
	}
	return dir
}

// NewRuntime builds a runtime with the built-in activities and an in-memory overlay.
func NewRuntime(t *testing.T, opts ...huddle.Option) *huddle.Runtime {
	t.Helper()

	rt, err := huddle.New(context.Background(), opts...)
	require.NoError(t, err, "Failed to build runtime")
	return rt
}
