package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/huddle/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command in an isolated directory with a file overlay.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)
	t.Setenv("HUDDLE_OVERLAY_DRIVER", "file")
	t.Setenv("HUDDLE_OVERLAY_PATH", filepath.Join(dir, "overlay.json"))
	t.Setenv("HUDDLE_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "huddle version "))
}

func TestActivities_RegisterThenList(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "retro.yaml")
	require.NoError(t, os.WriteFile(def, []byte("title: Retrospective\nphases: [gather, discuss]\n"), 0644))

	out, err := run(t, dir, "activities", "register", def)
	require.NoError(t, err)
	assert.Equal(t, "registered retro\n", out)

	out, err = run(t, dir, "activities", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "| `retro` | Retrospective | gather → discuss | file:retro.yaml |")
	assert.Contains(t, out, "`snowball`")

	out, err = run(t, dir, "activities", "show", "retro", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"UserDefined": true`)

	_, err = run(t, dir, "activities", "show", "ghost", "--json=false")
	assert.Error(t, err)
}

func TestActivities_RegisterBuiltinFails(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "snowball.json")
	require.NoError(t, os.WriteFile(def, []byte(`{"title":"Mine"}`), 0644))

	_, err := run(t, dir, "activities", "register", def)
	assert.ErrorContains(t, err, "conflicts with a built-in")
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(log, []byte(
		`{"type":"brainstorm:start","sender_id":"alice","room_scope_id":"r1"}`+"\n"+
			`{"type":"brainstorm:submit","sender_id":"alice","room_scope_id":"r1","payload":{"id":"i1","text":"Tacos"}}`+"\n",
	), 0644))

	out, err := run(t, dir, "replay", log)
	require.NoError(t, err)

	var res cli.ReplayResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, "brainstorm", res.State.ActiveSlug)
}
