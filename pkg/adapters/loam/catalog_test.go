package loam_test

import (
	"context"
	"testing"

	"github.com/aretw0/huddle/internal/testutils"
	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/adapters/loam"
	"github.com/aretw0/huddle/pkg/adapters/memory"
	"github.com/aretw0/huddle/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Definitions(t *testing.T) {
	dir := testutils.SeedCatalog(t, map[string]string{
		"retro.md": `---
slug: retro
title: Retrospective
phases:
  - gather
  - discuss
source_id: team-handbook
created_at: "2026-02-01T10:00:00Z"
---
Look back at the sprint together.`,
		"icebreaker.md": `---
title: Icebreaker
---
Two truths and a lie.`,
	})

	catalog, err := loam.Open(dir)
	require.NoError(t, err)

	defs, err := catalog.Definitions(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)

	ice := defs[0]
	assert.Equal(t, "icebreaker", ice.Slug, "slug falls back to the file name")
	assert.Equal(t, "Two truths and a lie.", ice.Description)
	assert.True(t, ice.Metadata.IsUserGenerated)
	assert.Contains(t, ice.Metadata.SourceID, "catalog:")

	retro := defs[1]
	assert.Equal(t, "Retrospective", retro.Title)
	assert.Equal(t, []string{"gather", "discuss"}, retro.Phases)
	assert.Equal(t, "Look back at the sprint together.", retro.Description)
	assert.Equal(t, "team-handbook", retro.Metadata.SourceID)
	assert.Equal(t, 2026, retro.Metadata.CreatedAt.Year())
}

func TestCatalog_ImportSkipsBuiltins(t *testing.T) {
	dir := testutils.SeedCatalog(t, map[string]string{
		"snowball.md": `---
title: Impostor
---
Not allowed.`,
		"retro.md": `---
title: Retro
phases: [gather]
---
Retro.`,
	})

	catalog, err := loam.Open(dir)
	require.NoError(t, err)

	store := memory.NewOverlayStore()
	reg := registry.New(activities.Builtins(), registry.WithStore(store))

	res, err := catalog.Import(context.Background(), reg, activities.NewTemplate)
	require.NoError(t, err)
	assert.Equal(t, []string{"retro"}, res.Imported)
	assert.Equal(t, []string{"snowball"}, res.Skipped)

	assert.True(t, reg.IsUserDefined("retro"))
	act, _ := reg.Resolve("snowball")
	assert.Equal(t, "Snowball Fight", act.Definition().Title)

	persisted, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Contains(t, persisted, "retro")
}
