package activities_test

import (
	"testing"

	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_GenericVocabulary(t *testing.T) {
	tpl := activities.NewTemplate(domain.Definition{
		Slug:   "icebreaker",
		Title:  "Icebreaker",
		Phases: []string{"ask", "share"},
	})
	assert.Equal(t, "icebreaker", tpl.Definition().Slug)

	state, err := tpl.OnStart(domain.Context{})
	require.NoError(t, err)
	assert.Equal(t, "ask", state[activities.KeyPhase])

	state, err = tpl.OnEvent(event("icebreaker:submit", "ana", map[string]any{"id": "p1", "text": "Two truths"}), domain.Context{State: state})
	require.NoError(t, err)
	state, err = tpl.OnEvent(event("icebreaker:pick", "bo", map[string]any{"questionId": "p1"}), domain.Context{State: state})
	require.NoError(t, err)
	state, err = tpl.OnEvent(event("icebreaker:set", "ana", map[string]any{"key": "timer", "value": "5m"}), domain.Context{State: state})
	require.NoError(t, err)

	assert.Empty(t, state[activities.KeyPool])
	assert.Equal(t, map[string]any{"bo": "p1"}, state[activities.KeyChosen])
	assert.Equal(t, "5m", state["timer"])
}

func TestTemplate_SetRequiresKey(t *testing.T) {
	tpl := activities.NewTemplate(domain.Definition{Slug: "x"})
	_, err := tpl.OnEvent(event("x:set", "ana", map[string]any{"value": 1}), domain.Context{State: domain.SharedState{}})
	assert.ErrorIs(t, err, activities.ErrInvalidPayload)
}

func TestTemplate_PickMatchesSnowball(t *testing.T) {
	tpl := activities.NewTemplate(domain.Definition{Slug: "x", Phases: []string{"one"}})
	snow := activities.NewSnowball()
	start := domain.SharedState{
		activities.KeyPool:   map[string]any{"q1": map[string]any{"id": "q1", "text": "Why?"}},
		activities.KeyChosen: map[string]any{},
	}
	payload := map[string]any{"userId": "u1", "questionId": "q1"}

	fromTemplate, err := tpl.OnEvent(event("x:pick", "ana", payload), domain.Context{State: start})
	require.NoError(t, err)
	fromSnowball, err := snow.OnEvent(event("snowball:pick", "ana", payload), domain.Context{State: start})
	require.NoError(t, err)
	assert.Equal(t, fromSnowball, fromTemplate)

	_, err = tpl.OnEvent(event("x:pick", "ana", map[string]any{"userId": "u1"}), domain.Context{State: start})
	assert.ErrorIs(t, err, activities.ErrInvalidPayload)
}
