package activities_test

import (
	"testing"

	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrainstorm_SubmitVoteTally(t *testing.T) {
	b := activities.NewBrainstorm()
	state, err := b.OnStart(domain.Context{})
	require.NoError(t, err)

	steps := []domain.Event{
		event("brainstorm:submit", "ana", map[string]any{"id": "i1", "text": "Hackathon"}),
		event("brainstorm:submit", "bo", map[string]any{"id": "i2", "text": "Offsite"}),
		event("brainstorm:phase", "ana", map[string]any{"phase": activities.BrainstormPhaseVote}),
		event("brainstorm:vote", "ana", map[string]any{"ideaId": "i2"}),
		event("brainstorm:vote", "bo", map[string]any{"ideaId": "i2"}),
		event("brainstorm:vote", "cy", map[string]any{"ideaId": "i1"}),
		// cy changes their mind; still one vote per participant.
		event("brainstorm:vote", "cy", map[string]any{"ideaId": "i2"}),
	}
	for _, evt := range steps {
		state, err = b.OnEvent(evt, domain.Context{State: state})
		require.NoError(t, err, evt.Type)
	}

	assert.Equal(t, activities.BrainstormPhaseVote, state[activities.KeyPhase])
	assert.Len(t, state[activities.KeyIdeas], 2, "votes do not consume ideas")
	assert.Equal(t, map[string]int{"i2": 3}, activities.Tally(state))
}

func TestBrainstorm_VoteRequiresIdea(t *testing.T) {
	_, err := activities.NewBrainstorm().OnEvent(event("brainstorm:vote", "ana", nil), domain.Context{State: domain.SharedState{}})
	assert.ErrorIs(t, err, activities.ErrInvalidPayload)
}

func TestBuiltins(t *testing.T) {
	slugs := map[string]bool{}
	for _, act := range activities.Builtins() {
		slugs[act.Definition().Slug] = true
		assert.NotEmpty(t, act.Definition().Phases)
	}
	assert.Equal(t, map[string]bool{"snowball": true, "brainstorm": true}, slugs)
}
