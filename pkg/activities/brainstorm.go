package activities

import (
	"fmt"

	"github.com/aretw0/huddle/pkg/domain"
)

// BrainstormSlug identifies the brainstorm activity.
const BrainstormSlug = "brainstorm"

// Brainstorm phases.
const (
	BrainstormPhaseCollect = "collect"
	BrainstormPhaseVote    = "vote"
	BrainstormPhaseResults = "results"
)

type votePayload struct {
	IdeaID string `mapstructure:"ideaId"`
}

// Brainstorm collects ideas and one vote per participant.
type Brainstorm struct{}

// NewBrainstorm creates the brainstorm activity.
func NewBrainstorm() *Brainstorm {
	return &Brainstorm{}
}

func (b *Brainstorm) Definition() domain.Definition {
	return domain.Definition{
		Slug:        BrainstormSlug,
		Title:       "Brainstorm",
		Phases:      []string{BrainstormPhaseCollect, BrainstormPhaseVote, BrainstormPhaseResults},
		Description: "Collect ideas from the group, then everyone votes for the one they like best.",
		Metadata:    domain.Metadata{DefinitionVersion: 1},
	}
}

func (b *Brainstorm) OnStart(actx domain.Context) (domain.SharedState, error) {
	return domain.SharedState{
		KeyPhase: BrainstormPhaseCollect,
		KeyIdeas: map[string]any{},
		KeyVotes: map[string]any{},
	}, nil
}

func (b *Brainstorm) OnEvent(evt domain.Event, actx domain.Context) (domain.SharedState, error) {
	action, err := actionOf(evt)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionSubmit:
		return submitItem(actx.State, KeyIdeas, evt)

	case ActionVote:
		var p votePayload
		if err := decodePayload(evt.Payload, &p); err != nil {
			return nil, err
		}
		if p.IdeaID == "" {
			return nil, fmt.Errorf("%w: ideaId is required", ErrInvalidPayload)
		}
		return claim(actx.State, KeyVotes, evt.SenderID, p.IdeaID), nil

	case ActionPhase:
		return setPhase(actx.State, evt)

	default:
		return spread(actx.State), nil
	}
}

// Tally counts votes per idea id.
func Tally(s domain.SharedState) map[string]int {
	counts := make(map[string]int)
	votes, _ := s[KeyVotes].(map[string]any)
	for _, v := range votes {
		if id, ok := v.(string); ok {
			counts[id]++
		}
	}
	return counts
}
