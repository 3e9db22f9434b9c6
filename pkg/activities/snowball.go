package activities

import "github.com/aretw0/huddle/pkg/domain"

// SnowballSlug identifies the snowball activity.
const SnowballSlug = "snowball"

// Snowball phases.
const (
	SnowballPhaseWrite  = "write"
	SnowballPhaseThrow  = "throw"
	SnowballPhaseAnswer = "answer"
)

const snowballDescription = `Everyone writes a question on a "snowball" and throws it into the pool.
Then each participant picks one question out of the pool and answers it.

| Action | Payload |
|---|---|
| submit | text, id (optional) |
| pick | userId, questionId |
| phase | phase |
`

// Snowball is the built-in question exchange activity.
type Snowball struct{}

// NewSnowball creates the snowball activity.
func NewSnowball() *Snowball {
	return &Snowball{}
}

func (s *Snowball) Definition() domain.Definition {
	return domain.Definition{
		Slug:        SnowballSlug,
		Title:       "Snowball Fight",
		Phases:      []string{SnowballPhaseWrite, SnowballPhaseThrow, SnowballPhaseAnswer},
		Description: snowballDescription,
		Metadata:    domain.Metadata{DefinitionVersion: 1},
	}
}

func (s *Snowball) OnStart(actx domain.Context) (domain.SharedState, error) {
	return domain.SharedState{
		KeyPhase:  SnowballPhaseWrite,
		KeyPool:   map[string]any{},
		KeyChosen: map[string]any{},
	}, nil
}

func (s *Snowball) OnEvent(evt domain.Event, actx domain.Context) (domain.SharedState, error) {
	action, err := actionOf(evt)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionSubmit:
		return submitItem(actx.State, KeyPool, evt)

	case ActionPick:
		return pickItem(actx.State, KeyPool, KeyChosen, evt)

	case ActionPhase:
		return setPhase(actx.State, evt)

	default:
		return spread(actx.State), nil
	}
}
