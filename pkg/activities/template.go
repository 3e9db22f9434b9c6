package activities

import (
	"fmt"

	"github.com/aretw0/huddle/pkg/domain"
)

type setPayload struct {
	Key   string `mapstructure:"key"`
	Value any    `mapstructure:"value"`
}

// Template is a generic activity for user registered definitions.
// It supports the shared submit/pick/phase vocabulary plus "set" for
// arbitrary top-level fields.
type Template struct {
	def domain.Definition
}

// NewTemplate builds a template activity from a definition.
// It has the registry.Builder signature.
func NewTemplate(def domain.Definition) domain.Activity {
	return &Template{def: def}
}

func (t *Template) Definition() domain.Definition {
	return t.def
}

func (t *Template) OnStart(actx domain.Context) (domain.SharedState, error) {
	return domain.SharedState{
		KeyPhase:  t.def.InitialPhase(),
		KeyPool:   map[string]any{},
		KeyChosen: map[string]any{},
	}, nil
}

func (t *Template) OnEvent(evt domain.Event, actx domain.Context) (domain.SharedState, error) {
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

	case ActionSet:
		var p setPayload
		if err := decodePayload(evt.Payload, &p); err != nil {
			return nil, err
		}
		if p.Key == "" {
			return nil, fmt.Errorf("%w: key is required", ErrInvalidPayload)
		}
		next := spread(actx.State)
		next[p.Key] = p.Value
		return next, nil

	default:
		return spread(actx.State), nil
	}
}
