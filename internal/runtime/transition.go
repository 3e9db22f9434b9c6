package runtime

import (
	"fmt"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/protocol"
)

type outcomeKind int

const (
	outcomeDropped outcomeKind = iota
	outcomeIgnored
	outcomeReaction
	outcomeStarted
	outcomeUpdated
	outcomeEnded
)

// changesState reports whether the outcome produced a new RuntimeState.
func (k outcomeKind) changesState() bool {
	return k == outcomeStarted || k == outcomeUpdated || k == outcomeEnded
}

type outcome struct {
	kind outcomeKind
	tag  protocol.Tag
}

// transition computes the state that follows evt. It never mutates the input
// state, so callers can run it on a scratch copy and discard the result.
func (c *Controller) transition(state domain.RuntimeState, evt domain.Event) (domain.RuntimeState, outcome, error) {
	if evt.RoomScopeID != "" && evt.RoomScopeID != state.RoomID {
		return state, outcome{kind: outcomeDropped}, nil
	}

	tag, err := protocol.Parse(evt.Type)
	if err != nil {
		return state, outcome{}, err
	}
	out := outcome{tag: tag}

	switch tag.Action {
	case protocol.ActionReaction:
		out.kind = outcomeReaction
		return state, out, nil

	case protocol.ActionStart:
		act, ok := c.resolver.Resolve(tag.Namespace)
		if !ok {
			return state, out, &domain.LookupError{Slug: tag.Namespace}
		}
		phase, _ := evt.Payload["phase"].(string)
		if phase == "" {
			phase = act.Definition().InitialPhase()
		}
		next := domain.RuntimeState{
			ActiveSlug: tag.Namespace,
			Phase:      phase,
			Shared:     domain.SharedState{},
			RoomID:     state.RoomID,
		}
		out.kind = outcomeStarted
		return next, out, nil

	case protocol.ActionEnd:
		if state.ActiveSlug != tag.Namespace {
			out.kind = outcomeIgnored
			return state, out, nil
		}
		out.kind = outcomeEnded
		return domain.NewRuntimeState(state.RoomID), out, nil
	}

	if state.ActiveSlug == "" || state.ActiveSlug != tag.Namespace {
		return state, out, &domain.LookupError{Slug: tag.Namespace, Cause: domain.ErrNotActive}
	}
	act, ok := c.resolver.Resolve(tag.Namespace)
	if !ok {
		return state, out, &domain.LookupError{Slug: tag.Namespace}
	}

	shared, err := c.callOnEvent(act, evt, state)
	if err != nil {
		return state, out, &domain.HandlerError{Slug: tag.Namespace, Action: tag.Action, Cause: err}
	}

	next := state.Clone()
	next.Shared = shared
	if phase, ok := shared["phase"].(string); ok {
		next.Phase = phase
	}
	out.kind = outcomeUpdated
	return next, out, nil
}

// callOnEvent runs the handler on private copies and turns panics into errors.
func (c *Controller) callOnEvent(act domain.Activity, evt domain.Event, state domain.RuntimeState) (shared domain.SharedState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	shared, err = act.OnEvent(evt.Clone(), c.activityContext(state))
	if err != nil {
		return nil, err
	}
	if shared == nil {
		shared = domain.SharedState{}
	}
	return shared.Clone(), nil
}

func (c *Controller) callOnStart(act domain.Activity, state domain.RuntimeState) (shared domain.SharedState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	shared, err = act.OnStart(c.activityContext(state))
	if err != nil {
		return nil, err
	}
	if shared == nil {
		shared = domain.SharedState{}
	}
	return shared.Clone(), nil
}

func (c *Controller) activityContext(state domain.RuntimeState) domain.Context {
	shared := state.Shared.Clone()
	if shared == nil {
		shared = domain.SharedState{}
	}
	return domain.Context{
		RoomID:        state.RoomID,
		ParticipantID: c.identity.ParticipantID,
		IsAuthority:   c.identity.IsAuthority,
		Phase:         state.Phase,
		State:         shared,
	}
}
