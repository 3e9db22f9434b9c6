package activities

import (
	"errors"
	"fmt"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/protocol"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidPayload is returned for structurally invalid payloads.
var ErrInvalidPayload = errors.New("invalid payload")

// Shared state keys used by the built-in activities.
const (
	KeyPhase  = "phase"
	KeyPool   = "pool"
	KeyChosen = "chosen"
	KeyIdeas  = "ideas"
	KeyVotes  = "votes"
)

// Common action names.
const (
	ActionSubmit = "submit"
	ActionPick   = "pick"
	ActionPhase  = "phase"
	ActionVote   = "vote"
	ActionSet    = "set"
)

type submitPayload struct {
	ID   string `mapstructure:"id"`
	Text string `mapstructure:"text"`
}

type pickPayload struct {
	UserID     string `mapstructure:"userId"`
	QuestionID string `mapstructure:"questionId"`
}

type phasePayload struct {
	Phase string `mapstructure:"phase"`
}

func decodePayload(payload map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func actionOf(evt domain.Event) (string, error) {
	tag, err := protocol.Parse(evt.Type)
	if err != nil {
		return "", err
	}
	return tag.Action, nil
}

// spread copies the top level of the state so fields can be overridden.
func spread(s domain.SharedState) domain.SharedState {
	next := make(domain.SharedState, len(s)+1)
	for k, v := range s {
		next[k] = v
	}
	return next
}

// mapField returns a copy of a nested map field, or a new one if absent.
func mapField(s domain.SharedState, key string) map[string]any {
	out := make(map[string]any)
	if src, ok := s[key].(map[string]any); ok {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}

// itemID prefers the sender supplied id, then participant id + send time.
// Two items from the same participant in the same millisecond collide; the
// later one wins.
func itemID(explicit string, evt domain.Event) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("%s-%d", evt.SenderID, evt.SentAt.UnixMilli())
}

func submitItem(s domain.SharedState, poolKey string, evt domain.Event) (domain.SharedState, error) {
	var p submitPayload
	if err := decodePayload(evt.Payload, &p); err != nil {
		return nil, err
	}
	if p.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidPayload)
	}

	id := itemID(p.ID, evt)
	pool := mapField(s, poolKey)
	pool[id] = map[string]any{
		"id":       id,
		"text":     p.Text,
		"authorId": evt.SenderID,
	}

	next := spread(s)
	next[poolKey] = pool
	return next, nil
}

// claim records one exclusive value per participant; re-claiming overwrites.
func claim(s domain.SharedState, claimKey, participant, value string) domain.SharedState {
	claims := mapField(s, claimKey)
	claims[participant] = value

	next := spread(s)
	next[claimKey] = claims
	return next
}

func removeItem(s domain.SharedState, poolKey, id string) domain.SharedState {
	pool := mapField(s, poolKey)
	delete(pool, id)

	next := spread(s)
	next[poolKey] = pool
	return next
}

// pickItem moves an item out of the pool into the picker's claim.
// The picker defaults to the sender.
func pickItem(s domain.SharedState, poolKey, claimKey string, evt domain.Event) (domain.SharedState, error) {
	var p pickPayload
	if err := decodePayload(evt.Payload, &p); err != nil {
		return nil, err
	}
	if p.QuestionID == "" {
		return nil, fmt.Errorf("%w: questionId is required", ErrInvalidPayload)
	}
	if p.UserID == "" {
		p.UserID = evt.SenderID
	}
	return claim(removeItem(s, poolKey, p.QuestionID), claimKey, p.UserID, p.QuestionID), nil
}

func setPhase(s domain.SharedState, evt domain.Event) (domain.SharedState, error) {
	var p phasePayload
	if err := decodePayload(evt.Payload, &p); err != nil {
		return nil, err
	}
	if p.Phase == "" {
		return nil, fmt.Errorf("%w: phase is required", ErrInvalidPayload)
	}

	next := spread(s)
	next[KeyPhase] = p.Phase
	return next, nil
}
