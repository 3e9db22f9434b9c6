package domain

import (
	"reflect"
)

// StateDiff represents the changes between two runtime states.
// It is designed to be serialized to JSON for partial updates on a client.
type StateDiff struct {
	// RoomID is always present to identify the target.
	RoomID string `json:"room_id"`

	ActiveSlug *string `json:"active_slug,omitempty"`
	Phase      *string `json:"phase,omitempty"`

	// Shared contains only changed, added or deleted top-level keys.
	// For deletions, the key is present with a nil value.
	Shared map[string]any `json:"shared,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// It returns nil when nothing changed.
func Diff(oldState, newState *RuntimeState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{RoomID: newState.RoomID}

	if oldState == nil || oldState.ActiveSlug != newState.ActiveSlug {
		diff.ActiveSlug = &newState.ActiveSlug
	}
	if oldState == nil || oldState.Phase != newState.Phase {
		diff.Phase = &newState.Phase
	}
	diff.Shared = diffShared(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffShared(old, new *RuntimeState) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Shared {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Shared {
		oldVal, exists := old.Shared[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old.Shared {
		if _, exists := new.Shared[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.ActiveSlug == nil &&
		d.Phase == nil &&
		len(d.Shared) == 0
}
