package domain

// SharedState is the opaque, collectively owned state of an activity instance.
// Values are JSON-like: maps, slices, strings, numbers and booleans.
type SharedState map[string]any

// Clone returns a deep copy of the JSON-like tree.
func (s SharedState) Clone() SharedState {
	if s == nil {
		return nil
	}
	return SharedState(cloneMap(s))
}

// Status is the controller's lifecycle mode.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusActive Status = "active"
)

// RuntimeState is the live activity instance owned by one controller.
type RuntimeState struct {
	// ActiveSlug is empty while Idle.
	ActiveSlug string `json:"active_slug,omitempty"`

	// Phase is authoritative only for the initiating client; others adopt it from the wire.
	Phase string `json:"phase,omitempty"`

	// Shared is replaced wholesale on each dispatch, never merged by the controller.
	Shared SharedState `json:"shared,omitempty"`

	// RoomID scopes the instance; events from other rooms are dropped.
	RoomID string `json:"room_id,omitempty"`
}

// NewRuntimeState creates an Idle state for a room.
func NewRuntimeState(roomID string) RuntimeState {
	return RuntimeState{RoomID: roomID}
}

// Status reports Idle or Active.
func (s RuntimeState) Status() Status {
	if s.ActiveSlug == "" {
		return StatusIdle
	}
	return StatusActive
}

// Clone returns a deep copy safe for publication.
func (s RuntimeState) Clone() RuntimeState {
	next := s
	next.Shared = s.Shared.Clone()
	return next
}

func cloneMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case SharedState:
		return SharedState(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
