package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		old      *RuntimeState
		new      *RuntimeState
		wantDiff *StateDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &RuntimeState{
				RoomID:     "room-1",
				ActiveSlug: "snowball",
				Phase:      "write",
				Shared:     SharedState{"phase": "write"},
			},
			wantDiff: &StateDiff{
				RoomID:     "room-1",
				ActiveSlug: strPtr("snowball"),
				Phase:      strPtr("write"),
				Shared:     map[string]any{"phase": "write"},
			},
		},
		{
			name: "No Changes",
			old: &RuntimeState{
				RoomID:     "room-1",
				ActiveSlug: "snowball",
				Phase:      "write",
				Shared:     SharedState{"pool": map[string]any{"q1": "x"}},
			},
			new: &RuntimeState{
				RoomID:     "room-1",
				ActiveSlug: "snowball",
				Phase:      "write",
				Shared:     SharedState{"pool": map[string]any{"q1": "x"}},
			},
			wantDiff: nil,
		},
		{
			name: "Phase Advance",
			old: &RuntimeState{
				RoomID:     "room-1",
				ActiveSlug: "snowball",
				Phase:      "write",
				Shared:     SharedState{"phase": "write"},
			},
			new: &RuntimeState{
				RoomID:     "room-1",
				ActiveSlug: "snowball",
				Phase:      "throw",
				Shared:     SharedState{"phase": "throw"},
			},
			wantDiff: &StateDiff{
				RoomID: "room-1",
				Phase:  strPtr("throw"),
				Shared: map[string]any{"phase": "throw"},
			},
		},
		{
			name: "End Clears Everything",
			old: &RuntimeState{
				RoomID:     "room-1",
				ActiveSlug: "snowball",
				Phase:      "throw",
				Shared:     SharedState{"phase": "throw", "pool": map[string]any{}},
			},
			new: &RuntimeState{RoomID: "room-1"},
			wantDiff: &StateDiff{
				RoomID:     "room-1",
				ActiveSlug: strPtr(""),
				Phase:      strPtr(""),
				Shared:     map[string]any{"phase": nil, "pool": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.wantDiff) {
				gotJSON, _ := json.Marshal(got)
				wantJSON, _ := json.Marshal(tt.wantDiff)
				t.Errorf("Diff() = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestDiff_JSONDeletionMarker(t *testing.T) {
	old := &RuntimeState{RoomID: "r", ActiveSlug: "s", Shared: SharedState{"gone": 1}}
	new := &RuntimeState{RoomID: "r", ActiveSlug: "s", Shared: SharedState{}}

	data, err := json.Marshal(Diff(old, new))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"gone":null`) {
		t.Errorf("expected deletion marker in %s", data)
	}
}

func TestRuntimeState_CloneIsDeep(t *testing.T) {
	src := RuntimeState{
		ActiveSlug: "snowball",
		Shared: SharedState{
			"pool":   map[string]any{"q1": map[string]any{"text": "hi"}},
			"chosen": map[string]any{},
			"list":   []any{"a"},
		},
	}
	cp := src.Clone()
	cp.Shared["pool"].(map[string]any)["q1"].(map[string]any)["text"] = "changed"
	cp.Shared["list"].([]any)[0] = "b"

	if src.Shared["pool"].(map[string]any)["q1"].(map[string]any)["text"] != "hi" {
		t.Error("clone shares nested maps with source")
	}
	if src.Shared["list"].([]any)[0] != "a" {
		t.Error("clone shares slices with source")
	}
}
