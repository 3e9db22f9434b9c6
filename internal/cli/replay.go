package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/huddle"
	"github.com/aretw0/huddle/pkg/domain"
)

// ReplayParticipant is the identity used to apply a recorded log.
const ReplayParticipant = "huddle-replay"

// Rejection is a logged event the controller refused.
type Rejection struct {
	Line int    `json:"line"`
	Type string `json:"type"`
	Err  string `json:"error"`
}

// ReplayResult is the outcome of feeding an event log through a controller.
type ReplayResult struct {
	Room     string              `json:"room"`
	Applied  int                 `json:"applied"`
	Rejected []Rejection         `json:"rejected,omitempty"`
	State    domain.RuntimeState `json:"state"`
}

// Replay applies a JSON-lines event log, one domain.Event per line, to a fresh
// controller and returns the final state. Blank lines are skipped.
// When room is empty it is taken from the first scoped event.
// Events the controller rejects are recorded and replay continues; a line
// that is not valid JSON aborts.
func Replay(ctx context.Context, rt *huddle.Runtime, r io.Reader, room string) (ReplayResult, error) {
	type line struct {
		n   int
		evt domain.Event
	}

	var events []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var evt domain.Event
		if err := json.Unmarshal([]byte(text), &evt); err != nil {
			return ReplayResult{}, fmt.Errorf("line %d: invalid event: %w", n, err)
		}
		if room == "" {
			room = evt.RoomScopeID
		}
		events = append(events, line{n: n, evt: evt})
	}
	if err := scanner.Err(); err != nil {
		return ReplayResult{}, fmt.Errorf("failed to read event log: %w", err)
	}

	ctrl := rt.Open(room, domain.Identity{ParticipantID: ReplayParticipant}, nil)
	defer ctrl.Close()

	res := ReplayResult{Room: room}
	for _, l := range events {
		if err := ctrl.Dispatch(ctx, l.evt); err != nil {
			res.Rejected = append(res.Rejected, Rejection{Line: l.n, Type: l.evt.Type, Err: err.Error()})
			continue
		}
		res.Applied++
	}
	res.State = ctrl.State()
	return res, nil
}
