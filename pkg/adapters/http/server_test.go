package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/huddle"
	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/adapters/memory"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *memory.Hub, http.Handler) {
	t.Helper()
	rt, err := huddle.New(context.Background(), huddle.WithReactionTTL(time.Minute))
	require.NoError(t, err)
	hub := memory.NewHub()
	srv := NewServer(rt, hub, opts...)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, hub, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeRoom(t *testing.T, w *httptest.ResponseRecorder) RoomView {
	t.Helper()
	var view RoomView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestHealthAndInfo(t *testing.T) {
	_, _, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "huddle-http", info["app"])
	assert.Equal(t, huddle.Version, info["version"])
}

func TestActivities(t *testing.T) {
	_, _, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/activities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []ActivityView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "brainstorm", list[0].Slug)
	assert.Equal(t, "snowball", list[1].Slug)
	assert.False(t, list[1].UserDefined)

	w = do(t, h, http.MethodGet, "/activities/snowball", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/activities/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterActivity(t *testing.T) {
	srv, _, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/activities", domain.Definition{
		Slug:   "retro",
		Title:  "Retrospective",
		Phases: []string{"gather", "discuss"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, srv.runtime.Registry().IsUserDefined("retro"))

	w = do(t, h, http.MethodGet, "/activities/retro", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view ActivityView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.UserDefined)
	assert.Equal(t, "http", view.Definition.Metadata.SourceID)
	assert.True(t, view.Definition.Metadata.IsUserGenerated)

	w = do(t, h, http.MethodPost, "/activities", domain.Definition{Slug: "snowball", Title: "Mine"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/activities", domain.Definition{Slug: "bad:slug", Title: "Nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/activities", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostRoomEvent_AppliesAndRelays(t *testing.T) {
	ctx := context.Background()
	_, hub, h := newTestServer(t)

	sub, err := hub.Channel("r1", "bob").Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	w := do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{Type: "brainstorm:start", SenderID: "alice"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	view := decodeRoom(t, w)
	assert.Equal(t, "brainstorm", view.State.ActiveSlug)
	assert.Equal(t, domain.StatusActive, view.Status)
	assert.Equal(t, map[string]any{}, view.State.Shared[activities.KeyIdeas], "the authority seeds the room through OnStart")

	select {
	case evt := <-sub.Events():
		assert.Equal(t, "brainstorm:start", evt.Type)
		assert.Equal(t, DefaultParticipantID, evt.SenderID)
		assert.Equal(t, "r1", evt.RoomScopeID)
		assert.Equal(t, "collect", evt.Payload["phase"])
	case <-time.After(time.Second):
		t.Fatal("event was not relayed")
	}

	w = do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{
		Type:     "brainstorm:submit",
		SenderID: "alice",
		Payload:  map[string]any{"id": "i1", "text": "Tacos"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, decodeRoom(t, w).State.Shared[activities.KeyIdeas], "i1")

	w = do(t, h, http.MethodGet, "/rooms/r1/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap domain.RoomSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "brainstorm", snap.ActiveSlug)
	require.NotNil(t, snap.LastEvent)
	assert.Equal(t, "brainstorm:submit", snap.LastEvent.Type)

	w = do(t, h, http.MethodGet, "/rooms", nil)
	assert.JSONEq(t, `{"rooms":["r1"]}`, w.Body.String())
}

func TestPostRoomEvent_FollowerServerRelaysStart(t *testing.T) {
	ctx := context.Background()
	_, hub, h := newTestServer(t, WithAuthority(false))

	sub, err := hub.Channel("r1", "bob").Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	w := do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{Type: "brainstorm:start", SenderID: "alice"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	view := decodeRoom(t, w)
	assert.Equal(t, "brainstorm", view.State.ActiveSlug)
	assert.Empty(t, view.State.Shared, "a follower start carries no seeded state")

	select {
	case evt := <-sub.Events():
		assert.Equal(t, "brainstorm:start", evt.Type)
		assert.Equal(t, "alice", evt.SenderID)
	case <-time.After(time.Second):
		t.Fatal("event was not relayed")
	}
}

func TestPostRoomEvent_ErrorMapping(t *testing.T) {
	_, _, h := newTestServer(t)

	tests := []struct {
		name string
		evt  domain.Event
		want int
	}{
		{"missing sender", domain.Event{Type: "brainstorm:start"}, http.StatusBadRequest},
		{"malformed tag", domain.Event{Type: "brainstorm", SenderID: "a"}, http.StatusBadRequest},
		{"other room", domain.Event{Type: "brainstorm:start", SenderID: "a", RoomScopeID: "r2"}, http.StatusBadRequest},
		{"unknown activity", domain.Event{Type: "ghost:start", SenderID: "a"}, http.StatusNotFound},
		{"not active", domain.Event{Type: "brainstorm:vote", SenderID: "a"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/rooms/r1/events", tt.evt)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{Type: "brainstorm:start", SenderID: "a"})
	require.Equal(t, http.StatusAccepted, w.Code)
	w = do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{Type: "brainstorm:vote", SenderID: "a", Payload: map[string]any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRoomState_FollowsTransportTraffic(t *testing.T) {
	ctx := context.Background()
	_, hub, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/rooms/r1/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusIdle, decodeRoom(t, w).Status)

	alice := hub.Channel("r1", "alice")
	aliceSub, err := alice.Subscribe(ctx)
	require.NoError(t, err)
	defer aliceSub.Close()
	require.NoError(t, alice.Send(ctx, domain.Event{Type: "snowball:start", SenderID: "alice", RoomScopeID: "r1"}))

	assert.Eventually(t, func() bool {
		view := decodeRoom(t, do(t, h, http.MethodGet, "/rooms/r1/state", nil))
		return view.State.ActiveSlug == "snowball" && assert.ObjectsAreEqual([]string{"alice", DefaultParticipantID}, view.Members)
	}, time.Second, 10*time.Millisecond)
}

func TestStreamRoom(t *testing.T) {
	_, _, h := newTestServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/rooms/r1/stream?watch=active_slug,reactions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readUntil := func(substr string) string {
		for lines.Scan() {
			if strings.Contains(lines.Text(), substr) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", substr)
		return ""
	}

	readUntil("event: ping")
	readUntil(`"room_id":"r1"`)

	post := func(evt domain.Event) {
		raw, _ := json.Marshal(evt)
		res, err := http.Post(ts.URL+"/rooms/r1/events", "application/json", bytes.NewReader(raw))
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusAccepted, res.StatusCode)
	}

	post(domain.Event{Type: "brainstorm:start", SenderID: "alice"})
	// Filtered out: only the shared state changes.
	post(domain.Event{Type: "brainstorm:submit", SenderID: "alice", Payload: map[string]any{"id": "i1", "text": "Tacos"}})
	post(domain.Event{Type: "brainstorm:reaction", SenderID: "alice", Payload: map[string]any{"symbol": "🎉", "id": "rx1"}})

	line := readUntil("data:")
	assert.Contains(t, line, `"active_slug":"brainstorm"`)
	assert.Equal(t, "event: reaction", readUntil("event:"))
	assert.Contains(t, readUntil("data:"), `"symbol":"🎉"`)
}

func TestWatchFilter(t *testing.T) {
	shared, _ := json.Marshal(domain.StateDiff{RoomID: "r1", Shared: map[string]any{"k": 1}})
	msg := Message{Event: eventState, Data: string(shared)}

	assert.True(t, parseWatch("").keep(msg))
	assert.True(t, parseWatch("shared").keep(msg))
	assert.False(t, parseWatch("phase, active_slug").keep(msg))
	assert.False(t, parseWatch("shared").keep(Message{Event: eventReaction, Data: "{}"}))
}

func TestStreamManager_DropsForSlowClients(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("r1")

	for i := 0; i < 20; i++ {
		sm.Broadcast("r1", Message{Event: eventState, Data: "{}"})
	}
	assert.Len(t, ch, 16)

	cancel()
	cancel()
	sm.Broadcast("r1", Message{Event: eventState, Data: "{}"})
}

func TestMetricsRoute(t *testing.T) {
	_, _, h := newTestServer(t, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("huddle_up 1\n"))
	})))

	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "huddle_up 1\n", w.Body.String())
}

func TestPostRoomEvent_SanitizesPayload(t *testing.T) {
	_, _, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{Type: "brainstorm:start", SenderID: "alice"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{
		Type:     "brainstorm:submit",
		SenderID: "alice",
		Payload:  map[string]any{"id": "i1", "text": "Tacos\x1b[2J"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	ideas := decodeRoom(t, w).State.Shared[activities.KeyIdeas].(map[string]any)
	assert.Equal(t, "Tacos[2J", ideas["i1"].(map[string]any)["text"])

	w = do(t, h, http.MethodPost, "/rooms/r1/events", domain.Event{
		Type:     "brainstorm:submit",
		SenderID: "alice",
		Payload:  map[string]any{"text": strings.Repeat("x", 5000)},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
