package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/pkg/domain"
)

// SSE event names.
const (
	eventState    = "state"
	eventReaction = "reaction"
)

// Message is one SSE frame.
type Message struct {
	Event string
	Data  string
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Message]struct{} // RoomID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Message]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(roomID string) (chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 16)
	if _, ok := sm.subscribers[roomID]; !ok {
		sm.subscribers[roomID] = make(map[chan<- Message]struct{})
	}
	sm.subscribers[roomID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[roomID]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, roomID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(roomID string, msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[roomID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: client buffer full, dropping message", "room", roomID, "event", msg.Event)
		}
	}
}

// StreamRoom handles GET /rooms/{room}/stream (SSE).
func (s *Server) StreamRoom(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	roomID := sess.Room().ID()

	// Subscribe before reading the state so no change falls in between.
	ch, cancel := s.streams.Subscribe(roomID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")

	state := sess.Room().State()
	if initial, err := json.Marshal(domain.Diff(nil, &state)); err == nil {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventState, initial)
	}
	flusher.Flush()
	s.logger.Info("SSE: client subscribed", "room", roomID)

	filter := parseWatch(r.URL.Query().Get("watch"))

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "room", roomID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !filter.keep(msg) {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

// watchFilter selects which parts of the room a stream client receives.
// An empty filter keeps everything.
type watchFilter map[string]bool

func parseWatch(raw string) watchFilter {
	f := watchFilter{}
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			f[field] = true
		}
	}
	return f
}

func (f watchFilter) keep(msg Message) bool {
	if len(f) == 0 {
		return true
	}
	if msg.Event == eventReaction {
		return f["reactions"]
	}

	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg.Data), &diff); err != nil {
		return true
	}
	return (f["active_slug"] && diff.ActiveSlug != nil) ||
		(f["phase"] && diff.Phase != nil) ||
		(f["shared"] && len(diff.Shared) > 0)
}
