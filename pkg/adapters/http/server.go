package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/huddle"
	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/aretw0/huddle/pkg/protocol"
	"github.com/aretw0/huddle/pkg/registry"
	"github.com/aretw0/huddle/pkg/session"
	"github.com/go-chi/chi/v5"
)

// DefaultParticipantID is the identity the server uses inside rooms.
const DefaultParticipantID = "huddle-server"

// Server serves the registry and relays room traffic.
type Server struct {
	runtime   *huddle.Runtime
	transport ports.Transport
	sessions  *session.Manager
	streams   *StreamManager

	participantID string
	authority     bool
	sessionOpts   []session.Option
	metrics       http.Handler
	logger        *slog.Logger

	mu   sync.Mutex
	last map[string]domain.RuntimeState
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithParticipantID overrides the identity the server joins rooms with.
func WithParticipantID(id string) Option {
	return func(s *Server) {
		s.participantID = id
	}
}

// WithAuthority sets whether observer rooms maintain the room snapshot.
// It defaults to true. Use session.WithAuthorityLock through WithSessionOptions
// when several servers share a transport.
func WithAuthority(authority bool) Option {
	return func(s *Server) {
		s.authority = authority
	}
}

// WithSessionOptions passes options to every room session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Server) {
		s.sessionOpts = opts
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a server for rt whose rooms communicate over transport.
func NewServer(rt *huddle.Runtime, transport ports.Transport, opts ...Option) *Server {
	s := &Server{
		runtime:       rt,
		transport:     transport,
		streams:       NewStreamManager(),
		participantID: DefaultParticipantID,
		authority:     true,
		logger:        logging.NewNop(),
		last:          make(map[string]domain.RuntimeState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams.logger = s.logger

	sessOpts := append([]session.Option{session.WithLogger(s.logger)}, s.sessionOpts...)
	s.sessions = session.NewManager(s.openRoom,
		session.WithSessionOptions(sessOpts...),
		session.WithManagerLogger(s.logger),
	)
	return s
}

func (s *Server) openRoom(roomID string) (session.Room, ports.Channel) {
	ch := s.transport.Channel(roomID, s.participantID)
	room := s.runtime.Open(roomID,
		domain.Identity{ParticipantID: s.participantID, IsAuthority: s.authority},
		ch,
		huddle.WithRoomHooks(s.streamHooks(roomID)),
	)
	return room, ch
}

// streamHooks forward a room's state changes and reactions to SSE clients.
func (s *Server) streamHooks(roomID string) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, state domain.RuntimeState) {
			s.mu.Lock()
			prev, seen := s.last[roomID]
			s.last[roomID] = state
			s.mu.Unlock()

			var diff *domain.StateDiff
			if seen {
				diff = domain.Diff(&prev, &state)
			} else {
				diff = domain.Diff(nil, &state)
			}
			if diff == nil {
				return
			}
			s.publish(roomID, eventState, diff)
		},
		OnReaction: func(_ context.Context, r domain.Reaction) {
			s.publish(roomID, eventReaction, r)
		},
	}
}

func (s *Server) publish(roomID, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode stream message", "room", roomID, "err", err)
		return
	}
	s.streams.Broadcast(roomID, Message{Event: event, Data: string(data)})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Route("/activities", func(r chi.Router) {
		r.Get("/", s.ListActivities)
		r.Post("/", s.RegisterActivity)
		r.Get("/{slug}", s.GetActivity)
	})

	r.Get("/rooms", s.ListRooms)
	r.Route("/rooms/{room}", func(r chi.Router) {
		r.Get("/state", s.GetRoomState)
		r.Get("/snapshot", s.GetRoomSnapshot)
		r.Post("/events", s.PostRoomEvent)
		r.Get("/stream", s.StreamRoom)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	return enableCORS(r)
}

// Close leaves every room.
func (s *Server) Close() error {
	return s.sessions.Close()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "huddle-http",
		"version":     strings.TrimSpace(huddle.Version),
		"participant": s.participantID,
	})
}

// ActivityView is one row of GET /activities.
type ActivityView struct {
	Slug string `json:"slug"`
	registry.Entry
}

// ListActivities handles GET /activities.
func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	all := s.runtime.Registry().ListAll()
	out := make([]ActivityView, 0, len(all))
	for slug, entry := range all {
		out = append(out, ActivityView{Slug: slug, Entry: entry})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	writeJSON(w, http.StatusOK, out)
}

// GetActivity handles GET /activities/{slug}.
func (s *Server) GetActivity(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	entry, ok := s.runtime.Registry().ListAll()[slug]
	if !ok {
		writeError(w, &domain.LookupError{Slug: slug})
		return
	}
	writeJSON(w, http.StatusOK, ActivityView{Slug: slug, Entry: entry})
}

// RegisterActivity handles POST /activities.
func (s *Server) RegisterActivity(w http.ResponseWriter, r *http.Request) {
	var def domain.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("RegisterActivity: invalid request body", "err", err)
		return
	}
	if def.Metadata.CreatedAt.IsZero() {
		def.Metadata.CreatedAt = time.Now().UTC()
	}
	if def.Metadata.SourceID == "" {
		def.Metadata.SourceID = "http"
	}
	def.Metadata.IsUserGenerated = true

	if err := s.runtime.RegisterDefinition(r.Context(), def); err != nil {
		s.logger.Warn("RegisterActivity failed", "slug", def.Slug, "err", err)
		writeError(w, err)
		return
	}
	s.logger.Info("activity registered", "slug", def.Slug)
	writeJSON(w, http.StatusCreated, ActivityView{Slug: def.Slug, Entry: registry.Entry{Definition: def, UserDefined: true}})
}

// ListRooms handles GET /rooms.
func (s *Server) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"rooms": s.sessions.Rooms()})
}

// RoomView is the response of GET /rooms/{room}/state.
type RoomView struct {
	State     domain.RuntimeState `json:"state"`
	Status    domain.Status       `json:"status"`
	Reactions []domain.Reaction   `json:"reactions"`
	Members   []string            `json:"members"`
}

func (s *Server) roomView(sess *session.Session) RoomView {
	state := sess.Room().State()
	view := RoomView{
		State:     state,
		Status:    state.Status(),
		Reactions: []domain.Reaction{},
		Members:   sess.Members(),
	}
	if room, ok := sess.Room().(*huddle.Room); ok {
		view.Reactions = room.Reactions()
	}
	return view
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	roomID := chi.URLParam(r, "room")
	sess, err := s.sessions.Get(r.Context(), roomID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Join error: %v", err), http.StatusBadGateway)
		s.logger.Error("failed to join room", "room", roomID, "err", err)
		return nil, false
	}
	return sess, true
}

// GetRoomState handles GET /rooms/{room}/state.
func (s *Server) GetRoomState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.roomView(sess))
}

// GetRoomSnapshot handles GET /rooms/{room}/snapshot.
func (s *Server) GetRoomSnapshot(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	snap, err := s.transport.Channel(roomID, s.participantID).Snapshot(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Snapshot error: %v", err), http.StatusBadGateway)
		s.logger.Error("snapshot read failed", "room", roomID, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PostRoomEvent handles POST /rooms/{room}/events.
// The event is applied to the observer first and relayed only if accepted.
// When the server holds room authority, "<slug>:start" runs as a local start.
func (s *Server) PostRoomEvent(w http.ResponseWriter, r *http.Request) {
	var evt domain.Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostRoomEvent: invalid request body", "err", err)
		return
	}
	if evt.SenderID == "" {
		http.Error(w, "sender_id is required", http.StatusBadRequest)
		return
	}
	if evt.SentAt.IsZero() {
		evt.SentAt = time.Now().UTC()
	}
	payload, err := protocol.SanitizePayload(evt.Payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid payload: %v", err), http.StatusBadRequest)
		s.logger.Warn("PostRoomEvent: payload rejected", "type", evt.Type, "sender", evt.SenderID, "err", err)
		return
	}
	evt.Payload = payload

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	roomID := sess.Room().ID()
	if evt.RoomScopeID == "" {
		evt.RoomScopeID = roomID
	}
	if evt.RoomScopeID != roomID {
		http.Error(w, fmt.Sprintf("event is scoped to room %q", evt.RoomScopeID), http.StatusBadRequest)
		return
	}

	// A start applied through Dispatch is a follower start with empty shared
	// state. The authority starts as initiator instead, so OnStart seeds the
	// room; the broadcast start then carries the server as sender.
	if tag, err := protocol.Parse(evt.Type); err == nil && tag.Action == protocol.ActionStart && sess.IsAuthority() {
		if err := sess.Room().Start(r.Context(), tag.Namespace); err != nil {
			s.logger.Warn("PostRoomEvent: start failed", "room", roomID, "slug", tag.Namespace, "sender", evt.SenderID, "err", err)
			if statusFor(err) == http.StatusInternalServerError {
				http.Error(w, fmt.Sprintf("Relay error: %v", err), http.StatusBadGateway)
				return
			}
			writeError(w, err)
			return
		}
		s.logger.Info("PostRoomEvent: started as authority", "room", roomID, "slug", tag.Namespace, "sender", evt.SenderID)
		writeJSON(w, http.StatusAccepted, s.roomView(sess))
		return
	}

	if err := sess.Room().Dispatch(r.Context(), evt); err != nil {
		s.logger.Warn("PostRoomEvent: rejected", "room", roomID, "type", evt.Type, "sender", evt.SenderID, "err", err)
		writeError(w, err)
		return
	}
	if err := sess.Channel().Send(r.Context(), evt); err != nil {
		http.Error(w, fmt.Sprintf("Relay error: %v", err), http.StatusBadGateway)
		s.logger.Error("PostRoomEvent: relay failed", "room", roomID, "type", evt.Type, "err", err)
		return
	}

	writeJSON(w, http.StatusAccepted, s.roomView(sess))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedTag):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSlugConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownActivity):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrHandlerFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
