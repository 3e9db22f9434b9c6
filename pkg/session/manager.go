package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/pkg/ports"
)

// Factory opens the controller and channel for a room.
type Factory func(roomID string) (Room, ports.Channel)

// Manager keeps one live session per room.
type Manager struct {
	factory Factory
	opts    []Option

	mu       sync.Mutex
	sessions map[string]*Session

	logger *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithSessionOptions sets the options used for every joined session.
func WithSessionOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.opts = opts
	}
}

// WithManagerLogger configures a logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager that joins rooms lazily through factory.
func NewManager(factory Factory, opts ...ManagerOption) *Manager {
	m := &Manager{
		factory:  factory,
		sessions: make(map[string]*Session),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the room's session, joining it on first use.
// Sessions outlive the request that created them; ctx only bounds the join.
func (m *Manager) Get(ctx context.Context, roomID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[roomID]; ok {
		select {
		case <-s.Done():
			delete(m.sessions, roomID)
		default:
			return s, nil
		}
	}

	room, channel := m.factory(roomID)
	s, err := Join(context.WithoutCancel(ctx), room, channel, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to join room %s: %w", roomID, err)
	}
	m.sessions[roomID] = s
	m.logger.Info("room session opened", "room", roomID)
	return s, nil
}

// Rooms returns the ids of rooms with a live session, sorted.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close closes every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var firstErr error
	for id, s := range sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close room %s: %w", id, err)
		}
	}
	return firstErr
}
