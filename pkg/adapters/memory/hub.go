package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
)

const subscriptionBuffer = 64

// Hub is an in-process room transport.
// Events are JSON round-tripped on delivery so receivers see exactly what a
// network transport would hand them.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	subs     map[*subscription]struct{}
	snapshot []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// Channel opens the room channel for one participant.
func (h *Hub) Channel(roomID, participantID string) ports.Channel {
	return &channel{hub: h, roomID: roomID, participantID: participantID}
}

// Members returns the participants currently subscribed to a room.
func (h *Hub) Members(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(r.subs))
	for sub := range r.subs {
		members = append(members, sub.participantID)
	}
	return members
}

func (h *Hub) room(roomID string) *room {
	r, ok := h.rooms[roomID]
	if !ok {
		r = &room{subs: make(map[*subscription]struct{})}
		h.rooms[roomID] = r
	}
	return r
}

// peers lists the subscriptions of a room except the participant's own.
func (h *Hub) peers(roomID, participantID string) []*subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*subscription, 0, len(r.subs))
	for sub := range r.subs {
		if sub.participantID != participantID {
			out = append(out, sub)
		}
	}
	return out
}

type channel struct {
	hub           *Hub
	roomID        string
	participantID string
}

func (c *channel) Send(ctx context.Context, evt domain.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for _, sub := range c.hub.peers(c.roomID, c.participantID) {
		var copied domain.Event
		if err := json.Unmarshal(data, &copied); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
		if err := sub.deliverEvent(ctx, copied); err != nil {
			return err
		}
	}
	return nil
}

func (c *channel) Subscribe(ctx context.Context) (ports.Subscription, error) {
	sub := &subscription{
		hub:           c.hub,
		roomID:        c.roomID,
		participantID: c.participantID,
		events:        make(chan domain.Event, subscriptionBuffer),
		joins:         make(chan string, subscriptionBuffer),
		errors:        make(chan error, 1),
		done:          make(chan struct{}),
	}

	peers := c.hub.peers(c.roomID, c.participantID)

	c.hub.mu.Lock()
	c.hub.room(c.roomID).subs[sub] = struct{}{}
	c.hub.mu.Unlock()

	for _, peer := range peers {
		if err := peer.deliverJoin(ctx, c.participantID); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (c *channel) Snapshot(ctx context.Context) (domain.RoomSnapshot, error) {
	c.hub.mu.Lock()
	var data []byte
	if r, ok := c.hub.rooms[c.roomID]; ok {
		data = r.snapshot
	}
	c.hub.mu.Unlock()

	var snap domain.RoomSnapshot
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (c *channel) SetSnapshot(ctx context.Context, snap domain.RoomSnapshot) error {
	var data []byte
	if !snap.IsEmpty() {
		var err error
		if data, err = json.Marshal(snap); err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
	}

	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.hub.room(c.roomID).snapshot = data
	return nil
}

type subscription struct {
	hub           *Hub
	roomID        string
	participantID string

	mu     sync.Mutex
	closed bool
	events chan domain.Event
	joins  chan string
	errors chan error
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.Event { return s.events }
func (s *subscription) Joins() <-chan string        { return s.joins }
func (s *subscription) Errors() <-chan error        { return s.errors }

func (s *subscription) deliverEvent(ctx context.Context, evt domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.events <- evt:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *subscription) deliverJoin(ctx context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.joins <- participantID:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the subscription from its room and closes its channels.
func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)

		s.hub.mu.Lock()
		if r, ok := s.hub.rooms[s.roomID]; ok {
			delete(r.subs, s)
		}
		s.hub.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.events)
		close(s.joins)
		close(s.errors)
		s.mu.Unlock()
	})
	return nil
}
