package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
)

// Room is the controller surface a session drives. *huddle.Room satisfies it.
type Room interface {
	ID() string
	Identity() domain.Identity
	State() domain.RuntimeState
	SetAuthority(authority bool)
	Dispatch(ctx context.Context, evt domain.Event) error
	SyncLocal(ctx context.Context) error
	Start(ctx context.Context, slug string) error
}

// DefaultClaimWait bounds how long Join waits for the authority lock.
const DefaultClaimWait = 250 * time.Millisecond

// Option configures a Session.
type Option func(*Session)

// WithLogger configures a logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithAuthorityLock tries to claim room authority through locker on Join.
// The claim is advisory: it only decides who maintains the room snapshot.
func WithAuthorityLock(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *Session) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithClaimWait overrides how long Join waits for the authority lock.
func WithClaimWait(d time.Duration) Option {
	return func(s *Session) {
		s.claimWait = d
	}
}

// Session pumps one room's traffic into its controller.
type Session struct {
	room    Room
	channel ports.Channel
	sub     ports.Subscription

	mu      sync.RWMutex
	members map[string]struct{}

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	claimWait time.Duration
	unlock    ports.UnlockFunc

	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Join subscribes to the room, claims authority if configured, resyncs once,
// and starts pumping inbound events. The pump stops when ctx ends or Close is called.
func Join(ctx context.Context, room Room, channel ports.Channel, opts ...Option) (*Session, error) {
	s := &Session{
		room:      room,
		channel:   channel,
		members:   map[string]struct{}{room.Identity().ParticipantID: {}},
		claimWait: DefaultClaimWait,
		logger:    logging.NewNop(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.locker != nil {
		s.claimAuthority(ctx)
	}

	sub, err := channel.Subscribe(ctx)
	if err != nil {
		s.releaseAuthority(ctx)
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", room.ID(), err)
	}
	s.sub = sub

	// A failed resync leaves the controller Idle; live traffic still applies.
	if err := room.SyncLocal(ctx); err != nil {
		s.logger.WarnContext(ctx, "resync failed, starting idle", "room", room.ID(), "err", err)
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.pump(pumpCtx)

	s.logger.InfoContext(ctx, "joined room", "room", room.ID(), "authority", room.Identity().IsAuthority)
	return s, nil
}

func (s *Session) claimAuthority(ctx context.Context) {
	claimCtx, cancel := context.WithTimeout(ctx, s.claimWait)
	defer cancel()

	unlock, err := s.locker.Lock(claimCtx, "room:"+s.room.ID(), s.lockTTL)
	if err != nil {
		s.logger.DebugContext(ctx, "room authority held elsewhere", "room", s.room.ID(), "err", err)
		return
	}
	s.unlock = unlock
	s.room.SetAuthority(true)
}

func (s *Session) releaseAuthority(ctx context.Context) {
	if s.unlock == nil {
		return
	}
	if err := s.unlock(ctx); err != nil {
		s.logger.Warn("failed to release room authority (will expire via TTL)", "room", s.room.ID(), "err", err)
	}
	s.unlock = nil
	s.room.SetAuthority(false)
}

func (s *Session) pump(ctx context.Context) {
	defer close(s.done)

	events := s.sub.Events()
	joins := s.sub.Joins()
	errs := s.sub.Errors()
	for events != nil || joins != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := s.room.Dispatch(ctx, evt); err != nil {
				s.logger.WarnContext(ctx, "inbound event rejected", "room", s.room.ID(), "type", evt.Type, "sender", evt.SenderID, "err", err)
			}
		case who, ok := <-joins:
			if !ok {
				joins = nil
				continue
			}
			s.mu.Lock()
			s.members[who] = struct{}{}
			s.mu.Unlock()
			s.logger.DebugContext(ctx, "participant joined", "room", s.room.ID(), "participant", who)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.WarnContext(ctx, "transport error", "room", s.room.ID(), "err", err)
		}
	}
}

// Room returns the controller driven by this session.
func (s *Session) Room() Room {
	return s.room
}

// Channel returns the room channel.
func (s *Session) Channel() ports.Channel {
	return s.channel
}

// Members returns every participant seen in the room, including this one, sorted.
func (s *Session) Members() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsAuthority reports whether this session holds the authority claim.
func (s *Session) IsAuthority() bool {
	return s.room.Identity().IsAuthority
}

// Done is closed when the pump stops.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the pump, closes the subscription and releases authority.
// Safe to call multiple times.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		<-s.done
		err = s.sub.Close()
		s.releaseAuthority(context.Background())
	})
	return err
}
