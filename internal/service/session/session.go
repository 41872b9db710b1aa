package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/economy"
	"github.com/heartmarshall/hideout-backend/internal/service/notify"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

const subscriberBuffer = 8

// EventKind tags an Event.
type EventKind string

const (
	EventState        EventKind = "state"
	EventNotification EventKind = "notification"
	EventRefresh      EventKind = "refresh"
)

// Event is pushed to stream subscribers.
type Event struct {
	Kind         EventKind
	State        economy.Snapshot
	Notification domain.Notification
	Refresh      domain.RefreshKind
}

// Session is one student's live mirror.
type Session struct {
	studentID uuid.UUID
	log       *slog.Logger
	mirror    *economy.Mirror
	listener  *notify.Listener
	stream    domain.ChangeStream

	base    context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	refresh chan struct{}

	mu       sync.Mutex
	auth     context.Context
	token    string
	pending  domain.RefreshKind
	subs     map[uint64]chan Event
	nextSub  uint64
	lastUsed time.Time
	closed   bool
}

// StudentID returns the mirrored student.
func (s *Session) StudentID() uuid.UUID { return s.studentID }

// Mirror returns the economy mirror.
func (s *Session) Mirror() *economy.Mirror { return s.mirror }

// Listener returns the notification listener.
func (s *Session) Listener() *notify.Listener { return s.listener }

// setAuth stores the latest credentials for background refreshes and reports
// whether the access token changed.
func (s *Session) setAuth(reqCtx context.Context, now time.Time) bool {
	token, _ := ctxutil.AccessTokenFromCtx(reqCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = ctxutil.CopyAuth(s.base, reqCtx)
	s.lastUsed = now
	changed := token != "" && token != s.token
	if token != "" {
		s.token = token
	}
	return changed
}

func (s *Session) authCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// Subscribe registers a stream consumer. The first events are the current
// state and, if one is on display, the current notification. Call the
// returned function to unsubscribe. The channel is closed when the session
// closes.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	ch <- Event{Kind: EventState, State: s.mirror.Snapshot()}
	if n, ok := s.listener.Current(); ok {
		ch <- Event{Kind: EventNotification, Notification: n}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// broadcast delivers ev to every subscriber without blocking. Slow
// subscribers miss events.
func (s *Session) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Debug("subscriber lagging, event dropped", slog.String("kind", string(ev.Kind)))
		}
	}
}

// Refresh implements notify.Refresher. Requests are coalesced and served by
// the session's refresh loop.
func (s *Session) Refresh(_ context.Context, kind domain.RefreshKind) {
	s.mu.Lock()
	s.pending |= kind
	s.mu.Unlock()

	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Session) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.refresh:
		}

		s.mu.Lock()
		kind := s.pending
		s.pending = 0
		s.mu.Unlock()

		var err error
		switch {
		case kind.Has(domain.RefreshResync):
			err = s.mirror.Resync(s.authCtx())
		case kind.Has(domain.RefreshPoints):
			err = s.mirror.Refresh(s.authCtx())
		}
		if err != nil {
			s.log.Warn("mirror refresh failed", slog.String("error", err.Error()))
		}
		s.broadcast(Event{Kind: EventRefresh, Refresh: kind &^ domain.RefreshResync})
	}
}

func (s *Session) forwardNotifications() {
	defer s.wg.Done()
	for n := range s.listener.Notifications() {
		s.broadcast(Event{Kind: EventNotification, Notification: n})
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return 0
	}
	return now.Sub(s.lastUsed)
}

// close tears the session down: the realtime channel is left, background
// loops stop and subscriber channels close.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.stream.Unsubscribe()
	s.wg.Wait()
	s.mirror.Close()

	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
}
