// Package session keeps one live economy mirror per student: the mirror, its
// notification listener and the realtime subscription feeding them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/economy"
	"github.com/heartmarshall/hideout-backend/internal/service/notify"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

// subscriber opens realtime change streams.
type subscriber interface {
	Subscribe(ctx context.Context, studentID uuid.UUID, accessToken string) (domain.ChangeStream, error)
}

// recorder tracks session and notification metrics.
type recorder interface {
	SessionOpened()
	SessionClosed()
	Notification(t domain.NotificationType)
}

type noopRecorder struct{}

func (noopRecorder) SessionOpened()                       {}
func (noopRecorder) SessionClosed()                       {}
func (noopRecorder) Notification(domain.NotificationType) {}

// Options configures a Registry.
type Options struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// OpenTimeout bounds the initial fetch and subscribe of a new session.
	OpenTimeout time.Duration
	Notify      notify.Options
}

// Registry owns all open sessions.
type Registry struct {
	log     *slog.Logger
	economy *economy.Service
	stream  subscriber
	opts    Options
	metrics recorder
	now     func() time.Time
	group   singleflight.Group

	// base outlives requests; sessions derive their contexts from it.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool
}

// NewRegistry creates an empty registry. rec may be nil.
func NewRegistry(logger *slog.Logger, econ *economy.Service, stream subscriber, opts Options, rec recorder) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 15 * time.Second
	}
	if rec == nil {
		rec = noopRecorder{}
	}
	base, cancel := context.WithCancel(context.Background())
	return &Registry{
		log:      logger.With("service", "session"),
		economy:  econ,
		stream:   stream,
		opts:     opts,
		metrics:  rec,
		now:      time.Now,
		base:     base,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Acquire returns the caller's session, opening it on first use. ctx must
// carry the student's user id and access token.
func (r *Registry) Acquire(ctx context.Context) (*Session, error) {
	studentID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if ctxutil.RoleFromCtx(ctx) == string(domain.RoleTeacher) {
		return nil, fmt.Errorf("open session: %w", domain.ErrForbidden)
	}

	if s := r.lookup(studentID); s != nil {
		r.touch(ctx, s)
		return s, nil
	}

	// The open is shared by every concurrent caller, so it runs on the
	// registry's context rather than the first caller's request.
	ch := r.group.DoChan(studentID.String(), func() (any, error) {
		if s := r.lookup(studentID); s != nil {
			return s, nil
		}
		openCtx, cancel := context.WithTimeout(ctxutil.CopyAuth(r.base, ctx), r.opts.OpenTimeout)
		defer cancel()
		return r.open(openCtx, studentID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	s := res.Val.(*Session)
	r.touch(ctx, s)
	return s, nil
}

// Lookup returns an open session without creating one.
func (r *Registry) Lookup(studentID uuid.UUID) (*Session, bool) {
	s := r.lookup(studentID)
	return s, s != nil
}

func (r *Registry) lookup(studentID uuid.UUID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[studentID]
}

func (r *Registry) touch(ctx context.Context, s *Session) {
	if s.setAuth(ctx, r.now()) {
		token, _ := ctxutil.AccessTokenFromCtx(ctx)
		s.stream.SetAccessToken(token)
	}
}

func (r *Registry) open(ctx context.Context, studentID uuid.UUID) (*Session, error) {
	token, ok := ctxutil.AccessTokenFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	sessCtx, cancel := context.WithCancel(r.base)
	s := &Session{
		studentID: studentID,
		log:       r.log.With("student_id", studentID.String()),
		base:      sessCtx,
		cancel:    cancel,
		refresh:   make(chan struct{}, 1),
		subs:      make(map[uint64]chan Event),
		token:     token,
		lastUsed:  r.now(),
	}
	s.auth = ctxutil.CopyAuth(sessCtx, ctx)
	s.mirror = r.economy.NewMirror(studentID, economy.WithObserver(func(snap economy.Snapshot) {
		s.broadcast(Event{Kind: EventState, State: snap})
	}))

	if err := s.mirror.Refresh(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("open session: %w", err)
	}
	if _, err := s.mirror.CheckDegeneration(ctx); err != nil && !errors.Is(err, domain.ErrBusy) {
		s.log.Warn("degeneration check on open failed", slog.String("error", err.Error()))
	}

	listener, err := notify.NewListener(r.log, s.mirror, s, r.opts.Notify, r.metrics)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open session: %w", err)
	}
	s.listener = listener

	stream, err := r.stream.Subscribe(sessCtx, studentID, token)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open session: subscribe: %w", err)
	}
	s.stream = stream

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := listener.Run(sessCtx, stream.Events()); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("listener stopped", slog.String("error", err.Error()))
		}
	}()
	go s.forwardNotifications()
	go s.refreshLoop(sessCtx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.close()
		return nil, fmt.Errorf("open session: %w", domain.ErrUnavailable)
	}
	r.sessions[studentID] = s
	r.mu.Unlock()

	r.metrics.SessionOpened()
	s.log.Info("session opened")
	return s, nil
}

// Close closes the student's session if it is open.
func (r *Registry) Close(studentID uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[studentID]
	delete(r.sessions, studentID)
	r.mu.Unlock()

	if ok {
		s.close()
		r.metrics.SessionClosed()
		s.log.Info("session closed")
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions without subscribers that have been idle longer than
// the idle timeout. It returns the number closed.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var idle []uuid.UUID
	for id, s := range r.sessions {
		if s.idleSince(now) > r.opts.IdleTimeout {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		r.Close(id)
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx ends, then closes every session.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Debug("idle sessions closed", slog.Int("count", n))
			}
		}
	}
}

// Shutdown closes all sessions and refuses new ones.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	ids := make([]uuid.UUID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Close(id)
	}
	r.cancel()
}
