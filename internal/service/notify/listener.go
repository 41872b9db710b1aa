// Package notify converts realtime ledger and submission changes into
// student-facing banners and keeps the mirrored balance current.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// balance receives optimistic ledger deltas.
type balance interface {
	ApplyDelta(entry domain.LedgerEntry)
}

// Refresher re-fetches dependent views. Implementations should not block
// for long; the listener calls it inline.
type Refresher interface {
	Refresh(ctx context.Context, kind domain.RefreshKind)
}

// recorder counts emitted notifications.
type recorder interface {
	Notification(t domain.NotificationType)
}

type noopRecorder struct{}

func (noopRecorder) Notification(domain.NotificationType) {}

// Options tunes a Listener.
type Options struct {
	DedupWindow   time.Duration
	SeenCacheSize int
	BufferSize    int
}

type source uint8

const (
	fromLedger source = iota + 1
	fromSubmission
)

type emission struct {
	at  time.Time
	src source
}

// Listener processes change events one at a time.
type Listener struct {
	log       *slog.Logger
	balance   balance
	refresher Refresher
	metrics   recorder
	window    time.Duration
	now       func() time.Time

	seen *lru.Cache[string, struct{}]
	out  chan domain.Notification

	mu      sync.Mutex
	current *domain.Notification
	last    map[domain.NotificationType]emission
}

// NewListener creates a listener. refresher and rec may be nil.
func NewListener(logger *slog.Logger, bal balance, refresher Refresher, opts Options, rec recorder) (*Listener, error) {
	if opts.SeenCacheSize <= 0 {
		opts.SeenCacheSize = 512
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 16
	}
	if rec == nil {
		rec = noopRecorder{}
	}

	seen, err := lru.New[string, struct{}](opts.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("seen cache: %w", err)
	}

	return &Listener{
		log:       logger.With("service", "notify"),
		balance:   bal,
		refresher: refresher,
		metrics:   rec,
		window:    opts.DedupWindow,
		now:       time.Now,
		seen:      seen,
		out:       make(chan domain.Notification, opts.BufferSize),
		last:      make(map[domain.NotificationType]emission),
	}, nil
}

// Notifications delivers emitted banners. It is closed when Run returns.
// Banners are dropped when the buffer is full; Current always holds the
// latest one.
func (l *Listener) Notifications() <-chan domain.Notification {
	return l.out
}

// Run consumes events until the channel closes or ctx ends.
func (l *Listener) Run(ctx context.Context, events <-chan domain.ChangeEvent) error {
	defer close(l.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.handle(ctx, ev)
		}
	}
}

func (l *Listener) handle(ctx context.Context, ev domain.ChangeEvent) {
	switch ev := ev.(type) {
	case domain.LedgerInsert:
		l.handleLedger(ev.Entry)
	case domain.SubmissionUpdate:
		l.handleSubmission(ctx, ev)
	case domain.StreamResumed:
		l.log.Info("change stream resumed, refetching")
		if l.refresher != nil {
			l.refresher.Refresh(ctx, domain.RefreshAfterGap)
		}
	default:
		l.log.Debug("ignoring unknown change event", slog.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (l *Listener) handleLedger(entry domain.LedgerEntry) {
	if entry.ID != "" {
		if replay, _ := l.seen.ContainsOrAdd(entry.ID, struct{}{}); replay {
			l.log.Debug("ledger entry replayed", slog.String("entry_id", entry.ID))
			return
		}
	}

	n, ok := ClassifyLedgerInsert(entry, l.now())
	if !ok {
		return
	}
	if l.balance != nil {
		l.balance.ApplyDelta(entry)
	}
	l.emit(n, fromLedger)
}

func (l *Listener) handleSubmission(ctx context.Context, u domain.SubmissionUpdate) {
	n, refresh, ok := ClassifySubmissionUpdate(u, l.now())
	if refresh != 0 && l.refresher != nil {
		l.refresher.Refresh(ctx, refresh)
	}
	if ok {
		l.emit(n, fromSubmission)
	}
}

// emit publishes n unless the same approval or recovery was just announced
// by the other stream.
func (l *Listener) emit(n domain.Notification, src source) {
	l.mu.Lock()
	if l.duplicateLocked(n, src) {
		l.mu.Unlock()
		l.log.Debug("duplicate banner suppressed", slog.String("type", n.Type.String()))
		return
	}
	l.last[n.Type] = emission{at: n.Timestamp, src: src}
	cur := n
	l.current = &cur
	l.mu.Unlock()

	l.metrics.Notification(n.Type)

	select {
	case l.out <- n:
	default:
		l.log.Warn("notification buffer full, dropping banner", slog.String("type", n.Type.String()))
	}
}

func (l *Listener) duplicateLocked(n domain.Notification, src source) bool {
	if n.Type != domain.NotificationApprove && n.Type != domain.NotificationRecovery {
		return false
	}
	prev, ok := l.last[n.Type]
	if !ok || prev.src == src {
		return false
	}
	d := n.Timestamp.Sub(prev.at)
	return d >= -l.window && d <= l.window
}

// Current returns the banner on display, if any.
func (l *Listener) Current() (domain.Notification, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return domain.Notification{}, false
	}
	return *l.current, true
}

// Dismiss clears the banner on display.
func (l *Listener) Dismiss() {
	l.mu.Lock()
	l.current = nil
	l.mu.Unlock()
}
