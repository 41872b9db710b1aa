// Package realtime subscribes to Supabase Realtime postgres_changes over the
// Phoenix channel protocol and emits domain change events.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

const (
	joinTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	eventBuffer  = 32
	readLimit    = 1 << 20
)

// Options tunes the client.
type Options struct {
	HeartbeatInterval time.Duration
	ReconnectMin      time.Duration
	ReconnectMax      time.Duration
	LedgerTable       string
	SubmissionTable   string
	// OnReconnect is called after every successful re-join, before the
	// subscription emits domain.StreamResumed.
	OnReconnect func()
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 25 * time.Second
	}
	if o.ReconnectMin <= 0 {
		o.ReconnectMin = time.Second
	}
	if o.ReconnectMax < o.ReconnectMin {
		o.ReconnectMax = 30 * time.Second
	}
	if o.LedgerTable == "" {
		o.LedgerTable = "point_logs"
	}
	if o.SubmissionTable == "" {
		o.SubmissionTable = "student_posts"
	}
	return o
}

// Client opens realtime subscriptions against one Supabase project.
type Client struct {
	wsURL string
	opts  Options
	log   *slog.Logger
}

// NewClient derives the websocket endpoint from the project URL.
func NewClient(projectURL, anonKey string, opts Options, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("realtime: parse project url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path += "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {anonKey}, "vsn": {"1.0.0"}}.Encode()

	return &Client{
		wsURL: u.String(),
		opts:  opts.withDefaults(),
		log:   logger.With("adapter", "realtime"),
	}, nil
}

// Subscribe joins the student's channel and returns a live stream. The first
// connection is made synchronously so join rejections surface as errors;
// later drops are retried with exponential backoff until Unsubscribe or ctx
// cancellation.
func (c *Client) Subscribe(ctx context.Context, studentID uuid.UUID, accessToken string) (domain.ChangeStream, error) {
	runCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		client:    c,
		studentID: studentID,
		topic:     studentTopic(studentID),
		token:     accessToken,
		events:    make(chan domain.ChangeEvent, eventBuffer),
		cancel:    cancel,
		done:      make(chan struct{}),
		log:       c.log.With("student_id", studentID.String()),
	}

	conn, err := s.connect(runCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	go s.run(runCtx, conn)
	return s, nil
}

// Subscription is one joined channel.
type Subscription struct {
	client    *Client
	studentID uuid.UUID
	topic     string
	log       *slog.Logger

	ref    atomic.Uint64
	events chan domain.ChangeEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	token string
	conn  *websocket.Conn
}

// Events returns the change stream. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan domain.ChangeEvent { return s.events }

// Unsubscribe leaves the channel, closes the socket and waits for the read
// loop to exit. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// SetAccessToken stores a fresh token and pushes it to the live channel.
func (s *Subscription) SetAccessToken(token string) {
	s.mu.Lock()
	s.token = token
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.send(ctx, conn, s.topic, eventAccessToken, map[string]string{"access_token": token}); err != nil {
		s.log.Warn("realtime token push failed", slog.String("error", err.Error()))
	}
}

func (s *Subscription) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Subscription) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Subscription) send(ctx context.Context, conn *websocket.Conn, topic, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, conn, message{
		Topic:   topic,
		Event:   event,
		Payload: raw,
		Ref:     refString(s.ref.Add(1)),
	})
}

// connect dials and joins. The returned connection is ready to read.
func (s *Subscription) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, s.client.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", errors.Join(domain.ErrUnavailable, err))
	}
	conn.SetReadLimit(readLimit)

	if err := s.join(ctx, conn); err != nil {
		conn.CloseNow()
		return nil, err
	}
	s.setConn(conn)
	return conn, nil
}

func (s *Subscription) join(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	o := s.client.opts
	ref := s.ref.Add(1)
	payload, err := json.Marshal(newJoinPayload(s.studentID, o.LedgerTable, o.SubmissionTable, s.currentToken()))
	if err != nil {
		return err
	}
	join := message{Topic: s.topic, Event: eventJoin, Payload: payload, Ref: refString(ref), JoinRef: refString(ref)}
	if err := wsjson.Write(ctx, conn, join); err != nil {
		return fmt.Errorf("realtime: send join: %w", errors.Join(domain.ErrUnavailable, err))
	}

	want := *join.Ref
	for {
		var m message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			return fmt.Errorf("realtime: await join: %w", errors.Join(domain.ErrUnavailable, err))
		}
		if m.Event != eventReply || m.Topic != s.topic || m.ref() != want {
			continue
		}
		var reply replyPayload
		if err := json.Unmarshal(m.Payload, &reply); err != nil {
			return fmt.Errorf("realtime: decode join reply: %w", err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("realtime: join rejected: %s: %w", string(reply.Response), domain.ErrForbidden)
		}
		s.log.DebugContext(ctx, "realtime joined", slog.String("topic", s.topic))
		return nil
	}
}

func (s *Subscription) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.done)
	defer close(s.events)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.client.opts.ReconnectMin
	b.MaxInterval = s.client.opts.ReconnectMax
	b.MaxElapsedTime = 0

	for {
		err := s.serve(ctx, conn)
		s.setConn(nil)
		if ctx.Err() != nil {
			s.leave(conn)
			return
		}
		conn.CloseNow()
		s.log.WarnContext(ctx, "realtime connection lost", slog.String("error", err.Error()))

		conn = s.reconnect(ctx, b)
		if conn == nil {
			return
		}
		b.Reset()
		if s.client.opts.OnReconnect != nil {
			s.client.opts.OnReconnect()
		}
		select {
		case s.events <- domain.StreamResumed{}:
		case <-ctx.Done():
			s.leave(conn)
			return
		}
	}
}

func (s *Subscription) reconnect(ctx context.Context, b backoff.BackOff) *websocket.Conn {
	for {
		wait := b.NextBackOff()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		conn, err := s.connect(ctx)
		if err == nil {
			s.log.InfoContext(ctx, "realtime reconnected")
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		s.log.WarnContext(ctx, "realtime reconnect failed",
			slog.Duration("backoff", wait), slog.String("error", err.Error()))
	}
}

func (s *Subscription) leave(conn *websocket.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = s.send(ctx, conn, s.topic, eventLeave, struct{}{})
	_ = conn.Close(websocket.StatusNormalClosure, "unsubscribe")
}

// serve reads frames until the connection fails or ctx ends. A heartbeat
// that is still unanswered when the next one is due counts as a dead link.
func (s *Subscription) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var pending atomic.Value
	pending.Store("")

	go func() {
		t := time.NewTicker(s.client.opts.HeartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			if pending.Load().(string) != "" {
				cancel(errors.New("heartbeat timeout"))
				return
			}
			ref := s.ref.Add(1)
			pending.Store(*refString(ref))
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, message{Topic: phoenixTopic, Event: eventHeartbeat, Payload: json.RawMessage(`{}`), Ref: refString(ref)})
			wcancel()
			if err != nil {
				cancel(fmt.Errorf("heartbeat: %w", err))
				return
			}
		}
	}()

	for {
		var m message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}
			return err
		}

		switch {
		case m.Topic == phoenixTopic && m.Event == eventReply:
			if m.ref() == pending.Load().(string) {
				pending.Store("")
			}
		case m.Topic != s.topic:
			continue
		case m.Event == eventChanges:
			ev, err := decodeChange(m.Payload, s.client.opts.LedgerTable, s.client.opts.SubmissionTable)
			if err != nil {
				s.log.WarnContext(ctx, "realtime bad change payload", slog.String("error", err.Error()))
				continue
			}
			if ev == nil {
				continue
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		case m.Event == eventSystem:
			var sys systemPayload
			if json.Unmarshal(m.Payload, &sys) == nil && sys.Status == "error" {
				s.log.WarnContext(ctx, "realtime system error",
					slog.String("extension", sys.Extension), slog.String("message", sys.Message))
			}
		case m.Event == eventError, m.Event == eventClose:
			return fmt.Errorf("channel %s: %s", s.topic, m.Event)
		}
	}
}
