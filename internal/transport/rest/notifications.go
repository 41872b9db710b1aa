package rest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/hideout-backend/internal/service/session"
)

const sseHeartbeat = 25 * time.Second

// NotificationHandler streams the caller's live state and banners.
type NotificationHandler struct {
	sessions  sessions
	log       *slog.Logger
	heartbeat time.Duration
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(s sessions, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{sessions: s, log: logger.With("handler", "notifications"), heartbeat: sseHeartbeat}
}

// Stream is a server-sent event stream of state, notification and refresh
// events. The first event is always the current state.
// GET /api/v1/notifications/stream
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Acquire(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.ErrorContext(r.Context(), "streaming not supported", slog.String("error", err.Error()))
		return
	}

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	var id uint64
	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case ev, ok := <-events:
			if !ok {
				// Session closed; the client reconnects and gets a fresh one.
				return
			}
			id++
			if err := h.send(w, rc, id, ev); err != nil {
				h.log.DebugContext(r.Context(), "client disconnected", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (h *NotificationHandler) send(w http.ResponseWriter, rc *http.ResponseController, id uint64, ev session.Event) error {
	var data any
	switch ev.Kind {
	case session.EventState:
		data = toStateResponse(ev.State)
	case session.EventNotification:
		data = toNotificationResponse(ev.Notification)
	case session.EventRefresh:
		data = toRefreshResponse(ev.Refresh)
	default:
		return nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		h.log.Warn("marshal event", slog.String("error", err.Error()))
		return nil
	}

	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, ev.Kind, b); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return rc.Flush()
}

// Dismiss clears the banner currently on display.
// DELETE /api/v1/notifications/current
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Acquire(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	s.Listener().Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// Current returns the banner on display, or 204 when there is none.
// GET /api/v1/notifications/current
func (h *NotificationHandler) Current(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Acquire(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	n, ok := s.Listener().Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}
