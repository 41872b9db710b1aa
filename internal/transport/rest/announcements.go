package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/announcement"
)

type announcementService interface {
	List(ctx context.Context, in announcement.ListInput) ([]domain.Announcement, error)
	MarkSeen(ctx context.Context, announcementID string) error
	MarkUnseen(ctx context.Context, announcementID string) error
}

// AnnouncementHandler serves class announcements.
type AnnouncementHandler struct {
	svc announcementService
	log *slog.Logger
}

// NewAnnouncementHandler creates an AnnouncementHandler.
func NewAnnouncementHandler(svc announcementService, logger *slog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{svc: svc, log: logger.With("handler", "announcements")}
}

// List returns the caller's class announcements.
// GET /api/v1/announcements?limit=20&unseen=true
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	var in announcement.ListInput
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			handleError(h.log, w, r, domain.NewValidationError("limit", "must be an integer"))
			return
		}
		in.Limit = n
	}
	if v := q.Get("unseen"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			handleError(h.log, w, r, domain.NewValidationError("unseen", "must be a boolean"))
			return
		}
		in.UnseenOnly = b
	}

	items, err := h.svc.List(r.Context(), in)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	resp := make([]announcementResponse, 0, len(items))
	for _, a := range items {
		resp = append(resp, toAnnouncementResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkSeen records that the caller read an announcement.
// POST /api/v1/announcements/{id}/seen
func (h *AnnouncementHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkSeen(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkUnseen clears the seen flag.
// DELETE /api/v1/announcements/{id}/seen
func (h *AnnouncementHandler) MarkUnseen(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkUnseen(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
