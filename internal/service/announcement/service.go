// Package announcement lists class announcements with per-student seen flags.
package announcement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/storage"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// source reads announcements and the student's class.
type source interface {
	GetStudent(ctx context.Context, id uuid.UUID) (domain.Student, error)
	ListAnnouncements(ctx context.Context, classID uuid.UUID, limit int) ([]domain.Announcement, error)
}

// Service implements announcement listing and seen tracking.
type Service struct {
	log    *slog.Logger
	source source
	kv     storage.KV
	now    func() time.Time
}

// NewService creates a new announcement service.
func NewService(logger *slog.Logger, src source, kv storage.KV) *Service {
	return &Service{
		log:    logger.With("service", "announcement"),
		source: src,
		kv:     kv,
		now:    time.Now,
	}
}

// ListInput holds parameters for listing announcements.
type ListInput struct {
	Limit      int
	UnseenOnly bool
}

// Validate validates the list input.
func (i ListInput) Validate() error {
	if i.Limit < 0 || i.Limit > maxLimit {
		return domain.NewValidationError("limit", fmt.Sprintf("must be between 0 and %d", maxLimit))
	}
	return nil
}

func seenKey(studentID uuid.UUID, announcementID string) string {
	return storage.Key("announcement", "seen", studentID.String(), announcementID)
}

// List returns the newest announcements of the caller's class, newest first.
// A student without a class has no announcements.
func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Announcement, error) {
	studentID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	st, err := s.source.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	if st.ClassID == nil {
		return []domain.Announcement{}, nil
	}

	items, err := s.source.ListAnnouncements(ctx, *st.ClassID, limit)
	if err != nil {
		return nil, err
	}

	out := items[:0]
	for _, a := range items {
		seen, err := s.seen(ctx, studentID, a.ID)
		if err != nil {
			return nil, err
		}
		a.Seen = seen
		if in.UnseenOnly && seen {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) seen(ctx context.Context, studentID uuid.UUID, id string) (bool, error) {
	_, err := s.kv.Get(ctx, seenKey(studentID, id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("read seen flag: %w", err)
	}
}

// MarkSeen records that the caller has read an announcement.
func (s *Service) MarkSeen(ctx context.Context, announcementID string) error {
	studentID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	announcementID = strings.TrimSpace(announcementID)
	if announcementID == "" {
		return domain.NewValidationError("announcement_id", "required")
	}

	stamp := []byte(s.now().UTC().Format(time.RFC3339))
	if err := s.kv.Set(ctx, seenKey(studentID, announcementID), stamp); err != nil {
		return fmt.Errorf("mark announcement seen: %w", err)
	}
	return nil
}

// MarkUnseen clears the seen flag.
func (s *Service) MarkUnseen(ctx context.Context, announcementID string) error {
	studentID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if err := s.kv.Remove(ctx, seenKey(studentID, announcementID)); err != nil {
		return fmt.Errorf("mark announcement unseen: %w", err)
	}
	return nil
}
