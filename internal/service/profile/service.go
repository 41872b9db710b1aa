// Package profile bootstraps teacher accounts.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

const maxNameLength = 50

// profileSetup is the ledger call that creates a teacher profile.
type profileSetup interface {
	SetupTeacherProfile(ctx context.Context, p domain.TeacherProfile) error
}

// Service implements teacher profile setup.
type Service struct {
	log   *slog.Logger
	setup profileSetup
}

// NewService creates a new profile service.
func NewService(logger *slog.Logger, setup profileSetup) *Service {
	return &Service{
		log:   logger.With("service", "profile"),
		setup: setup,
	}
}

// SetupInput holds parameters for teacher profile setup.
type SetupInput struct {
	FullName string
	Email    string
	APIMode  string
}

// Validate validates the setup input.
func (i SetupInput) Validate() error {
	var errs []domain.FieldError

	name := strings.TrimSpace(i.FullName)
	if name == "" {
		errs = append(errs, domain.FieldError{Field: "full_name", Message: "required"})
	} else if utf8.RuneCountInString(name) > maxNameLength {
		errs = append(errs, domain.FieldError{Field: "full_name", Message: "too long"})
	}

	if strings.TrimSpace(i.Email) == "" {
		errs = append(errs, domain.FieldError{Field: "email", Message: "required"})
	} else if _, err := mail.ParseAddress(i.Email); err != nil {
		errs = append(errs, domain.FieldError{Field: "email", Message: "invalid email"})
	}

	if i.APIMode != "" && !domain.APIMode(i.APIMode).IsValid() {
		errs = append(errs, domain.FieldError{Field: "api_mode", Message: "must be school or personal"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// SetupTeacher creates the caller's teacher profile. The ledger assigns the
// role; calling it twice is rejected as a conflict.
func (s *Service) SetupTeacher(ctx context.Context, in SetupInput) (domain.TeacherProfile, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.TeacherProfile{}, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return domain.TeacherProfile{}, err
	}

	p := domain.TeacherProfile{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.TrimSpace(in.Email),
		APIMode:  domain.APIMode(in.APIMode),
	}
	if p.APIMode == "" {
		p.APIMode = domain.APIModeSchool
	}

	if err := s.setup.SetupTeacherProfile(ctx, p); err != nil {
		return domain.TeacherProfile{}, fmt.Errorf("setup teacher profile: %w", err)
	}

	s.log.InfoContext(ctx, "teacher profile created",
		slog.String("user_id", userID.String()),
		slog.String("api_mode", string(p.APIMode)),
	)
	return p, nil
}
