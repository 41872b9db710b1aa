package economy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

const (
	maxGrantAmount    = 10000
	maxReasonLength   = 200
	defaultGrantLabel = "선생님 포인트 지급"
)

// GrantInput holds parameters for a manual teacher grant. A negative amount
// deducts points.
type GrantInput struct {
	StudentID uuid.UUID
	Amount    int
	Reason    string
}

// Validate validates the grant input.
func (i GrantInput) Validate() error {
	var errs []domain.FieldError

	if i.StudentID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "student_id", Message: "required"})
	}
	switch {
	case i.Amount == 0:
		errs = append(errs, domain.FieldError{Field: "amount", Message: "must not be zero"})
	case i.Amount > maxGrantAmount || i.Amount < -maxGrantAmount:
		errs = append(errs, domain.FieldError{Field: "amount", Message: fmt.Sprintf("must be within ±%d", maxGrantAmount)})
	}
	if utf8.RuneCountInString(i.Reason) > maxReasonLength {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "too long"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// GrantPoints credits or debits a student's balance on a teacher's behalf.
// The ledger enforces that the caller teaches the student.
func (s *Service) GrantPoints(ctx context.Context, in GrantInput) error {
	if ctxutil.RoleFromCtx(ctx) != string(domain.RoleTeacher) {
		return fmt.Errorf("grant points: %w", domain.ErrForbidden)
	}
	if err := in.Validate(); err != nil {
		return err
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = defaultGrantLabel
	}

	err := s.ledger.IncrementPoints(ctx, in.StudentID, in.Amount, reason)
	s.metrics.EconomyOp("grant", err)
	if err != nil {
		return fmt.Errorf("grant points: %w", err)
	}

	s.log.InfoContext(ctx, "points granted",
		slog.String("student_id", in.StudentID.String()),
		slog.Int("amount", in.Amount),
	)
	return nil
}
