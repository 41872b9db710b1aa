package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// sqlStates maps the SQLSTATE codes repositories can hit to domain sentinels.
var sqlStates = map[string]error{
	"23505": domain.ErrAlreadyExists, // unique_violation
	"23503": domain.ErrNotFound,      // foreign_key_violation
	"23514": domain.ErrValidation,    // check_violation
	"22P02": domain.ErrValidation,    // invalid_text_representation
	"42501": domain.ErrForbidden,     // insufficient_privilege
	"55P03": domain.ErrBusy,          // lock_not_available
	"40P01": domain.ErrBusy,          // deadlock_detected
}

// stateError keeps the server's error next to the sentinel it was mapped to.
type stateError struct {
	kind  error
	cause *pgconn.PgError
}

func (e *stateError) Error() string   { return e.kind.Error() + ": " + e.cause.Message }
func (e *stateError) Unwrap() []error { return []error{e.kind, e.cause} }

// MapError prefixes err with the entity and id and classifies it into a
// domain sentinel where one applies. Context errors and unknown codes pass
// through unmapped.
func MapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", entity, id, classify(err))
}

func classify(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if kind, ok := sqlStates[pgErr.Code]; ok {
		return &stateError{kind: kind, cause: pgErr}
	}
	// Class 08 is connection exceptions, class 57 operator intervention.
	if class := pgErr.Code[:min(2, len(pgErr.Code))]; class == "08" || class == "57" {
		return &stateError{kind: domain.ErrUnavailable, cause: pgErr}
	}
	return err
}
