// Package student reads and writes students rows directly in PostgreSQL.
// It runs with service-role privileges and is used by batch jobs only;
// interactive traffic goes through the Supabase API under row-level security.
package student

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/hideout-backend/internal/adapter/postgres"
	"github.com/heartmarshall/hideout-backend/internal/adapter/petdata"
	"github.com/heartmarshall/hideout-backend/internal/domain"
)

const (
	tableStudents = "students"
	maxPageSize   = 1000
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo provides students persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new student repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ListPage returns up to limit students with id > after, ordered by id.
// Pass uuid.Nil to start from the beginning.
func (r *Repo) ListPage(ctx context.Context, after uuid.UUID, limit int) ([]domain.Student, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	query := psql.
		Select("id", "name", "class_id", "total_points", "pet_data").
		From(tableStudents).
		Where(sq.Gt{"id": after}).
		OrderBy("id ASC").
		Limit(uint64(limit))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list students: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "students after", after)
	}
	defer rows.Close()

	var out []domain.Student
	for rows.Next() {
		var (
			s   domain.Student
			raw []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.ClassID, &s.TotalPoints, &raw); err != nil {
			return nil, postgres.MapError(err, "students after", after)
		}
		if s.Pet, err = petdata.Decode(raw); err != nil {
			return nil, fmt.Errorf("student %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "students after", after)
	}

	return out, nil
}

// GetPetForUpdate reads pet_data and locks the row until the surrounding
// transaction ends. Call it inside TxManager.RunInTx.
func (r *Repo) GetPetForUpdate(ctx context.Context, id uuid.UUID) (domain.PetState, error) {
	query := psql.
		Select("pet_data").
		From(tableStudents).
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE")

	sql, args, err := query.ToSql()
	if err != nil {
		return domain.PetState{}, fmt.Errorf("build get pet: %w", err)
	}

	var raw []byte
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return domain.PetState{}, postgres.MapError(err, "student", id)
	}

	pet, err := petdata.Decode(raw)
	if err != nil {
		return domain.PetState{}, fmt.Errorf("student %s: %w", id, err)
	}
	return pet, nil
}

// UpdatePetData overwrites pet_data. It never touches total_points.
func (r *Repo) UpdatePetData(ctx context.Context, id uuid.UUID, pet domain.PetState) error {
	doc, err := petdata.Encode(pet)
	if err != nil {
		return err
	}

	query := psql.
		Update(tableStudents).
		Set("pet_data", []byte(doc)).
		Where(sq.Eq{"id": id})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update pet: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "student", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("student %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
