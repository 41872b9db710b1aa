package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"

	"github.com/heartmarshall/hideout-backend/internal/adapter/petdata"
	"github.com/heartmarshall/hideout-backend/internal/domain"
)

const studentColumns = "id,name,class_id,total_points,pet_data"

type studentRow struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	ClassID     *uuid.UUID      `json:"class_id"`
	TotalPoints int             `json:"total_points"`
	PetData     json.RawMessage `json:"pet_data"`
}

func (r studentRow) toDomain() (domain.Student, error) {
	pet, err := petdata.Decode(r.PetData)
	if err != nil {
		return domain.Student{}, err
	}
	return domain.Student{
		ID:          r.ID,
		Name:        r.Name,
		ClassID:     r.ClassID,
		TotalPoints: r.TotalPoints,
		Pet:         pet,
	}, nil
}

// GetStudent reads one students row. Missing or RLS-hidden rows map to
// domain.ErrNotFound.
func (c *Client) GetStudent(ctx context.Context, id uuid.UUID) (domain.Student, error) {
	var row studentRow
	err := c.call(ctx, "get student", callOpts{idempotent: true}, func(x *exchange) error {
		pg, err := x.rest()
		if err != nil {
			return err
		}
		_, err = pg.From("students").
			Select(studentColumns, "", false).
			Eq("id", id.String()).
			Single().
			ExecuteTo(&row)
		return err
	})
	if err != nil {
		return domain.Student{}, fmt.Errorf("get student %s: %w", id, err)
	}

	s, err := row.toDomain()
	if err != nil {
		return domain.Student{}, fmt.Errorf("get student %s: %w", id, err)
	}
	return s, nil
}

// ListStudents returns up to limit students with id > after, ordered by id.
// Without the service role, RLS limits the rows to those the caller may see.
func (c *Client) ListStudents(ctx context.Context, after uuid.UUID, limit int) ([]domain.Student, error) {
	var rows []studentRow
	err := c.call(ctx, "list students", callOpts{idempotent: true}, func(x *exchange) error {
		pg, err := x.rest()
		if err != nil {
			return err
		}
		_, err = pg.From("students").
			Select(studentColumns, "", false).
			Gt("id", after.String()).
			Order("id", &postgrest.OrderOpts{Ascending: true}).
			Limit(limit, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list students after %s: %w", after, err)
	}

	out := make([]domain.Student, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("student %s: %w", row.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdatePetData writes pet_data directly. It is only used for changes with
// no monetary component (equip, degeneration).
func (c *Client) UpdatePetData(ctx context.Context, id uuid.UUID, pet domain.PetState) error {
	doc, err := petdata.Encode(pet)
	if err != nil {
		return err
	}

	var rows []struct {
		ID uuid.UUID `json:"id"`
	}
	err = c.call(ctx, "update pet data", callOpts{}, func(x *exchange) error {
		pg, err := x.rest()
		if err != nil {
			return err
		}
		_, err = pg.From("students").
			Update(map[string]json.RawMessage{"pet_data": doc}, "representation", "").
			Eq("id", id.String()).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("update pet data %s: %w", id, err)
	}
	// PostgREST answers 200 with no rows when RLS filters the update out.
	if len(rows) == 0 {
		return fmt.Errorf("update pet data %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
