package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/hideout-backend/internal/adapter/petdata"
	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedStudent inserts a student with the given balance and pet.
func SeedStudent(t *testing.T, pool *pgxpool.Pool, points int, pet domain.PetState) domain.Student {
	t.Helper()

	doc, err := petdata.Encode(pet)
	if err != nil {
		t.Fatalf("testhelper: SeedStudent encode pet: %v", err)
	}

	s := domain.Student{
		ID:          uuid.New(),
		Name:        "학생 " + uniqueSuffix(),
		TotalPoints: points,
		Pet:         pet,
	}

	_, err = pool.Exec(context.Background(),
		`INSERT INTO students (id, name, total_points, pet_data) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Name, s.TotalPoints, []byte(doc),
	)
	if err != nil {
		t.Fatalf("testhelper: SeedStudent insert: %v", err)
	}

	return s
}
