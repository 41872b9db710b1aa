package degenerate

import (
	"context"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

type restAPI interface {
	ListStudents(ctx context.Context, after uuid.UUID, limit int) ([]domain.Student, error)
	GetStudent(ctx context.Context, id uuid.UUID) (domain.Student, error)
	UpdatePetData(ctx context.Context, id uuid.UUID, pet domain.PetState) error
}

// APIStore runs the job over the hosted REST API with the service-role key,
// for deployments without direct database access. The REST API cannot lock
// rows: the pet is re-read right before the write, but a feed landing in
// between is lost.
type APIStore struct {
	api restAPI
}

// NewAPIStore wraps a service-role API client.
func NewAPIStore(api restAPI) *APIStore {
	return &APIStore{api: api}
}

func (s *APIStore) ListPage(ctx context.Context, after uuid.UUID, limit int) ([]domain.Student, error) {
	return s.api.ListStudents(ctx, after, limit)
}

func (s *APIStore) GetPetForUpdate(ctx context.Context, id uuid.UUID) (domain.PetState, error) {
	st, err := s.api.GetStudent(ctx, id)
	if err != nil {
		return domain.PetState{}, err
	}
	return st.Pet, nil
}

func (s *APIStore) UpdatePetData(ctx context.Context, id uuid.UUID, pet domain.PetState) error {
	return s.api.UpdatePetData(ctx, id, pet)
}

// NoTx runs fn directly. Pair it with APIStore.
type NoTx struct{}

func (NoTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
