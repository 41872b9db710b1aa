package degenerate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type memStore struct {
	mu       sync.Mutex
	students []domain.Student // sorted by id
	failOn   map[uuid.UUID]error
	listErr  error
	updates  int
}

func newMemStore(students ...domain.Student) *memStore {
	slices.SortFunc(students, func(a, b domain.Student) int { return bytes.Compare(a.ID[:], b.ID[:]) })
	return &memStore{students: students, failOn: map[uuid.UUID]error{}}
}

func (m *memStore) ListPage(_ context.Context, after uuid.UUID, limit int) ([]domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Student
	for _, s := range m.students {
		if bytes.Compare(s.ID[:], after[:]) > 0 {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) GetPetForUpdate(_ context.Context, id uuid.UUID) (domain.PetState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[id]; err != nil {
		return domain.PetState{}, err
	}
	for _, s := range m.students {
		if s.ID == id {
			return s.Pet.Clone(), nil
		}
	}
	return domain.PetState{}, domain.ErrNotFound
}

func (m *memStore) UpdatePetData(_ context.Context, id uuid.UUID, pet domain.PetState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].ID == id {
			m.students[i].Pet = pet
			m.updates++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) pet(id uuid.UUID) domain.PetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.ID == id {
			return s.Pet
		}
	}
	return domain.PetState{}
}

type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type countRecorder struct{ n int }

func (c *countRecorder) Degenerated(n int) { c.n += n }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var today = domain.NewDate(2025, 3, 10)

func student(lastFed domain.Date, level int) domain.Student {
	p := domain.DefaultPet()
	p.Level = level
	p.Exp = 40
	p.LastFed = lastFed
	return domain.Student{ID: uuid.New(), Name: "학생", Pet: p}
}

func newJob(store Store, opts Options, rec recorder) *Job {
	if opts.Today.IsZero() {
		opts.Today = today
	}
	if opts.Threshold == 0 {
		opts.Threshold = 3
	}
	return New(slog.New(slog.DiscardHandler), store, passTx{}, opts, rec)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestJob_Run_AppliesRuleAcrossPages(t *testing.T) {
	t.Parallel()

	starved := student(today.AddDays(-3), 3)
	fresh := student(today.AddDays(-1), 2)
	neverFed := student(domain.Date{}, 1)
	longGone := student(today.AddDays(-30), 1)
	store := newMemStore(starved, fresh, neverFed, longGone)

	rec := &countRecorder{}
	res, err := newJob(store, Options{BatchSize: 2, Workers: 3}, rec).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Scanned: 4, Degenerated: 2, Initialized: 1}, res)
	assert.Equal(t, 2, rec.n, "starting the clock is not a penalty")

	got := store.pet(starved.ID)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 0, got.Exp)
	assert.True(t, got.LastFed.Equal(today))

	assert.Equal(t, fresh.Pet, store.pet(fresh.ID))

	got = store.pet(neverFed.ID)
	assert.Equal(t, 1, got.Level)
	assert.True(t, got.LastFed.Equal(today))

	got = store.pet(longGone.ID)
	assert.Equal(t, domain.MinPetLevel, got.Level, "level is floored")
}

func TestJob_Run_NeverFedIsNotDegenerated(t *testing.T) {
	t.Parallel()

	neverFed := student(domain.Date{}, 2)
	store := newMemStore(neverFed)

	rec := &countRecorder{}
	res, err := newJob(store, Options{}, rec).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Degenerated)
	assert.Equal(t, 1, res.Initialized)
	assert.Equal(t, 0, rec.n)
	assert.Equal(t, 1, store.updates)

	got := store.pet(neverFed.ID)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 40, got.Exp)
	assert.True(t, got.LastFed.Equal(today))
}

func TestJob_Run_SecondRunSameDayIsNoop(t *testing.T) {
	t.Parallel()

	store := newMemStore(student(today.AddDays(-5), 4), student(today.AddDays(-4), 2))

	_, err := newJob(store, Options{}, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, store.updates)

	res, err := newJob(store, Options{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Degenerated)
	assert.Equal(t, 2, store.updates)
}

func TestJob_Run_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	s := student(today.AddDays(-3), 3)
	store := newMemStore(s)

	res, err := newJob(store, Options{DryRun: true}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Degenerated)
	assert.Equal(t, 0, store.updates)
	assert.Equal(t, 3, store.pet(s.ID).Level)
}

func TestJob_Run_StudentFailureIsCounted(t *testing.T) {
	t.Parallel()

	bad := student(today.AddDays(-3), 3)
	good := student(today.AddDays(-3), 3)
	store := newMemStore(bad, good)
	store.failOn[bad.ID] = errors.New("lock timeout")

	res, err := newJob(store, Options{Workers: 2}, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 students failed")
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Degenerated)
	assert.Equal(t, 2, store.pet(good.ID).Level)
}

func TestJob_Run_ListFailureStops(t *testing.T) {
	t.Parallel()

	store := newMemStore(student(today.AddDays(-3), 3))
	store.listErr = domain.ErrUnavailable

	_, err := newJob(store, Options{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestJob_Run_RejectsMissingToday(t *testing.T) {
	t.Parallel()

	j := New(slog.New(slog.DiscardHandler), newMemStore(), passTx{}, Options{Threshold: 3}, nil)
	_, err := j.Run(context.Background())
	assert.Error(t, err)
}

type fakeAPI struct {
	*memStore
}

func (f fakeAPI) ListStudents(ctx context.Context, after uuid.UUID, limit int) ([]domain.Student, error) {
	return f.ListPage(ctx, after, limit)
}

func (f fakeAPI) GetStudent(ctx context.Context, id uuid.UUID) (domain.Student, error) {
	pet, err := f.GetPetForUpdate(ctx, id)
	if err != nil {
		return domain.Student{}, err
	}
	return domain.Student{ID: id, Pet: pet}, nil
}

func TestJob_Run_OverAPIStore(t *testing.T) {
	t.Parallel()

	s := student(today.AddDays(-4), 2)
	mem := newMemStore(s)

	j := New(slog.New(slog.DiscardHandler), NewAPIStore(fakeAPI{mem}), NoTx{}, Options{Today: today, Threshold: 3}, nil)
	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Degenerated)
	assert.Equal(t, 1, mem.pet(s.ID).Level)
}
