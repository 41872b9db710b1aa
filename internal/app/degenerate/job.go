// Package degenerate applies the starvation rule to every student's pet in
// one service-role batch. It is meant to run once a day from cron; running it
// twice on the same day changes nothing the second time.
package degenerate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// Store lists students and rewrites their pets.
type Store interface {
	ListPage(ctx context.Context, after uuid.UUID, limit int) ([]domain.Student, error)
	GetPetForUpdate(ctx context.Context, id uuid.UUID) (domain.PetState, error)
	UpdatePetData(ctx context.Context, id uuid.UUID, pet domain.PetState) error
}

// TxManager scopes the locked re-read and the write of one student.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type recorder interface {
	Degenerated(n int)
}

type noopRecorder struct{}

func (noopRecorder) Degenerated(int) {}

// Options tune a run.
type Options struct {
	Today     domain.Date
	Threshold int
	BatchSize int
	Workers   int
	DryRun    bool
}

// Result summarizes a run.
type Result struct {
	Scanned     int
	Degenerated int
	// Initialized counts never-fed pets whose neglect clock was started.
	Initialized int
	Failed      int
}

// Job walks the students table page by page.
type Job struct {
	log     *slog.Logger
	store   Store
	tx      TxManager
	opts    Options
	metrics recorder
}

// New creates a Job.
func New(logger *slog.Logger, store Store, tx TxManager, opts Options, rec recorder) *Job {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Job{
		log:     logger.With("job", "degenerate"),
		store:   store,
		tx:      tx,
		opts:    opts,
		metrics: rec,
	}
}

// Run processes every student. Per-student failures are logged and counted;
// the run continues and reports them in the returned error. A listing
// failure or a canceled ctx stops the run.
func (j *Job) Run(ctx context.Context) (Result, error) {
	if j.opts.Today.IsZero() {
		return Result{}, fmt.Errorf("degenerate: today is not set")
	}
	if j.opts.Threshold <= 0 {
		return Result{}, fmt.Errorf("degenerate: threshold must be > 0")
	}

	var (
		res         Result
		degenerated atomic.Int64
		initialized atomic.Int64
		failed      atomic.Int64
		after       = uuid.Nil
	)

	for {
		page, err := j.store.ListPage(ctx, after, j.opts.BatchSize)
		if err != nil {
			return j.summarize(res, &degenerated, &initialized, &failed), fmt.Errorf("degenerate: list students after %s: %w", after, err)
		}
		if len(page) == 0 {
			break
		}
		res.Scanned += len(page)
		after = page[len(page)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(j.opts.Workers)
		for _, s := range page {
			// Cheap pre-check on the listed row; the locked re-read decides.
			if _, neglect := s.Pet.Degenerate(j.opts.Today, j.opts.Threshold); !neglect.Changed() {
				continue
			}
			g.Go(func() error {
				neglect, err := j.apply(gctx, s.ID)
				switch {
				case err != nil && gctx.Err() != nil:
					return gctx.Err()
				case err != nil:
					failed.Add(1)
					j.log.WarnContext(gctx, "student failed",
						slog.String("student_id", s.ID.String()),
						slog.String("error", err.Error()),
					)
				case neglect == domain.NeglectPenalized:
					degenerated.Add(1)
				case neglect == domain.NeglectClockStarted:
					initialized.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return j.summarize(res, &degenerated, &initialized, &failed), fmt.Errorf("degenerate: %w", err)
		}

		if len(page) < j.opts.BatchSize {
			break
		}
	}

	res = j.summarize(res, &degenerated, &initialized, &failed)
	j.log.InfoContext(ctx, "run finished",
		slog.String("today", j.opts.Today.String()),
		slog.Int("scanned", res.Scanned),
		slog.Int("degenerated", res.Degenerated),
		slog.Int("initialized", res.Initialized),
		slog.Int("failed", res.Failed),
		slog.Bool("dry_run", j.opts.DryRun),
	)

	if res.Failed > 0 {
		return res, fmt.Errorf("degenerate: %d students failed", res.Failed)
	}
	return res, nil
}

func (j *Job) summarize(res Result, degenerated, initialized, failed *atomic.Int64) Result {
	res.Degenerated = int(degenerated.Load())
	res.Initialized = int(initialized.Load())
	res.Failed = int(failed.Load())
	j.metrics.Degenerated(res.Degenerated)
	return res
}

// apply re-reads the pet under a row lock so a concurrent feed is never
// overwritten with stale state.
func (j *Job) apply(ctx context.Context, id uuid.UUID) (domain.Neglect, error) {
	var neglect domain.Neglect
	err := j.tx.RunInTx(ctx, func(ctx context.Context) error {
		pet, err := j.store.GetPetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		var next domain.PetState
		next, neglect = pet.Degenerate(j.opts.Today, j.opts.Threshold)
		if !neglect.Changed() {
			return nil
		}
		if j.opts.DryRun {
			return errDryRun
		}
		return j.store.UpdatePetData(ctx, id, next)
	})
	switch {
	case errors.Is(err, errDryRun):
		return neglect, nil
	case err != nil:
		return domain.NeglectNone, err
	}
	return neglect, nil
}

// errDryRun rolls back the transaction of a dry run.
var errDryRun = errors.New("dry run")
