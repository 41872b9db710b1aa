package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// Snapshot is a point-in-time view of a mirror.
type Snapshot struct {
	StudentID uuid.UUID
	Name      string
	Points    int
	Pet       domain.PetState
	Loaded    bool
	// Busy is true while a spend or pet write is in flight.
	Busy bool
}

// Mirror holds one student's last known balance and pet. Writes go to the
// remote ledger first; local state changes only after the ledger confirms.
//
// After a level-up the committed state is held back from readers for
// Rules.LevelUpDelay. Operations always work on the committed state.
type Mirror struct {
	svc       *Service
	log       *slog.Logger
	studentID uuid.UUID
	observer  func(Snapshot)

	mu     sync.Mutex
	loaded bool
	name   string
	points int
	pet    domain.PetState
	busy   bool
	spends selfSpends

	shown   *Snapshot
	holdGen uint64
	hold    *time.Timer
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithObserver registers fn to receive the visible snapshot after every
// change. fn runs outside the mirror lock.
func WithObserver(fn func(Snapshot)) MirrorOption {
	return func(m *Mirror) { m.observer = fn }
}

// NewMirror creates an unloaded mirror for studentID. Call Refresh to load it;
// operations load it on demand.
func (s *Service) NewMirror(studentID uuid.UUID, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		svc:       s,
		log:       s.log.With("student_id", studentID.String()),
		studentID: studentID,
		spends:    newSelfSpends(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StudentID returns the mirrored student.
func (m *Mirror) StudentID() uuid.UUID { return m.studentID }

// Snapshot returns what readers should currently see.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visibleLocked()
}

func (m *Mirror) committedLocked() Snapshot {
	return Snapshot{
		StudentID: m.studentID,
		Name:      m.name,
		Points:    m.points,
		Pet:       m.pet.Clone(),
		Loaded:    m.loaded,
		Busy:      m.busy,
	}
}

func (m *Mirror) visibleLocked() Snapshot {
	if m.shown != nil {
		s := *m.shown
		s.Pet = s.Pet.Clone()
		s.Busy = m.busy
		return s
	}
	return m.committedLocked()
}

// unlockAndPublish releases the lock and hands the visible state to the
// observer.
func (m *Mirror) unlockAndPublish() {
	snap := m.visibleLocked()
	m.mu.Unlock()
	if m.observer != nil {
		m.observer(snap)
	}
}

// Refresh re-reads the student row. The result overwrites any optimistic
// delta and cancels a pending level-up hold.
func (m *Mirror) Refresh(ctx context.Context) error {
	st, err := m.svc.ledger.GetStudent(ctx, m.studentID)
	if err != nil {
		return fmt.Errorf("refresh student: %w", err)
	}

	m.mu.Lock()
	m.loaded = true
	m.name = st.Name
	m.points = st.TotalPoints
	m.pet = st.Pet.Normalize()
	m.releaseHoldLocked()
	m.unlockAndPublish()
	return nil
}

// Resync is Refresh for when pushed entries may have been lost. Settled
// spends still waiting for their push are forgotten first, unless a spend is
// in flight.
func (m *Mirror) Resync(ctx context.Context) error {
	m.mu.Lock()
	if !m.busy {
		m.spends = newSelfSpends()
	}
	m.mu.Unlock()
	return m.Refresh(ctx)
}

func (m *Mirror) ensureLoaded(ctx context.Context) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	if loaded {
		return nil
	}
	return m.Refresh(ctx)
}

// ApplyDelta applies a pushed ledger entry to the balance optimistically.
// Entries for spends this mirror already settled from the RPC response are
// skipped so the balance is not charged twice.
func (m *Mirror) ApplyDelta(entry domain.LedgerEntry) {
	if entry.Amount == 0 {
		return
	}

	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return
	}
	if entry.Amount < 0 && isSelfSpend(entry.Code()) && !m.spends.observe(-entry.Amount, m.busy) {
		m.mu.Unlock()
		return
	}

	m.points += entry.Amount
	if m.shown != nil {
		m.shown.Points += entry.Amount
	}
	m.unlockAndPublish()
}

func isSelfSpend(code domain.ReasonCode) bool {
	return code == domain.ReasonPetFeed || code == domain.ReasonPetPurchase
}

// begin marks the mirror busy. It returns domain.ErrBusy if another write is
// in flight.
func (m *Mirror) beginLocked() error {
	if m.busy {
		return domain.ErrBusy
	}
	m.busy = true
	return nil
}

// holdLocked shows prev to readers until the level-up delay has passed.
func (m *Mirror) holdLocked(prev Snapshot) {
	delay := m.svc.rules.LevelUpDelay
	if delay <= 0 {
		return
	}

	m.releaseHoldLocked()
	m.shown = &prev
	gen := m.holdGen
	m.hold = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.holdGen != gen {
			m.mu.Unlock()
			return
		}
		m.shown = nil
		m.hold = nil
		m.unlockAndPublish()
	})
}

func (m *Mirror) releaseHoldLocked() {
	m.holdGen++
	if m.hold != nil {
		m.hold.Stop()
		m.hold = nil
	}
	m.shown = nil
}

// Close stops a pending level-up timer.
func (m *Mirror) Close() {
	m.mu.Lock()
	m.releaseHoldLocked()
	m.mu.Unlock()
}

// finish records the outcome of op and logs failures that are not plain
// business rejections.
func (m *Mirror) finish(ctx context.Context, op string, err error) {
	m.svc.metrics.EconomyOp(op, err)
	if err == nil || isRejection(err) {
		return
	}
	m.log.WarnContext(ctx, "economy operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrInsufficientPoints) ||
		errors.Is(err, domain.ErrAlreadyOwned) ||
		errors.Is(err, domain.ErrNotOwned) ||
		errors.Is(err, domain.ErrBusy) ||
		errors.Is(err, domain.ErrValidation)
}
