// Package economy mirrors one student's points and pet and turns student
// intents into calls against the remote ledger.
package economy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/config"
	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// ledger is the remote ledger surface the economy needs.
type ledger interface {
	GetStudent(ctx context.Context, id uuid.UUID) (domain.Student, error)
	SpendPoints(ctx context.Context, amount int, reason string, pet domain.PetState) (domain.SpendResult, error)
	UpdatePetData(ctx context.Context, id uuid.UUID, pet domain.PetState) error
	RewardComment(ctx context.Context, postID string) (*int, error)
	IncrementPoints(ctx context.Context, studentID uuid.UUID, amount int, reason string) error
}

// itemCatalog resolves shop items.
type itemCatalog interface {
	Item(id string) (domain.ShopItem, error)
}

// recorder counts operation outcomes.
type recorder interface {
	EconomyOp(op string, err error)
}

type noopRecorder struct{}

func (noopRecorder) EconomyOp(string, error) {}

// Rules are the tunable economy constants.
type Rules struct {
	FeedCost         int
	DegenerationDays int
	LevelUpDelay     time.Duration
	Location         *time.Location
}

// RulesFromConfig converts validated configuration.
func RulesFromConfig(cfg config.EconomyConfig) Rules {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return Rules{
		FeedCost:         cfg.FeedCost,
		DegenerationDays: cfg.DegenerationDays,
		LevelUpDelay:     cfg.LevelUpDelay,
		Location:         loc,
	}
}

// Service creates per-student mirrors and runs teacher-side grants.
type Service struct {
	log     *slog.Logger
	ledger  ledger
	catalog itemCatalog
	rules   Rules
	metrics recorder
	now     func() time.Time
}

// NewService creates a new economy service. rec may be nil.
func NewService(logger *slog.Logger, l ledger, catalog itemCatalog, rules Rules, rec recorder) *Service {
	if rec == nil {
		rec = noopRecorder{}
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	return &Service{
		log:     logger.With("service", "economy"),
		ledger:  l,
		catalog: catalog,
		rules:   rules,
		metrics: rec,
		now:     time.Now,
	}
}

// Rules returns the active economy rules.
func (s *Service) Rules() Rules { return s.rules }

// Today is the current calendar date in the economy timezone.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.now(), s.rules.Location)
}
