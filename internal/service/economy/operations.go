package economy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// FeedResult is the committed outcome of a feeding.
type FeedResult struct {
	Points    int
	Pet       domain.PetState
	LeveledUp bool
}

// PurchaseResult is the committed outcome of a purchase.
type PurchaseResult struct {
	Points int
	Pet    domain.PetState
	Item   domain.ShopItem
}

// DegenerationResult reports the pet after a degeneration check.
type DegenerationResult struct {
	Pet     domain.PetState
	Changed bool
}

// Feed spends Rules.FeedCost on feeding the pet. An insufficient local
// balance is rejected without calling the ledger.
func (m *Mirror) Feed(ctx context.Context) (res FeedResult, err error) {
	defer func() { m.finish(ctx, "feed", err) }()

	if err := m.ensureLoaded(ctx); err != nil {
		return FeedResult{}, fmt.Errorf("feed pet: %w", err)
	}
	cost := m.svc.rules.FeedCost

	m.mu.Lock()
	if m.points < cost {
		m.mu.Unlock()
		return FeedResult{}, fmt.Errorf("feed pet: need %d, have %d: %w", cost, m.points, domain.ErrInsufficientPoints)
	}
	if err := m.beginLocked(); err != nil {
		m.mu.Unlock()
		return FeedResult{}, fmt.Errorf("feed pet: %w", err)
	}
	next, leveledUp := m.pet.Fed(m.svc.Today())
	m.mu.Unlock()

	spent, spendErr := m.svc.ledger.SpendPoints(ctx, cost, domain.FeedReason, next)

	m.mu.Lock()
	m.busy = false
	if spendErr != nil {
		m.spends.abort(cost)
		m.unlockAndPublish()
		return FeedResult{}, fmt.Errorf("feed pet: %w", spendErr)
	}

	prev := m.visibleLocked()
	m.points = spent.NewPoints
	m.pet = next
	m.spends.commit(cost)
	if leveledUp {
		m.holdLocked(prev)
	}
	m.unlockAndPublish()

	if leveledUp {
		m.log.InfoContext(ctx, "pet leveled up", slog.Int("level", next.Level))
	}
	return FeedResult{Points: spent.NewPoints, Pet: next.Clone(), LeveledUp: leveledUp}, nil
}

// BuyItem purchases a shop item and adds it to the owned items.
func (m *Mirror) BuyItem(ctx context.Context, itemID string) (res PurchaseResult, err error) {
	defer func() { m.finish(ctx, "purchase", err) }()

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return PurchaseResult{}, domain.NewValidationError("item_id", "required")
	}
	item, err := m.svc.catalog.Item(itemID)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("buy item: %w", err)
	}
	if err := m.ensureLoaded(ctx); err != nil {
		return PurchaseResult{}, fmt.Errorf("buy item: %w", err)
	}

	m.mu.Lock()
	if m.pet.Owns(item.ID) {
		m.mu.Unlock()
		return PurchaseResult{}, fmt.Errorf("buy item %s: %w", item.ID, domain.ErrAlreadyOwned)
	}
	if m.points < item.Price {
		m.mu.Unlock()
		return PurchaseResult{}, fmt.Errorf("buy item %s: need %d, have %d: %w", item.ID, item.Price, m.points, domain.ErrInsufficientPoints)
	}
	if err := m.beginLocked(); err != nil {
		m.mu.Unlock()
		return PurchaseResult{}, fmt.Errorf("buy item: %w", err)
	}
	next := m.pet.WithItem(item.ID)
	m.mu.Unlock()

	spent, spendErr := m.svc.ledger.SpendPoints(ctx, item.Price, fmt.Sprintf(domain.PurchaseReasonFmt, item.Name), next)

	m.mu.Lock()
	m.busy = false
	if spendErr != nil {
		m.spends.abort(item.Price)
		m.unlockAndPublish()
		return PurchaseResult{}, fmt.Errorf("buy item %s: %w", item.ID, spendErr)
	}

	m.points = spent.NewPoints
	m.pet = m.pet.WithItem(item.ID)
	m.spends.commit(item.Price)
	pet := m.pet.Clone()
	m.unlockAndPublish()

	return PurchaseResult{Points: spent.NewPoints, Pet: pet, Item: item}, nil
}

// EquipItem sets the background to an owned item. An empty itemID restores
// the default background. No points change hands.
func (m *Mirror) EquipItem(ctx context.Context, itemID string) (pet domain.PetState, err error) {
	defer func() { m.finish(ctx, "equip", err) }()

	itemID = strings.TrimSpace(itemID)
	if err := m.ensureLoaded(ctx); err != nil {
		return domain.PetState{}, fmt.Errorf("equip item: %w", err)
	}

	m.mu.Lock()
	if itemID != "" && !m.pet.Owns(itemID) {
		m.mu.Unlock()
		return domain.PetState{}, fmt.Errorf("equip item %s: %w", itemID, domain.ErrNotOwned)
	}
	if m.pet.Background == itemID {
		pet := m.pet.Clone()
		m.mu.Unlock()
		return pet, nil
	}
	if err := m.beginLocked(); err != nil {
		m.mu.Unlock()
		return domain.PetState{}, fmt.Errorf("equip item: %w", err)
	}
	next := m.pet.Clone()
	next.Background = itemID
	m.mu.Unlock()

	return m.writePet(ctx, "equip item", next)
}

// CheckDegeneration applies the neglect penalty when the pet has not been
// fed for Rules.DegenerationDays calendar days. A second call on the same
// day changes nothing.
func (m *Mirror) CheckDegeneration(ctx context.Context) (res DegenerationResult, err error) {
	defer func() { m.finish(ctx, "degeneration", err) }()

	if err := m.ensureLoaded(ctx); err != nil {
		return DegenerationResult{}, fmt.Errorf("check degeneration: %w", err)
	}

	m.mu.Lock()
	next, neglect := m.pet.Degenerate(m.svc.Today(), m.svc.rules.DegenerationDays)
	if !neglect.Changed() {
		pet := m.pet.Clone()
		m.mu.Unlock()
		return DegenerationResult{Pet: pet}, nil
	}
	if err := m.beginLocked(); err != nil {
		m.mu.Unlock()
		return DegenerationResult{}, fmt.Errorf("check degeneration: %w", err)
	}
	prevLevel := m.pet.Level
	m.mu.Unlock()

	pet, err := m.writePet(ctx, "check degeneration", next)
	if err != nil {
		return DegenerationResult{}, err
	}
	if neglect == domain.NeglectPenalized {
		m.log.InfoContext(ctx, "pet degenerated", slog.Int("level", pet.Level), slog.Int("was", prevLevel))
	}
	return DegenerationResult{Pet: pet, Changed: true}, nil
}

// writePet persists next with a plain pet_data update. The caller must have
// marked the mirror busy.
func (m *Mirror) writePet(ctx context.Context, op string, next domain.PetState) (domain.PetState, error) {
	err := m.svc.ledger.UpdatePetData(ctx, m.studentID, next)

	m.mu.Lock()
	m.busy = false
	if err != nil {
		m.unlockAndPublish()
		return domain.PetState{}, fmt.Errorf("%s: %w", op, err)
	}
	m.pet = next
	m.unlockAndPublish()
	return next.Clone(), nil
}

// RewardComment claims the comment reward for postID. The balance change
// reaches the mirror through the ledger push, so local state is not touched
// here. The returned balance is nil when the ledger does not report one.
func (m *Mirror) RewardComment(ctx context.Context, postID string) (newPoints *int, err error) {
	defer func() { m.finish(ctx, "comment_reward", err) }()

	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, domain.NewValidationError("post_id", "required")
	}

	newPoints, err = m.svc.ledger.RewardComment(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("reward comment: %w", err)
	}
	return newPoints, nil
}
