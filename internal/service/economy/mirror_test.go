package economy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/hideout-backend/internal/config"
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var (
	kst      = time.FixedZone("KST", 9*60*60)
	testNow  = time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC) // 2025-03-11 in KST
	testDay  = domain.NewDate(2025, 3, 11)
	testItem = domain.ShopItem{ID: "bg_forest", Name: "숲속 아지트", Kind: domain.ItemKindBackground, Price: 100}
)

type catalogStub map[string]domain.ShopItem

func (c catalogStub) Item(id string) (domain.ShopItem, error) {
	it, ok := c[id]
	if !ok {
		return domain.ShopItem{}, fmt.Errorf("shop item %s: %w", id, domain.ErrNotFound)
	}
	return it, nil
}

func newTestService(l ledger, delay time.Duration) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, l, catalogStub{testItem.ID: testItem}, Rules{
		FeedCost:         10,
		DegenerationDays: 3,
		LevelUpDelay:     delay,
		Location:         kst,
	}, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func studentLedger(id uuid.UUID, points int, pet domain.PetState) *ledgerMock {
	return &ledgerMock{
		GetStudentFunc: func(_ context.Context, got uuid.UUID) (domain.Student, error) {
			return domain.Student{ID: got, Name: "민지", TotalPoints: points, Pet: pet}, nil
		},
	}
}

func loadedMirror(t *testing.T, l *ledgerMock, svc *Service, id uuid.UUID, opts ...MirrorOption) *Mirror {
	t.Helper()
	m := svc.NewMirror(id, opts...)
	require.NoError(t, m.Refresh(context.Background()))
	t.Cleanup(m.Close)
	return m
}

func pet(level, exp int) domain.PetState {
	p := domain.DefaultPet()
	p.Level = level
	p.Exp = exp
	p.LastFed = testDay.AddDays(-1)
	return p
}

// ---------------------------------------------------------------------------
// Feed
// ---------------------------------------------------------------------------

func TestMirror_Feed_UsesServerBalance(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 50, pet(1, 40))
	l.SpendPointsFunc = func(_ context.Context, amount int, reason string, p domain.PetState) (domain.SpendResult, error) {
		assert.Equal(t, 10, amount)
		assert.Equal(t, domain.FeedReason, reason)
		assert.Equal(t, 60, p.Exp)
		assert.True(t, p.LastFed.Equal(testDay))
		return domain.SpendResult{NewPoints: 37}, nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	res, err := m.Feed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 37, res.Points)
	assert.False(t, res.LeveledUp)
	snap := m.Snapshot()
	assert.Equal(t, 37, snap.Points)
	assert.Equal(t, 60, snap.Pet.Exp)
	assert.Len(t, l.SpendPointsCalls(), 1)
}

func TestMirror_Feed_InsufficientPoints_NoRPC(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 9, pet(2, 50))
	m := loadedMirror(t, l, newTestService(l, 0), id)
	before := m.Snapshot()

	_, err := m.Feed(context.Background())

	require.ErrorIs(t, err, domain.ErrInsufficientPoints)
	assert.Empty(t, l.SpendPointsCalls())
	assert.Equal(t, before, m.Snapshot())
}

func TestMirror_Feed_RejectedLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	for _, kind := range []error{domain.ErrInsufficientPoints, domain.ErrForbidden, domain.ErrUnavailable} {
		t.Run(kind.Error(), func(t *testing.T) {
			t.Parallel()

			id := uuid.New()
			l := studentLedger(id, 100, pet(2, 50))
			l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
				return domain.SpendResult{}, &domain.UpstreamError{Kind: kind, Message: "rejected"}
			}
			m := loadedMirror(t, l, newTestService(l, 0), id)
			before := m.Snapshot()

			_, err := m.Feed(context.Background())

			require.ErrorIs(t, err, kind)
			assert.Equal(t, before, m.Snapshot())
		})
	}
}

func TestMirror_Feed_LevelUpRollover(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(2, 90))
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		return domain.SpendResult{NewPoints: 90}, nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	res, err := m.Feed(context.Background())
	require.NoError(t, err)

	assert.True(t, res.LeveledUp)
	assert.Equal(t, 3, res.Pet.Level)
	assert.Equal(t, 10, res.Pet.Exp)
	assert.Equal(t, 3, m.Snapshot().Pet.Level)
}

func TestMirror_Feed_LevelCapClamps(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(5, 90))
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		return domain.SpendResult{NewPoints: 90}, nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	res, err := m.Feed(context.Background())
	require.NoError(t, err)

	assert.False(t, res.LeveledUp)
	assert.Equal(t, 5, res.Pet.Level)
	assert.Equal(t, 100, res.Pet.Exp)
}

func TestMirror_Feed_LevelUpDelaysVisibleState(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(2, 90))
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		return domain.SpendResult{NewPoints: 90}, nil
	}

	var mu sync.Mutex
	var seen []Snapshot
	m := loadedMirror(t, l, newTestService(l, 80*time.Millisecond), id, WithObserver(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	_, err := m.Feed(context.Background())
	require.NoError(t, err)

	held := m.Snapshot()
	assert.Equal(t, 2, held.Pet.Level, "previous state stays visible during the delay")
	assert.Equal(t, 100, held.Points)

	assert.Eventually(t, func() bool {
		s := m.Snapshot()
		return s.Pet.Level == 3 && s.Points == 90
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, 3, seen[len(seen)-1].Pet.Level)
}

func TestMirror_Feed_OpsUseCommittedStateDuringDelay(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(2, 90))
	balance := 100
	var fedLevels []int
	l.SpendPointsFunc = func(_ context.Context, amount int, _ string, p domain.PetState) (domain.SpendResult, error) {
		balance -= amount
		fedLevels = append(fedLevels, p.Level)
		return domain.SpendResult{NewPoints: balance}, nil
	}
	m := loadedMirror(t, l, newTestService(l, time.Hour), id)

	_, err := m.Feed(context.Background())
	require.NoError(t, err)
	res, err := m.Feed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3}, fedLevels)
	assert.Equal(t, 30, res.Pet.Exp)
}

func TestMirror_Feed_Busy(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(1, 0))
	entered := make(chan struct{})
	release := make(chan struct{})
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		close(entered)
		<-release
		return domain.SpendResult{NewPoints: 90}, nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	done := make(chan error, 1)
	go func() {
		_, err := m.Feed(context.Background())
		done <- err
	}()
	<-entered

	assert.True(t, m.Snapshot().Busy)
	_, err := m.Feed(context.Background())
	require.ErrorIs(t, err, domain.ErrBusy)
	_, err = m.BuyItem(context.Background(), testItem.ID)
	require.ErrorIs(t, err, domain.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, m.Snapshot().Busy)
	assert.Len(t, l.SpendPointsCalls(), 1)
}

func TestMirror_Feed_LoadsOnDemand(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 30, pet(1, 0))
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		return domain.SpendResult{NewPoints: 20}, nil
	}
	m := newTestService(l, 0).NewMirror(id)

	_, err := m.Feed(context.Background())
	require.NoError(t, err)
	assert.Len(t, l.GetStudentCalls(), 1)
	assert.Equal(t, 20, m.Snapshot().Points)
}

// ---------------------------------------------------------------------------
// BuyItem / EquipItem
// ---------------------------------------------------------------------------

func TestMirror_BuyItem(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 150, pet(1, 0))
	l.SpendPointsFunc = func(_ context.Context, amount int, reason string, p domain.PetState) (domain.SpendResult, error) {
		assert.Equal(t, 100, amount)
		assert.Equal(t, "아지트 아이템 구매: 숲속 아지트", reason)
		assert.Equal(t, []string{"bg_forest"}, p.OwnedItems)
		return domain.SpendResult{NewPoints: 50}, nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	res, err := m.BuyItem(context.Background(), "bg_forest")
	require.NoError(t, err)

	assert.Equal(t, 50, res.Points)
	assert.True(t, m.Snapshot().Pet.Owns("bg_forest"))
}

func TestMirror_BuyItem_Guards(t *testing.T) {
	t.Parallel()

	owned := pet(1, 0)
	owned.OwnedItems = []string{"bg_forest"}

	tests := []struct {
		name    string
		points  int
		pet     domain.PetState
		itemID  string
		wantErr error
	}{
		{"already owned", 500, owned, "bg_forest", domain.ErrAlreadyOwned},
		{"insufficient", 99, pet(1, 0), "bg_forest", domain.ErrInsufficientPoints},
		{"unknown item", 500, pet(1, 0), "bg_moon", domain.ErrNotFound},
		{"empty id", 500, pet(1, 0), " ", domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id := uuid.New()
			l := studentLedger(id, tt.points, tt.pet)
			m := loadedMirror(t, l, newTestService(l, 0), id)
			before := m.Snapshot()

			_, err := m.BuyItem(context.Background(), tt.itemID)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, l.SpendPointsCalls())
			assert.Equal(t, before, m.Snapshot())
		})
	}
}

func TestMirror_BuyItem_ServerSaysOwned(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 500, pet(1, 0))
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		return domain.SpendResult{}, &domain.UpstreamError{Kind: domain.ErrAlreadyOwned, Message: "이미 보유한 아이템"}
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	_, err := m.BuyItem(context.Background(), "bg_forest")

	require.ErrorIs(t, err, domain.ErrAlreadyOwned)
	assert.Equal(t, 500, m.Snapshot().Points)
	assert.False(t, m.Snapshot().Pet.Owns("bg_forest"))
}

func TestMirror_EquipItem(t *testing.T) {
	t.Parallel()

	p := pet(1, 0)
	p.OwnedItems = []string{"bg_forest"}

	id := uuid.New()
	l := studentLedger(id, 0, p)
	l.UpdatePetDataFunc = func(_ context.Context, got uuid.UUID, next domain.PetState) error {
		assert.Equal(t, id, got)
		return nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	got, err := m.EquipItem(context.Background(), "bg_forest")
	require.NoError(t, err)
	assert.Equal(t, "bg_forest", got.Background)
	assert.Equal(t, "bg_forest", m.Snapshot().Pet.Background)

	// Equipping the current background is a no-op.
	_, err = m.EquipItem(context.Background(), "bg_forest")
	require.NoError(t, err)
	assert.Len(t, l.UpdatePetDataCalls(), 1)

	// Empty id restores the default background.
	got, err = m.EquipItem(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got.Background)
	assert.Len(t, l.UpdatePetDataCalls(), 2)
}

func TestMirror_EquipItem_NotOwned(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 0, pet(1, 0))
	m := loadedMirror(t, l, newTestService(l, 0), id)

	_, err := m.EquipItem(context.Background(), "bg_forest")

	require.ErrorIs(t, err, domain.ErrNotOwned)
	assert.Empty(t, l.UpdatePetDataCalls())
}

func TestMirror_EquipItem_WriteFails(t *testing.T) {
	t.Parallel()

	p := pet(1, 0)
	p.OwnedItems = []string{"bg_forest"}
	id := uuid.New()
	l := studentLedger(id, 0, p)
	l.UpdatePetDataFunc = func(context.Context, uuid.UUID, domain.PetState) error {
		return domain.ErrForbidden
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	_, err := m.EquipItem(context.Background(), "bg_forest")

	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, m.Snapshot().Pet.Background)
	assert.False(t, m.Snapshot().Busy)
}

// ---------------------------------------------------------------------------
// CheckDegeneration
// ---------------------------------------------------------------------------

func TestMirror_CheckDegeneration_Idempotent(t *testing.T) {
	t.Parallel()

	p := pet(3, 40)
	p.LastFed = testDay.AddDays(-3)

	id := uuid.New()
	l := studentLedger(id, 0, p)
	l.UpdatePetDataFunc = func(context.Context, uuid.UUID, domain.PetState) error { return nil }
	m := loadedMirror(t, l, newTestService(l, 0), id)

	first, err := m.CheckDegeneration(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, 2, first.Pet.Level)
	assert.Equal(t, 0, first.Pet.Exp)
	assert.True(t, first.Pet.LastFed.Equal(testDay))

	second, err := m.CheckDegeneration(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Pet, second.Pet)
	assert.Len(t, l.UpdatePetDataCalls(), 1)
}

func TestMirror_CheckDegeneration_UnderThreshold(t *testing.T) {
	t.Parallel()

	p := pet(3, 40)
	p.LastFed = testDay.AddDays(-2)

	id := uuid.New()
	l := studentLedger(id, 0, p)
	m := loadedMirror(t, l, newTestService(l, 0), id)

	res, err := m.CheckDegeneration(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 3, res.Pet.Level)
}

// ---------------------------------------------------------------------------
// ApplyDelta / Refresh
// ---------------------------------------------------------------------------

func TestMirror_ApplyDelta(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(1, 0))
	m := loadedMirror(t, l, newTestService(l, 0), id)

	m.ApplyDelta(domain.LedgerEntry{ID: "1", Amount: 30, Reason: "글 승인 보상"})
	m.ApplyDelta(domain.LedgerEntry{ID: "2", Amount: 0, Reason: "audit"})
	m.ApplyDelta(domain.LedgerEntry{ID: "3", Amount: -5, Reason: "벌점"})

	assert.Equal(t, 125, m.Snapshot().Points)
}

func TestMirror_ApplyDelta_IgnoredBeforeLoad(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(1, 0))
	m := newTestService(l, 0).NewMirror(id)

	m.ApplyDelta(domain.LedgerEntry{ID: "1", Amount: 30})
	assert.Equal(t, 0, m.Snapshot().Points)
	assert.False(t, m.Snapshot().Loaded)
}

func TestMirror_ApplyDelta_OwnSpendPushAfterResponse(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(1, 0))
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		return domain.SpendResult{NewPoints: 90}, nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	_, err := m.Feed(context.Background())
	require.NoError(t, err)
	m.ApplyDelta(domain.LedgerEntry{ID: "f1", Amount: -10, Reason: domain.FeedReason})

	assert.Equal(t, 90, m.Snapshot().Points)

	// A later feed from another device is applied.
	m.ApplyDelta(domain.LedgerEntry{ID: "f2", Amount: -10, Reason: domain.FeedReason})
	assert.Equal(t, 80, m.Snapshot().Points)
}

func TestMirror_ApplyDelta_OwnSpendPushBeforeResponse(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(1, 0))
	var m *Mirror
	l.SpendPointsFunc = func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
		m.ApplyDelta(domain.LedgerEntry{ID: "f1", Amount: -10, Reason: domain.FeedReason})
		assert.Equal(t, 90, m.Snapshot().Points)
		return domain.SpendResult{NewPoints: 90}, nil
	}
	m = loadedMirror(t, l, newTestService(l, 0), id)

	_, err := m.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90, m.Snapshot().Points)

	m.ApplyDelta(domain.LedgerEntry{ID: "f2", Amount: -10, Reason: domain.FeedReason})
	assert.Equal(t, 80, m.Snapshot().Points)
}

func TestMirror_Refresh_OverridesOptimisticDelta(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(1, 0))
	m := loadedMirror(t, l, newTestService(l, 0), id)

	m.ApplyDelta(domain.LedgerEntry{ID: "1", Amount: 30})
	require.Equal(t, 130, m.Snapshot().Points)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, 100, m.Snapshot().Points)
}

func TestMirror_Resync_ForgetsPushesLostInGap(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	server := 100
	l := &ledgerMock{
		GetStudentFunc: func(_ context.Context, got uuid.UUID) (domain.Student, error) {
			return domain.Student{ID: got, TotalPoints: server, Pet: pet(1, 0)}, nil
		},
		SpendPointsFunc: func(context.Context, int, string, domain.PetState) (domain.SpendResult, error) {
			server -= 10
			return domain.SpendResult{NewPoints: server}, nil
		},
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	// The feed settles but its push is lost while the stream is down.
	_, err := m.Feed(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Resync(context.Background()))
	assert.Equal(t, 90, m.Snapshot().Points)

	// A feed from another device after the gap must not be taken for ours.
	server -= 10
	m.ApplyDelta(domain.LedgerEntry{ID: "other", Amount: -10, Reason: domain.FeedReason})
	assert.Equal(t, 80, m.Snapshot().Points)
}

func TestMirror_Refresh_Error(t *testing.T) {
	t.Parallel()

	l := &ledgerMock{
		GetStudentFunc: func(context.Context, uuid.UUID) (domain.Student, error) {
			return domain.Student{}, errors.Join(domain.ErrUnavailable, errors.New("dial tcp"))
		},
	}
	m := newTestService(l, 0).NewMirror(uuid.New())

	err := m.Refresh(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.False(t, m.Snapshot().Loaded)
}

// ---------------------------------------------------------------------------
// RewardComment / GrantPoints
// ---------------------------------------------------------------------------

func TestMirror_RewardComment(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	l := studentLedger(id, 100, pet(1, 0))
	reported := 105
	l.RewardCommentFunc = func(_ context.Context, postID string) (*int, error) {
		assert.Equal(t, "p-1", postID)
		return &reported, nil
	}
	m := loadedMirror(t, l, newTestService(l, 0), id)

	got, err := m.RewardComment(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 105, *got)
	assert.Equal(t, 100, m.Snapshot().Points, "balance arrives with the ledger push")

	_, err = m.RewardComment(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_GrantPoints(t *testing.T) {
	t.Parallel()

	studentID := uuid.New()
	teacherCtx := ctxutil.WithRole(context.Background(), string(domain.RoleTeacher))
	studentCtx := ctxutil.WithRole(context.Background(), string(domain.RoleStudent))

	tests := []struct {
		name    string
		ctx     context.Context
		in      GrantInput
		wantErr error
		reason  string
	}{
		{"teacher grant", teacherCtx, GrantInput{StudentID: studentID, Amount: 50, Reason: " 발표 보상 "}, nil, "발표 보상"},
		{"default reason", teacherCtx, GrantInput{StudentID: studentID, Amount: -20}, nil, defaultGrantLabel},
		{"student forbidden", studentCtx, GrantInput{StudentID: studentID, Amount: 50}, domain.ErrForbidden, ""},
		{"zero amount", teacherCtx, GrantInput{StudentID: studentID}, domain.ErrValidation, ""},
		{"too large", teacherCtx, GrantInput{StudentID: studentID, Amount: 10001}, domain.ErrValidation, ""},
		{"missing student", teacherCtx, GrantInput{Amount: 5}, domain.ErrValidation, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := &ledgerMock{
				IncrementPointsFunc: func(_ context.Context, id uuid.UUID, amount int, reason string) error {
					assert.Equal(t, studentID, id)
					assert.Equal(t, tt.in.Amount, amount)
					assert.Equal(t, tt.reason, reason)
					return nil
				},
			}
			err := newTestService(l, 0).GrantPoints(tt.ctx, tt.in)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, l.IncrementPointsCalls())
				return
			}
			require.NoError(t, err)
			assert.Len(t, l.IncrementPointsCalls(), 1)
		})
	}
}

func TestRulesFromConfig_DefaultsLocation(t *testing.T) {
	t.Parallel()

	r := RulesFromConfig(configWithoutLocation())
	assert.Equal(t, time.UTC, r.Location)
	assert.Equal(t, 10, r.FeedCost)
}

func configWithoutLocation() config.EconomyConfig {
	return config.EconomyConfig{FeedCost: 10, DegenerationDays: 3}
}
