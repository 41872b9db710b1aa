package economy

import (
	"context"
	"github.com/google/uuid"
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"sync"
)

var _ ledger = &ledgerMock{}

type ledgerMock struct {
	GetStudentFunc      func(ctx context.Context, id uuid.UUID) (domain.Student, error)
	SpendPointsFunc     func(ctx context.Context, amount int, reason string, pet domain.PetState) (domain.SpendResult, error)
	UpdatePetDataFunc   func(ctx context.Context, id uuid.UUID, pet domain.PetState) error
	RewardCommentFunc   func(ctx context.Context, postID string) (*int, error)
	IncrementPointsFunc func(ctx context.Context, studentID uuid.UUID, amount int, reason string) error

	calls struct {
		GetStudent []struct {
			Ctx context.Context
			ID  uuid.UUID
		}
		SpendPoints []struct {
			Ctx    context.Context
			Amount int
			Reason string
			Pet    domain.PetState
		}
		UpdatePetData []struct {
			Ctx context.Context
			ID  uuid.UUID
			Pet domain.PetState
		}
		RewardComment []struct {
			Ctx    context.Context
			PostID string
		}
		IncrementPoints []struct {
			Ctx       context.Context
			StudentID uuid.UUID
			Amount    int
			Reason    string
		}
	}
	lockGetStudent      sync.RWMutex
	lockSpendPoints     sync.RWMutex
	lockUpdatePetData   sync.RWMutex
	lockRewardComment   sync.RWMutex
	lockIncrementPoints sync.RWMutex
}

func (mock *ledgerMock) GetStudent(ctx context.Context, id uuid.UUID) (domain.Student, error) {
	if mock.GetStudentFunc == nil {
		panic("ledgerMock.GetStudentFunc: method is nil but ledger.GetStudent was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  uuid.UUID
	}{Ctx: ctx, ID: id}
	mock.lockGetStudent.Lock()
	mock.calls.GetStudent = append(mock.calls.GetStudent, callInfo)
	mock.lockGetStudent.Unlock()
	return mock.GetStudentFunc(ctx, id)
}

func (mock *ledgerMock) GetStudentCalls() []struct {
	Ctx context.Context
	ID  uuid.UUID
} {
	mock.lockGetStudent.RLock()
	calls := mock.calls.GetStudent
	mock.lockGetStudent.RUnlock()
	return calls
}

func (mock *ledgerMock) SpendPoints(ctx context.Context, amount int, reason string, pet domain.PetState) (domain.SpendResult, error) {
	if mock.SpendPointsFunc == nil {
		panic("ledgerMock.SpendPointsFunc: method is nil but ledger.SpendPoints was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Amount int
		Reason string
		Pet    domain.PetState
	}{Ctx: ctx, Amount: amount, Reason: reason, Pet: pet}
	mock.lockSpendPoints.Lock()
	mock.calls.SpendPoints = append(mock.calls.SpendPoints, callInfo)
	mock.lockSpendPoints.Unlock()
	return mock.SpendPointsFunc(ctx, amount, reason, pet)
}

func (mock *ledgerMock) SpendPointsCalls() []struct {
	Ctx    context.Context
	Amount int
	Reason string
	Pet    domain.PetState
} {
	mock.lockSpendPoints.RLock()
	calls := mock.calls.SpendPoints
	mock.lockSpendPoints.RUnlock()
	return calls
}

func (mock *ledgerMock) UpdatePetData(ctx context.Context, id uuid.UUID, pet domain.PetState) error {
	if mock.UpdatePetDataFunc == nil {
		panic("ledgerMock.UpdatePetDataFunc: method is nil but ledger.UpdatePetData was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  uuid.UUID
		Pet domain.PetState
	}{Ctx: ctx, ID: id, Pet: pet}
	mock.lockUpdatePetData.Lock()
	mock.calls.UpdatePetData = append(mock.calls.UpdatePetData, callInfo)
	mock.lockUpdatePetData.Unlock()
	return mock.UpdatePetDataFunc(ctx, id, pet)
}

func (mock *ledgerMock) UpdatePetDataCalls() []struct {
	Ctx context.Context
	ID  uuid.UUID
	Pet domain.PetState
} {
	mock.lockUpdatePetData.RLock()
	calls := mock.calls.UpdatePetData
	mock.lockUpdatePetData.RUnlock()
	return calls
}

func (mock *ledgerMock) RewardComment(ctx context.Context, postID string) (*int, error) {
	if mock.RewardCommentFunc == nil {
		panic("ledgerMock.RewardCommentFunc: method is nil but ledger.RewardComment was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		PostID string
	}{Ctx: ctx, PostID: postID}
	mock.lockRewardComment.Lock()
	mock.calls.RewardComment = append(mock.calls.RewardComment, callInfo)
	mock.lockRewardComment.Unlock()
	return mock.RewardCommentFunc(ctx, postID)
}

func (mock *ledgerMock) RewardCommentCalls() []struct {
	Ctx    context.Context
	PostID string
} {
	mock.lockRewardComment.RLock()
	calls := mock.calls.RewardComment
	mock.lockRewardComment.RUnlock()
	return calls
}

func (mock *ledgerMock) IncrementPoints(ctx context.Context, studentID uuid.UUID, amount int, reason string) error {
	if mock.IncrementPointsFunc == nil {
		panic("ledgerMock.IncrementPointsFunc: method is nil but ledger.IncrementPoints was just called")
	}
	callInfo := struct {
		Ctx       context.Context
		StudentID uuid.UUID
		Amount    int
		Reason    string
	}{Ctx: ctx, StudentID: studentID, Amount: amount, Reason: reason}
	mock.lockIncrementPoints.Lock()
	mock.calls.IncrementPoints = append(mock.calls.IncrementPoints, callInfo)
	mock.lockIncrementPoints.Unlock()
	return mock.IncrementPointsFunc(ctx, studentID, amount, reason)
}

func (mock *ledgerMock) IncrementPointsCalls() []struct {
	Ctx       context.Context
	StudentID uuid.UUID
	Amount    int
	Reason    string
} {
	mock.lockIncrementPoints.RLock()
	calls := mock.calls.IncrementPoints
	mock.lockIncrementPoints.RUnlock()
	return calls
}
