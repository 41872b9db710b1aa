package notify

import (
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"sync"
)

var _ balance = &balanceMock{}

type balanceMock struct {
	ApplyDeltaFunc func(entry domain.LedgerEntry)

	calls struct {
		ApplyDelta []struct {
			Entry domain.LedgerEntry
		}
	}
	lockApplyDelta sync.RWMutex
}

func (mock *balanceMock) ApplyDelta(entry domain.LedgerEntry) {
	if mock.ApplyDeltaFunc == nil {
		panic("balanceMock.ApplyDeltaFunc: method is nil but balance.ApplyDelta was just called")
	}
	callInfo := struct {
		Entry domain.LedgerEntry
	}{Entry: entry}
	mock.lockApplyDelta.Lock()
	mock.calls.ApplyDelta = append(mock.calls.ApplyDelta, callInfo)
	mock.lockApplyDelta.Unlock()
	mock.ApplyDeltaFunc(entry)
}

func (mock *balanceMock) ApplyDeltaCalls() []struct {
	Entry domain.LedgerEntry
} {
	mock.lockApplyDelta.RLock()
	calls := mock.calls.ApplyDelta
	mock.lockApplyDelta.RUnlock()
	return calls
}
