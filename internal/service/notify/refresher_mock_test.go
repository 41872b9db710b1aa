package notify

import (
	"context"
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"sync"
)

var _ Refresher = &RefresherMock{}

type RefresherMock struct {
	RefreshFunc func(ctx context.Context, kind domain.RefreshKind)

	calls struct {
		Refresh []struct {
			Ctx  context.Context
			Kind domain.RefreshKind
		}
	}
	lockRefresh sync.RWMutex
}

func (mock *RefresherMock) Refresh(ctx context.Context, kind domain.RefreshKind) {
	if mock.RefreshFunc == nil {
		panic("RefresherMock.RefreshFunc: method is nil but Refresher.Refresh was just called")
	}
	callInfo := struct {
		Ctx  context.Context
		Kind domain.RefreshKind
	}{Ctx: ctx, Kind: kind}
	mock.lockRefresh.Lock()
	mock.calls.Refresh = append(mock.calls.Refresh, callInfo)
	mock.lockRefresh.Unlock()
	mock.RefreshFunc(ctx, kind)
}

func (mock *RefresherMock) RefreshCalls() []struct {
	Ctx  context.Context
	Kind domain.RefreshKind
} {
	mock.lockRefresh.RLock()
	calls := mock.calls.Refresh
	mock.lockRefresh.RUnlock()
	return calls
}
