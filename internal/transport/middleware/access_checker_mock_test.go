package middleware

import (
	"context"
	"sync"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ accessChecker = &accessCheckerMock{}

type accessCheckerMock struct {
	CanFunc func(ctx context.Context, req domain.AccessRequest) domain.Decision

	calls struct {
		Can []struct {
			Ctx context.Context
			Req domain.AccessRequest
		}
	}
	lockCan sync.RWMutex
}

func (mock *accessCheckerMock) Can(ctx context.Context, req domain.AccessRequest) domain.Decision {
	if mock.CanFunc == nil {
		panic("accessCheckerMock.CanFunc: method is nil but accessChecker.Can was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Req domain.AccessRequest
	}{Ctx: ctx, Req: req}
	mock.lockCan.Lock()
	mock.calls.Can = append(mock.calls.Can, callInfo)
	mock.lockCan.Unlock()
	return mock.CanFunc(ctx, req)
}

func (mock *accessCheckerMock) CanCalls() []struct {
	Ctx context.Context
	Req domain.AccessRequest
} {
	mock.lockCan.RLock()
	defer mock.lockCan.RUnlock()
	return mock.calls.Can
}
