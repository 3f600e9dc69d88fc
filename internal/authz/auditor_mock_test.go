package authz

import (
	"context"
	"sync"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ decisionAuditor = &decisionAuditorMock{}

type decisionAuditorMock struct {
	AccessDecisionFunc func(ctx context.Context, req domain.AccessRequest, d domain.Decision)

	calls struct {
		AccessDecision []struct {
			Ctx context.Context
			Req domain.AccessRequest
			D   domain.Decision
		}
	}
	lockAccessDecision sync.RWMutex
}

func (mock *decisionAuditorMock) AccessDecision(ctx context.Context, req domain.AccessRequest, d domain.Decision) {
	if mock.AccessDecisionFunc == nil {
		panic("decisionAuditorMock.AccessDecisionFunc: method is nil but decisionAuditor.AccessDecision was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Req domain.AccessRequest
		D   domain.Decision
	}{Ctx: ctx, Req: req, D: d}
	mock.lockAccessDecision.Lock()
	mock.calls.AccessDecision = append(mock.calls.AccessDecision, callInfo)
	mock.lockAccessDecision.Unlock()
	mock.AccessDecisionFunc(ctx, req, d)
}

func (mock *decisionAuditorMock) AccessDecisionCalls() []struct {
	Ctx context.Context
	Req domain.AccessRequest
	D   domain.Decision
} {
	mock.lockAccessDecision.RLock()
	calls := mock.calls.AccessDecision
	mock.lockAccessDecision.RUnlock()
	return calls
}
