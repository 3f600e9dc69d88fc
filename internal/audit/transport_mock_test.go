package audit

import (
	"context"
	"sync"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ Transport = &TransportMock{}

type TransportMock struct {
	WriteFunc func(ctx context.Context, entries []domain.AuditEntry) error

	calls struct {
		Write []struct {
			Ctx     context.Context
			Entries []domain.AuditEntry
		}
	}
	lockWrite sync.RWMutex
}

func (mock *TransportMock) Write(ctx context.Context, entries []domain.AuditEntry) error {
	if mock.WriteFunc == nil {
		panic("TransportMock.WriteFunc: method is nil but Transport.Write was just called")
	}
	callInfo := struct {
		Ctx     context.Context
		Entries []domain.AuditEntry
	}{Ctx: ctx, Entries: append([]domain.AuditEntry(nil), entries...)}
	mock.lockWrite.Lock()
	mock.calls.Write = append(mock.calls.Write, callInfo)
	mock.lockWrite.Unlock()
	return mock.WriteFunc(ctx, entries)
}

func (mock *TransportMock) WriteCalls() []struct {
	Ctx     context.Context
	Entries []domain.AuditEntry
} {
	mock.lockWrite.RLock()
	calls := mock.calls.Write
	mock.lockWrite.RUnlock()
	return calls
}
