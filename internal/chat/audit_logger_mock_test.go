package chat

import (
	"context"
	"sync"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ auditLogger = &auditLoggerMock{}

type auditLoggerMock struct {
	MessageEventFunc func(ctx context.Context, typ domain.EventType, threadID, messageID string, role domain.MessageRole, v *domain.Verdict)
	ThreadEventFunc  func(ctx context.Context, typ domain.EventType, threadID string, prev, next any, meta map[string]any)
	DataAccessFunc   func(ctx context.Context, typ domain.EventType, resourceType, resourceID string, outcome domain.Outcome, meta map[string]any)

	calls struct {
		MessageEvent []struct {
			Typ       domain.EventType
			ThreadID  string
			MessageID string
			Role      domain.MessageRole
			V         *domain.Verdict
		}
		ThreadEvent []struct {
			Typ      domain.EventType
			ThreadID string
			Prev     any
			Next     any
			Meta     map[string]any
		}
		DataAccess []struct {
			Typ          domain.EventType
			ResourceType string
			ResourceID   string
			Outcome      domain.Outcome
			Meta         map[string]any
		}
	}
	lockMessageEvent sync.RWMutex
	lockThreadEvent  sync.RWMutex
	lockDataAccess   sync.RWMutex
}

func (mock *auditLoggerMock) MessageEvent(ctx context.Context, typ domain.EventType, threadID, messageID string, role domain.MessageRole, v *domain.Verdict) {
	if mock.MessageEventFunc == nil {
		panic("auditLoggerMock.MessageEventFunc: method is nil but auditLogger.MessageEvent was just called")
	}
	callInfo := struct {
		Typ       domain.EventType
		ThreadID  string
		MessageID string
		Role      domain.MessageRole
		V         *domain.Verdict
	}{Typ: typ, ThreadID: threadID, MessageID: messageID, Role: role, V: v}
	mock.lockMessageEvent.Lock()
	mock.calls.MessageEvent = append(mock.calls.MessageEvent, callInfo)
	mock.lockMessageEvent.Unlock()
	mock.MessageEventFunc(ctx, typ, threadID, messageID, role, v)
}

func (mock *auditLoggerMock) MessageEventCalls() []struct {
	Typ       domain.EventType
	ThreadID  string
	MessageID string
	Role      domain.MessageRole
	V         *domain.Verdict
} {
	mock.lockMessageEvent.RLock()
	calls := mock.calls.MessageEvent
	mock.lockMessageEvent.RUnlock()
	return calls
}

func (mock *auditLoggerMock) ThreadEvent(ctx context.Context, typ domain.EventType, threadID string, prev, next any, meta map[string]any) {
	if mock.ThreadEventFunc == nil {
		panic("auditLoggerMock.ThreadEventFunc: method is nil but auditLogger.ThreadEvent was just called")
	}
	callInfo := struct {
		Typ      domain.EventType
		ThreadID string
		Prev     any
		Next     any
		Meta     map[string]any
	}{Typ: typ, ThreadID: threadID, Prev: prev, Next: next, Meta: meta}
	mock.lockThreadEvent.Lock()
	mock.calls.ThreadEvent = append(mock.calls.ThreadEvent, callInfo)
	mock.lockThreadEvent.Unlock()
	mock.ThreadEventFunc(ctx, typ, threadID, prev, next, meta)
}

func (mock *auditLoggerMock) ThreadEventCalls() []struct {
	Typ      domain.EventType
	ThreadID string
	Prev     any
	Next     any
	Meta     map[string]any
} {
	mock.lockThreadEvent.RLock()
	calls := mock.calls.ThreadEvent
	mock.lockThreadEvent.RUnlock()
	return calls
}

func (mock *auditLoggerMock) DataAccess(ctx context.Context, typ domain.EventType, resourceType, resourceID string, outcome domain.Outcome, meta map[string]any) {
	if mock.DataAccessFunc == nil {
		panic("auditLoggerMock.DataAccessFunc: method is nil but auditLogger.DataAccess was just called")
	}
	callInfo := struct {
		Typ          domain.EventType
		ResourceType string
		ResourceID   string
		Outcome      domain.Outcome
		Meta         map[string]any
	}{Typ: typ, ResourceType: resourceType, ResourceID: resourceID, Outcome: outcome, Meta: meta}
	mock.lockDataAccess.Lock()
	mock.calls.DataAccess = append(mock.calls.DataAccess, callInfo)
	mock.lockDataAccess.Unlock()
	mock.DataAccessFunc(ctx, typ, resourceType, resourceID, outcome, meta)
}

func (mock *auditLoggerMock) DataAccessCalls() []struct {
	Typ          domain.EventType
	ResourceType string
	ResourceID   string
	Outcome      domain.Outcome
	Meta         map[string]any
} {
	mock.lockDataAccess.RLock()
	calls := mock.calls.DataAccess
	mock.lockDataAccess.RUnlock()
	return calls
}

