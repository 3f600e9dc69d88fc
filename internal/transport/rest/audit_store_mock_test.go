package rest

import (
	"context"
	"sync"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ auditStore = &auditStoreMock{}

type auditStoreMock struct {
	InsertFunc         func(ctx context.Context, entries []domain.AuditEntry) (int, error)
	ListByResourceFunc func(ctx context.Context, resourceType, resourceID string, limit int) ([]domain.AuditEntry, error)
	ListByUserFunc     func(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error)

	calls struct {
		Insert []struct {
			Entries []domain.AuditEntry
		}
		ListByUser []struct {
			UserID string
			Limit  int
			Offset int
		}
	}
	lock sync.RWMutex
}

func (mock *auditStoreMock) Insert(ctx context.Context, entries []domain.AuditEntry) (int, error) {
	if mock.InsertFunc == nil {
		panic("auditStoreMock.InsertFunc: method is nil but auditStore.Insert was just called")
	}
	mock.lock.Lock()
	mock.calls.Insert = append(mock.calls.Insert, struct {
		Entries []domain.AuditEntry
	}{entries})
	mock.lock.Unlock()
	return mock.InsertFunc(ctx, entries)
}

func (mock *auditStoreMock) InsertCalls() []struct {
	Entries []domain.AuditEntry
} {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.Insert
}

func (mock *auditStoreMock) ListByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]domain.AuditEntry, error) {
	if mock.ListByResourceFunc == nil {
		panic("auditStoreMock.ListByResourceFunc: method is nil but auditStore.ListByResource was just called")
	}
	return mock.ListByResourceFunc(ctx, resourceType, resourceID, limit)
}

func (mock *auditStoreMock) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error) {
	if mock.ListByUserFunc == nil {
		panic("auditStoreMock.ListByUserFunc: method is nil but auditStore.ListByUser was just called")
	}
	mock.lock.Lock()
	mock.calls.ListByUser = append(mock.calls.ListByUser, struct {
		UserID string
		Limit  int
		Offset int
	}{userID, limit, offset})
	mock.lock.Unlock()
	return mock.ListByUserFunc(ctx, userID, limit, offset)
}

func (mock *auditStoreMock) ListByUserCalls() []struct {
	UserID string
	Limit  int
	Offset int
} {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.ListByUser
}
