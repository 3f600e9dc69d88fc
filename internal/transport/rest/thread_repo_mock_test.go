package rest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ threadRepo = &threadRepoMock{}

type threadRepoMock struct {
	SaveThreadsFunc func(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread) error
	ListThreadsFunc func(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.ThreadPage, error)
	ArchiveFunc     func(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread, at time.Time) error

	calls struct {
		SaveThreads []struct {
			OwnerID uuid.UUID
			Threads []domain.Thread
		}
		ListThreads []struct {
			OwnerID uuid.UUID
			Page    int
			Limit   int
		}
		Archive []struct {
			OwnerID uuid.UUID
			Threads []domain.Thread
			At      time.Time
		}
	}
	lock sync.RWMutex
}

func (mock *threadRepoMock) SaveThreads(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread) error {
	if mock.SaveThreadsFunc == nil {
		panic("threadRepoMock.SaveThreadsFunc: method is nil but threadRepo.SaveThreads was just called")
	}
	mock.lock.Lock()
	mock.calls.SaveThreads = append(mock.calls.SaveThreads, struct {
		OwnerID uuid.UUID
		Threads []domain.Thread
	}{ownerID, threads})
	mock.lock.Unlock()
	return mock.SaveThreadsFunc(ctx, ownerID, threads)
}

func (mock *threadRepoMock) SaveThreadsCalls() []struct {
	OwnerID uuid.UUID
	Threads []domain.Thread
} {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.SaveThreads
}

func (mock *threadRepoMock) ListThreads(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.ThreadPage, error) {
	if mock.ListThreadsFunc == nil {
		panic("threadRepoMock.ListThreadsFunc: method is nil but threadRepo.ListThreads was just called")
	}
	mock.lock.Lock()
	mock.calls.ListThreads = append(mock.calls.ListThreads, struct {
		OwnerID uuid.UUID
		Page    int
		Limit   int
	}{ownerID, page, limit})
	mock.lock.Unlock()
	return mock.ListThreadsFunc(ctx, ownerID, page, limit)
}

func (mock *threadRepoMock) ListThreadsCalls() []struct {
	OwnerID uuid.UUID
	Page    int
	Limit   int
} {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.ListThreads
}

func (mock *threadRepoMock) Archive(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread, at time.Time) error {
	if mock.ArchiveFunc == nil {
		panic("threadRepoMock.ArchiveFunc: method is nil but threadRepo.Archive was just called")
	}
	mock.lock.Lock()
	mock.calls.Archive = append(mock.calls.Archive, struct {
		OwnerID uuid.UUID
		Threads []domain.Thread
		At      time.Time
	}{ownerID, threads, at})
	mock.lock.Unlock()
	return mock.ArchiveFunc(ctx, ownerID, threads, at)
}

func (mock *threadRepoMock) ArchiveCalls() []struct {
	OwnerID uuid.UUID
	Threads []domain.Thread
	At      time.Time
} {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.Archive
}
