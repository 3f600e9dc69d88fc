package chat

import (
	"context"
	"sync"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ Persister = &PersisterMock{}

type PersisterMock struct {
	SaveThreadsFunc func(ctx context.Context, threads []domain.Thread) error
	LoadThreadsFunc func(ctx context.Context, page, limit int) (domain.ThreadPage, error)

	calls struct {
		SaveThreads []struct {
			Threads []domain.Thread
		}
		LoadThreads []struct {
			Page  int
			Limit int
		}
	}
	lockSaveThreads sync.RWMutex
	lockLoadThreads sync.RWMutex
}

func (mock *PersisterMock) SaveThreads(ctx context.Context, threads []domain.Thread) error {
	if mock.SaveThreadsFunc == nil {
		panic("PersisterMock.SaveThreadsFunc: method is nil but Persister.SaveThreads was just called")
	}
	mock.lockSaveThreads.Lock()
	mock.calls.SaveThreads = append(mock.calls.SaveThreads, struct{ Threads []domain.Thread }{Threads: threads})
	mock.lockSaveThreads.Unlock()
	return mock.SaveThreadsFunc(ctx, threads)
}

func (mock *PersisterMock) SaveThreadsCalls() []struct {
	Threads []domain.Thread
} {
	mock.lockSaveThreads.RLock()
	calls := mock.calls.SaveThreads
	mock.lockSaveThreads.RUnlock()
	return calls
}

func (mock *PersisterMock) LoadThreads(ctx context.Context, page, limit int) (domain.ThreadPage, error) {
	if mock.LoadThreadsFunc == nil {
		panic("PersisterMock.LoadThreadsFunc: method is nil but Persister.LoadThreads was just called")
	}
	mock.lockLoadThreads.Lock()
	mock.calls.LoadThreads = append(mock.calls.LoadThreads, struct {
		Page  int
		Limit int
	}{Page: page, Limit: limit})
	mock.lockLoadThreads.Unlock()
	return mock.LoadThreadsFunc(ctx, page, limit)
}

func (mock *PersisterMock) LoadThreadsCalls() []struct {
	Page  int
	Limit int
} {
	mock.lockLoadThreads.RLock()
	calls := mock.calls.LoadThreads
	mock.lockLoadThreads.RUnlock()
	return calls
}

