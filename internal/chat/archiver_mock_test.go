package chat

import (
	"context"
	"sync"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var _ Archiver = &ArchiverMock{}

type ArchiverMock struct {
	ArchiveFunc func(ctx context.Context, threads []domain.Thread) error

	calls struct {
		Archive []struct {
			Threads []domain.Thread
		}
	}
	lockArchive sync.RWMutex
}

func (mock *ArchiverMock) Archive(ctx context.Context, threads []domain.Thread) error {
	if mock.ArchiveFunc == nil {
		panic("ArchiverMock.ArchiveFunc: method is nil but Archiver.Archive was just called")
	}
	mock.lockArchive.Lock()
	mock.calls.Archive = append(mock.calls.Archive, struct{ Threads []domain.Thread }{Threads: threads})
	mock.lockArchive.Unlock()
	return mock.ArchiveFunc(ctx, threads)
}

func (mock *ArchiverMock) ArchiveCalls() []struct {
	Threads []domain.Thread
} {
	mock.lockArchive.RLock()
	calls := mock.calls.Archive
	mock.lockArchive.RUnlock()
	return calls
}
