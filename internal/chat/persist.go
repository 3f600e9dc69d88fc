package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/heartmarshall/labassist-backend/internal/backoff"
	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/metrics"
)

// Save mirrors the current thread set to the remote persister through the
// save limiter and to the local persister. It reports whether the remote
// save succeeded. A failed save never changes in-memory state.
func (s *Store) Save(ctx context.Context) bool {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.dirty = false
	s.mu.Unlock()

	if s.local != nil {
		if err := s.local.SaveThreads(ctx, snapshot); err != nil {
			s.log.WarnContext(ctx, "local snapshot failed", slog.String("error", err.Error()))
		}
	}
	if s.remote == nil {
		return false
	}

	_, ok := backoff.Do(ctx, s.saveLimiter, "save threads", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.remote.SaveThreads(ctx, snapshot)
	})
	if !ok {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		s.audit.DataAccess(ctx, domain.EventDataPersistFailed, "thread", "", domain.OutcomeFailure,
			map[string]any{"operation": "save", "threadCount": len(snapshot)})
		return false
	}
	return true
}

// Load fetches persisted threads through the load limiter, falling back to
// the local persister when the remote path gives up. Threads already in
// memory win over loaded copies with the same id. It reports whether any
// source answered.
func (s *Store) Load(ctx context.Context) bool {
	var (
		loaded []domain.Thread
		ok     bool
		source = "remote"
	)
	if s.remote != nil {
		loaded, ok = backoff.Do(ctx, s.loadLimiter, "load threads", func(ctx context.Context) ([]domain.Thread, error) {
			return s.loadAll(ctx, s.remote)
		})
	}
	if !ok && s.local != nil {
		source = "local"
		var err error
		loaded, err = s.loadAll(ctx, s.local)
		if err != nil {
			s.log.WarnContext(ctx, "local snapshot load failed", slog.String("error", err.Error()))
		} else {
			ok = true
		}
	}
	if !ok {
		s.audit.DataAccess(ctx, domain.EventDataPersistFailed, "thread", "", domain.OutcomeFailure,
			map[string]any{"operation": "load"})
		return false
	}

	s.mu.Lock()
	merged := s.mergeLocked(loaded)
	count := len(s.threads)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "threads loaded",
		slog.String("source", source),
		slog.Int("loaded", len(loaded)),
		slog.Int("merged", merged),
	)
	s.audit.DataAccess(ctx, domain.EventDataRead, "thread", "", domain.OutcomeSuccess,
		map[string]any{"source": source, "threadCount": count})
	return true
}

func (s *Store) loadAll(ctx context.Context, p Persister) ([]domain.Thread, error) {
	var out []domain.Thread
	for page := 1; ; page++ {
		res, err := p.LoadThreads(ctx, page, s.cfg.LoadPageSize)
		if err != nil {
			return nil, fmt.Errorf("load threads page %d: %w", page, err)
		}
		out = append(out, res.Threads...)
		if len(res.Threads) == 0 || len(out) >= res.Total || len(out) >= s.cfg.MaxThreads {
			return out, nil
		}
	}
}

// mergeLocked adds loaded threads that are not in memory, keeps creation
// order and capacity, and picks an active thread if none is set. It returns
// the number of threads added. Caller must hold s.mu.
func (s *Store) mergeLocked(loaded []domain.Thread) int {
	added := 0
	for i := range loaded {
		if _, t := s.find(loaded[i].ID); t != nil {
			continue
		}
		t := loaded[i].Clone()
		if t.Messages == nil {
			t.Messages = []domain.Message{}
		}
		if over := len(t.Messages) - s.cfg.MaxMessages; over > 0 {
			t.Messages = t.Messages[over:]
		}
		s.threads = append(s.threads, &t)
		added++
	}

	sort.SliceStable(s.threads, func(i, j int) bool {
		return s.threads[i].CreatedAt.Before(s.threads[j].CreatedAt)
	})
	if over := len(s.threads) - s.cfg.MaxThreads; over > 0 {
		for i := 0; i < over; i++ {
			s.removeAt(0)
		}
	}
	if _, t := s.find(s.active); t == nil {
		s.active = ""
		if t := s.mostRecent(); t != nil {
			s.active = t.ID
		}
	}
	metrics.ChatThreads.Set(float64(len(s.threads)))
	return added
}

// snapshotLocked deep-copies the thread set. Caller must hold s.mu.
func (s *Store) snapshotLocked() []domain.Thread {
	out := make([]domain.Thread, len(s.threads))
	for i, t := range s.threads {
		out[i] = t.Clone()
	}
	return out
}

// scheduleSave asks Run for a debounced save. It is a no-op when debouncing
// is disabled.
func (s *Store) scheduleSave() {
	if s.cfg.SaveDebounce <= 0 {
		return
	}
	select {
	case s.saveReq <- struct{}{}:
	default:
	}
}
