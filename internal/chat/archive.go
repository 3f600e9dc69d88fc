package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/metrics"
)

// ArchiveStale drops threads not updated within the archive age and hands
// them to the archiver in the background. Threads are dropped whether or
// not archiving succeeds. It returns the number of threads dropped.
func (s *Store) ArchiveStale(ctx context.Context) int {
	cutoff := s.clock.Now().Add(-s.cfg.ArchiveAfter)

	s.mu.Lock()
	var stale []domain.Thread
	for i := 0; i < len(s.threads); {
		if s.threads[i].UpdatedAt.Before(cutoff) {
			stale = append(stale, s.removeAt(i).Clone())
			continue
		}
		i++
	}
	if len(stale) > 0 {
		s.dirty = true
	}
	background := len(stale) > 0 && s.archiver != nil && !s.closed
	if background {
		s.bg.Add(1)
	}
	metrics.ChatThreads.Set(float64(len(s.threads)))
	s.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}

	for _, t := range stale {
		s.audit.ThreadEvent(ctx, domain.EventChatThreadArchived, t.ID, threadSummary(&t), nil,
			map[string]any{"lastUpdated": t.UpdatedAt})
	}
	s.log.InfoContext(ctx, "stale threads archived", slog.Int("count", len(stale)))

	switch {
	case background:
		go func() {
			defer s.bg.Done()
			s.archive(context.WithoutCancel(ctx), stale)
		}()
	case s.archiver != nil:
		s.archive(context.WithoutCancel(ctx), stale)
	}
	s.scheduleSave()
	return len(stale)
}

func (s *Store) archive(ctx context.Context, stale []domain.Thread) {
	if err := s.archiver.Archive(ctx, stale); err != nil {
		s.log.Warn("archive call failed",
			slog.Int("count", len(stale)),
			slog.String("error", err.Error()),
		)
	}
}

// Run archives stale threads on the archive interval and performs debounced
// saves until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	archive := s.clock.NewTicker(s.cfg.ArchiveInterval)
	defer archive.Stop()

	var (
		debounce clockwork.Timer
		saveC    <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-archive.Chan():
			s.ArchiveStale(ctx)
		case <-s.saveReq:
			if debounce == nil {
				debounce = s.clock.NewTimer(s.cfg.SaveDebounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.Chan():
					default:
					}
				}
				debounce.Reset(s.cfg.SaveDebounce)
			}
			saveC = debounce.Chan()
		case <-saveC:
			saveC = nil
			s.Save(ctx)
		}
	}
}

// Close waits for background archive calls and saves once more if there
// are unsaved changes. It may race a Run that is still ticking: archive
// calls started after Close run inline.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.bg.Wait()

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()

	if dirty && (s.remote != nil || s.local != nil) {
		s.Save(ctx)
	}
}
