package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/metrics"
)

// CreateThread allocates an empty thread, makes it active and returns its
// id. An empty title means domain.DefaultThreadTitle. Creation itself is not
// audited; callers log it if they need to.
func (s *Store) CreateThread(ctx context.Context, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultThreadTitle
	}

	s.mu.Lock()
	t, evicted := s.createLocked(title)
	id := t.ID
	s.dirty = true
	s.mu.Unlock()

	s.auditEvicted(ctx, evicted)
	s.scheduleSave()
	return id
}

type evictedThread struct {
	id      string
	summary map[string]any
}

// createLocked appends a new active thread and evicts the oldest threads
// beyond capacity. Caller must hold s.mu and audit the evicted threads after
// releasing it.
func (s *Store) createLocked(title string) (*domain.Thread, []evictedThread) {
	now := s.now()
	t := &domain.Thread{
		ID:        s.newID(),
		Title:     title,
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.threads = append(s.threads, t)
	s.active = t.ID

	var evicted []evictedThread
	for len(s.threads) > s.cfg.MaxThreads {
		old := s.removeAt(0)
		evicted = append(evicted, evictedThread{id: old.ID, summary: threadSummary(old)})
		s.log.Info("thread evicted at capacity",
			slog.String("thread_id", old.ID),
			slog.Int("max_threads", s.cfg.MaxThreads),
		)
	}
	metrics.ChatThreads.Set(float64(len(s.threads)))
	return t, evicted
}

func (s *Store) auditEvicted(ctx context.Context, evicted []evictedThread) {
	for _, e := range evicted {
		s.audit.ThreadEvent(ctx, domain.EventChatThreadDeleted, e.id, e.summary, nil,
			map[string]any{"reason": "capacity"})
	}
}

// DeleteThread removes a thread. Deleting the active thread promotes the
// most recently updated remaining thread, or clears the active thread.
func (s *Store) DeleteThread(ctx context.Context, id string) error {
	s.mu.Lock()
	i, t := s.find(id)
	if t == nil {
		s.mu.Unlock()
		return fmt.Errorf("thread %s: %w", id, domain.ErrNotFound)
	}
	summary := threadSummary(t)
	s.removeAt(i)
	s.dirty = true
	metrics.ChatThreads.Set(float64(len(s.threads)))
	s.mu.Unlock()

	s.audit.ThreadEvent(ctx, domain.EventChatThreadDeleted, id, summary, nil, nil)
	s.scheduleSave()
	return nil
}

// RenameThread sets a new title.
func (s *Store) RenameThread(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.NewValidationError("title", "required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return domain.NewValidationError("title", "must be at most 200 characters")
	}

	s.mu.Lock()
	_, t := s.find(id)
	if t == nil {
		s.mu.Unlock()
		return fmt.Errorf("thread %s: %w", id, domain.ErrNotFound)
	}
	prev := t.Title
	t.Title = title
	t.UpdatedAt = s.now()
	s.dirty = true
	s.mu.Unlock()

	s.audit.ThreadEvent(ctx, domain.EventChatThreadRenamed, id,
		map[string]any{"title": prev}, map[string]any{"title": title}, nil)
	s.scheduleSave()
	return nil
}

// ClearThread removes every message from a thread.
func (s *Store) ClearThread(ctx context.Context, id string) error {
	s.mu.Lock()
	_, t := s.find(id)
	if t == nil {
		s.mu.Unlock()
		return fmt.Errorf("thread %s: %w", id, domain.ErrNotFound)
	}
	cleared := len(t.Messages)
	for _, m := range t.Messages {
		delete(s.streamOrigin, m.ID)
	}
	t.Messages = []domain.Message{}
	t.UpdatedAt = s.now()
	s.dirty = true
	s.mu.Unlock()

	s.audit.ThreadEvent(ctx, domain.EventChatThreadCleared, id, nil, nil,
		map[string]any{"messageCount": cleared})
	s.scheduleSave()
	return nil
}

// SwitchThread makes id the active thread.
func (s *Store) SwitchThread(ctx context.Context, id string) error {
	s.mu.Lock()
	_, t := s.find(id)
	if t == nil {
		s.mu.Unlock()
		return fmt.Errorf("thread %s: %w", id, domain.ErrNotFound)
	}
	prev := s.active
	s.active = id
	s.mu.Unlock()

	s.audit.ThreadEvent(ctx, domain.EventChatThreadSwitched, id, nil, nil,
		map[string]any{"previousThreadId": prev})
	return nil
}

// SearchThreads returns threads whose title or any message contains query,
// case-insensitively. The search is audited with the query length and the
// result count, never the query itself.
func (s *Store) SearchThreads(ctx context.Context, query string) []domain.Thread {
	needle := strings.ToLower(query)

	s.mu.Lock()
	var out []domain.Thread
	for _, t := range s.threads {
		if matches(t, needle) {
			out = append(out, t.Clone())
		}
	}
	s.mu.Unlock()

	s.audit.DataAccess(ctx, domain.EventChatSearch, "thread", "", domain.OutcomeSuccess, map[string]any{
		"queryLength": utf8.RuneCountInString(query),
		"resultCount": len(out),
	})
	return out
}

func matches(t *domain.Thread, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	for _, m := range t.Messages {
		if strings.Contains(strings.ToLower(m.Content), needle) {
			return true
		}
	}
	return false
}

// Threads returns copies of all threads in creation order.
func (s *Store) Threads(ctx context.Context) []domain.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Thread, len(s.threads))
	for i, t := range s.threads {
		out[i] = t.Clone()
	}
	return out
}

// Thread returns a copy of one thread.
func (s *Store) Thread(ctx context.Context, id string) (domain.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, t := s.find(id)
	if t == nil {
		return domain.Thread{}, fmt.Errorf("thread %s: %w", id, domain.ErrNotFound)
	}
	return t.Clone(), nil
}

// ActiveThreadID returns the active thread id, or "" when there is none.
func (s *Store) ActiveThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
