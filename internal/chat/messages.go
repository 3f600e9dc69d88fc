package chat

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/heartmarshall/labassist-backend/internal/classifier"
	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/metrics"
)

// AddMessage classifies and appends a message. The target thread is, in
// order: nm.ThreadID, the active thread, the thread of the last user
// message, and for assistant messages the most recently created thread. A
// user message with nowhere to go creates a thread seeded with it. Any other
// unresolvable message is rejected with ok=false.
func (s *Store) AddMessage(ctx context.Context, nm NewMessage) (MessageRef, bool) {
	if !nm.Role.IsValid() {
		s.log.WarnContext(ctx, "message rejected: invalid role", slog.String("role", nm.Role.String()))
		return MessageRef{}, false
	}

	verdict := s.verdict(nm.Content)

	s.mu.Lock()
	t, ok := s.resolve(nm)
	if !ok {
		s.mu.Unlock()
		s.log.WarnContext(ctx, "message rejected: no target thread",
			slog.String("role", nm.Role.String()),
			slog.String("thread_id", nm.ThreadID),
		)
		return MessageRef{}, false
	}

	var created *domain.Thread
	var evicted []evictedThread
	if t == nil {
		t, evicted = s.createLocked(domain.TitleFromContent(nm.Content))
		created = t
	} else if nm.Role == domain.MessageRoleUser && t.Title == domain.DefaultThreadTitle && !hasUserMessage(t) {
		t.Title = domain.TitleFromContent(nm.Content)
	}

	now := s.now()
	msg := domain.Message{
		ID:          s.newID(),
		Role:        nm.Role,
		Content:     nm.Content,
		Timestamp:   now,
		IsStreaming: nm.IsStreaming,
		Verdict:     verdict,
		Metadata:    maps.Clone(nm.Metadata),
	}
	t.Messages = append(t.Messages, msg)
	if over := len(t.Messages) - s.cfg.MaxMessages; over > 0 {
		for _, m := range t.Messages[:over] {
			delete(s.streamOrigin, m.ID)
		}
		t.Messages = append([]domain.Message(nil), t.Messages[over:]...)
	}
	t.UpdatedAt = now
	if msg.IsStreaming {
		s.streamOrigin[msg.ID] = msg.Content
	}
	if nm.Role == domain.MessageRoleUser {
		s.pending = t.ID
	}
	s.dirty = true

	ref := MessageRef{MessageID: msg.ID, ThreadID: t.ID, CreatedThread: created != nil}
	var createdSummary map[string]any
	if created != nil {
		createdSummary = threadSummary(created)
	}
	s.mu.Unlock()

	s.auditEvicted(ctx, evicted)
	if created != nil {
		s.audit.ThreadEvent(ctx, domain.EventChatThreadCreated, ref.ThreadID, nil, createdSummary,
			map[string]any{"trigger": "first_message"})
	}
	typ := domain.EventChatMessageReceived
	if nm.Role == domain.MessageRoleUser {
		typ = domain.EventChatMessageSent
	}
	s.audit.MessageEvent(ctx, typ, ref.ThreadID, ref.MessageID, nm.Role, verdict)
	metrics.ChatMessages.WithLabelValues(nm.Role.String(), sensitivityLabel(verdict)).Inc()

	s.scheduleSave()
	return ref, true
}

// resolve finds the target thread for nm. It returns (nil, true) when a new
// thread should be created. Caller must hold s.mu.
func (s *Store) resolve(nm NewMessage) (*domain.Thread, bool) {
	if nm.ThreadID != "" {
		_, t := s.find(nm.ThreadID)
		return t, t != nil
	}
	if _, t := s.find(s.active); t != nil {
		return t, true
	}
	if _, t := s.find(s.pending); t != nil {
		return t, true
	}
	if nm.Role == domain.MessageRoleAssistant && len(s.threads) > 0 {
		return s.threads[len(s.threads)-1], true
	}
	if nm.Role == domain.MessageRoleUser {
		return nil, true
	}
	return nil, false
}

// UpdateMessage replaces the content of a streaming message and sets its
// streaming flag. Finalizing (isStreaming=false) reclassifies the content.
// Changing the content of a finalized message returns
// domain.ErrMessageFinalized.
func (s *Store) UpdateMessage(ctx context.Context, threadID, messageID, content string, isStreaming bool) error {
	var verdict *domain.Verdict
	if !isStreaming {
		verdict = s.verdict(content)
	}

	s.mu.Lock()
	_, t := s.find(threadID)
	if t == nil {
		s.mu.Unlock()
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	idx := -1
	for i := range t.Messages {
		if t.Messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}

	m := &t.Messages[idx]
	if !m.IsStreaming {
		unchanged := content == m.Content
		s.mu.Unlock()
		if unchanged {
			return nil
		}
		return fmt.Errorf("message %s: %w", messageID, domain.ErrMessageFinalized)
	}

	m.Content = content
	m.IsStreaming = isStreaming
	t.UpdatedAt = s.now()
	s.dirty = true

	edited := false
	if !isStreaming {
		m.Verdict = verdict
		edited = s.streamOrigin[messageID] != content
		delete(s.streamOrigin, messageID)
	}
	role := m.Role
	s.mu.Unlock()

	if edited {
		s.audit.MessageEvent(ctx, domain.EventChatMessageEdited, threadID, messageID, role, verdict)
	}
	if !isStreaming {
		s.scheduleSave()
	}
	return nil
}

func (s *Store) verdict(content string) *domain.Verdict {
	return s.classify.Verdict(content, classifier.Context{IsLabData: s.cfg.LabData})
}

func hasUserMessage(t *domain.Thread) bool {
	for _, m := range t.Messages {
		if m.Role == domain.MessageRoleUser {
			return true
		}
	}
	return false
}

func sensitivityLabel(v *domain.Verdict) string {
	if v == nil {
		return "UNCLASSIFIED"
	}
	return v.Sensitivity.String()
}
