package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// Streamer delivers an assistant reply word by word through UpdateMessage.
// Starting a new stream or calling Stop cancels the one in progress; a
// cancelled stream is finalized with the words delivered so far.
type Streamer struct {
	store *Store
	clock clockwork.Clock
	delay time.Duration

	// start serialises Stream so each new stream sees the previous one
	// registered before stopping it.
	start sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStreamer creates a Streamer that waits delay between words. A nil clock
// means the real clock.
func NewStreamer(store *Store, clock clockwork.Clock, delay time.Duration) *Streamer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Streamer{store: store, clock: clock, delay: delay}
}

// Stream appends an empty streaming assistant message to threadID (resolved
// like AddMessage when empty) and starts filling it with content. It
// returns once the message exists; use Wait to block until delivery ends.
func (s *Streamer) Stream(ctx context.Context, threadID, content string) (MessageRef, bool) {
	s.start.Lock()
	defer s.start.Unlock()

	s.Stop()

	ref, ok := s.store.AddMessage(ctx, NewMessage{
		ThreadID:    threadID,
		Role:        domain.MessageRoleAssistant,
		IsStreaming: true,
	})
	if !ok {
		return MessageRef{}, false
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(streamCtx, ref, content, done)
	return ref, true
}

func (s *Streamer) run(ctx context.Context, ref MessageRef, content string, done chan struct{}) {
	defer close(done)

	words := strings.SplitAfter(content, " ")
	var b strings.Builder
	for _, w := range words {
		select {
		case <-ctx.Done():
			_ = s.store.UpdateMessage(context.Background(), ref.ThreadID, ref.MessageID, b.String(), false)
			return
		case <-s.clock.After(s.delay):
		}
		b.WriteString(w)
		if err := s.store.UpdateMessage(ctx, ref.ThreadID, ref.MessageID, b.String(), true); err != nil {
			return
		}
	}
	_ = s.store.UpdateMessage(ctx, ref.ThreadID, ref.MessageID, b.String(), false)
}

// Stop cancels the stream in progress and waits for it to finish.
func (s *Streamer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait blocks until the current stream, if any, has finished.
func (s *Streamer) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
