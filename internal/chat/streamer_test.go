package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

func TestStreamer_DeliversWholeReply(t *testing.T) {
	t.Parallel()
	store, deps := newTestStore(t, Config{})
	ctx := context.Background()

	user, ok := store.AddMessage(ctx, NewMessage{Role: domain.MessageRoleUser, Content: "summarize run 42"})
	require.True(t, ok)

	st := NewStreamer(store, clockwork.NewRealClock(), 0)
	ref, ok := st.Stream(ctx, "", "Run 42 passed all checks")
	require.True(t, ok)
	assert.Equal(t, user.ThreadID, ref.ThreadID)
	st.Wait()

	th, err := store.Thread(ctx, ref.ThreadID)
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	msg := th.Messages[1]
	assert.Equal(t, "Run 42 passed all checks", msg.Content)
	assert.False(t, msg.IsStreaming)
	assert.NotNil(t, msg.Verdict)
	assert.Len(t, editedEvents(deps.audit), 1)
}

func TestStreamer_StopFinalizesPartialReply(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store.CreateThread(ctx, "")
	clock := clockwork.NewFakeClock()
	st := NewStreamer(store, clock, time.Second)

	ref, ok := st.Stream(ctx, "", "one two three")
	require.True(t, ok)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		th, err := store.Thread(ctx, ref.ThreadID)
		return err == nil && th.Messages[0].Content == "one "
	}, time.Second, 5*time.Millisecond)

	st.Stop()

	th, err := store.Thread(ctx, ref.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, "one ", th.Messages[0].Content)
	assert.False(t, th.Messages[0].IsStreaming)
}

func TestStreamer_NewStreamCancelsPrevious(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t, Config{})
	ctx := context.Background()

	id := store.CreateThread(ctx, "")
	clock := clockwork.NewFakeClock()
	st := NewStreamer(store, clock, time.Hour)

	first, ok := st.Stream(ctx, id, "never delivered")
	require.True(t, ok)
	second, ok := st.Stream(ctx, id, "also pending")
	require.True(t, ok)
	st.Stop()

	th, err := store.Thread(ctx, id)
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, first.MessageID, th.Messages[0].ID)
	assert.Equal(t, second.MessageID, th.Messages[1].ID)
	for _, m := range th.Messages {
		assert.Empty(t, m.Content)
		assert.False(t, m.IsStreaming)
	}
}

func TestStreamer_ConcurrentStartsAllCancellable(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t, Config{})
	ctx := context.Background()

	id := store.CreateThread(ctx, "")
	st := NewStreamer(store, clockwork.NewFakeClock(), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := st.Stream(ctx, id, "pending reply")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	st.Stop()

	th, err := store.Thread(ctx, id)
	require.NoError(t, err)
	require.Len(t, th.Messages, 8)
	for _, m := range th.Messages {
		assert.False(t, m.IsStreaming, "message %s left streaming", m.ID)
	}
}

func TestStreamer_NoThread(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t, Config{})

	st := NewStreamer(store, nil, 0)
	_, ok := st.Stream(context.Background(), "", "hello")
	assert.False(t, ok)
	st.Wait()
}
