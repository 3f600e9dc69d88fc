package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

//go:generate moq -out channel_mock_test.go -rm . channel:channelMock

func newTestPublisher(ch channel) *AuditPublisher {
	p := newPublisher(ch, "labassist.audit", "audit.batch", slog.New(slog.NewTextHandler(io.Discard, nil)))
	fixed := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	return p
}

func TestAuditPublisher_Write(t *testing.T) {
	t.Parallel()

	ch := &channelMock{
		PublishWithContextFunc: func(context.Context, string, string, bool, bool, amqp.Publishing) error { return nil },
	}
	p := newTestPublisher(ch)

	entries := []domain.AuditEntry{
		{ID: uuid.New(), EventType: domain.EventChatMessageSent, Checksum: "a"},
		{ID: uuid.New(), EventType: domain.EventChatThreadRenamed, Checksum: "b"},
	}
	require.NoError(t, p.Write(context.Background(), entries))

	calls := ch.PublishWithContextCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "labassist.audit", calls[0].Exchange)
	assert.Equal(t, "audit.batch", calls[0].Key)

	msg := calls[0].Msg
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.NotEmpty(t, msg.MessageId)

	var got AuditBatch
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	require.Len(t, got.Logs, 2)
	assert.Equal(t, entries[0].ID, got.Logs[0].ID)
	assert.Equal(t, "b", got.Logs[1].Checksum)
	assert.True(t, got.PublishedAt.Equal(msg.Timestamp))
}

func TestAuditPublisher_Write_Empty(t *testing.T) {
	t.Parallel()

	ch := &channelMock{}
	p := newTestPublisher(ch)

	require.NoError(t, p.Write(context.Background(), nil))
	assert.Empty(t, ch.PublishWithContextCalls())
}

func TestAuditPublisher_Write_PublishError(t *testing.T) {
	t.Parallel()

	ch := &channelMock{
		PublishWithContextFunc: func(context.Context, string, string, bool, bool, amqp.Publishing) error {
			return amqp.ErrClosed
		},
	}
	p := newTestPublisher(ch)

	err := p.Write(context.Background(), []domain.AuditEntry{{ID: uuid.New()}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestAuditPublisher_Close(t *testing.T) {
	t.Parallel()

	ch := &channelMock{CloseFunc: func() error { return nil }}
	p := newTestPublisher(ch)

	require.NoError(t, p.Close())
	assert.Len(t, ch.CloseCalls(), 1)
}

func TestAuditPublisher_Ping_NoConnection(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(&channelMock{})
	assert.ErrorIs(t, p.Ping(context.Background()), errConnClosed)
}
