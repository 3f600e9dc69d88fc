// Package amqp publishes audit batches to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var errConnClosed = errors.New("amqp connection closed")

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AuditBatch is the message body of one published batch.
type AuditBatch struct {
	Logs        []domain.AuditEntry `json:"logs"`
	PublishedAt time.Time           `json:"publishedAt"`
}

// AuditPublisher is an audit transport backed by RabbitMQ.
type AuditPublisher struct {
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
	log        *slog.Logger
	now        func() time.Time
}

// New dials the broker, opens a channel and declares a durable topic
// exchange.
func New(url, exchange, routingKey string, logger *slog.Logger) (*AuditPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newPublisher(ch, exchange, routingKey, logger)
	p.conn = conn
	p.log.Info("amqp audit publisher ready", slog.String("exchange", exchange))
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string, logger *slog.Logger) *AuditPublisher {
	return &AuditPublisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		log:        logger.With("adapter", "amqp"),
		now:        time.Now,
	}
}

// Write publishes entries as one persistent JSON message.
func (p *AuditPublisher) Write(ctx context.Context, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := p.now().UTC()
	body, err := json.Marshal(AuditBatch{Logs: entries, PublishedAt: now})
	if err != nil {
		return fmt.Errorf("marshal audit batch: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Type:         "audit.batch",
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish audit batch: %w", err)
	}

	p.log.Debug("audit batch published", slog.Int("count", len(entries)), slog.String("message_id", msg.MessageId))
	return nil
}

// Close closes the channel and the connection.
func (p *AuditPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Ping reports whether the broker connection is still open.
func (p *AuditPublisher) Ping(_ context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errConnClosed
	}
	return nil
}
