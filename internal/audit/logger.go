// Package audit buffers structured compliance events, stamps each with an
// integrity checksum and delivers them in batches to a Transport.
//
// Logging never fails from the caller's point of view: entries that cannot
// be built or validated are dropped with a local warning.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/backoff"
	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/metrics"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

// Transport delivers a batch of entries. A non-nil error re-queues the
// whole batch.
type Transport interface {
	Write(ctx context.Context, entries []domain.AuditEntry) error
}

// Config controls batching, ambient fields and the debug buffer.
type Config struct {
	Secret        string
	SessionID     string
	UserAgent     string
	BatchSize     int
	FlushInterval time.Duration
	Debug         bool
	RingSize      int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.RingSize <= 0 {
		c.RingSize = 1000
	}
	return c
}

// Logger is the audit event sink. It is safe for concurrent use.
type Logger struct {
	cfg       Config
	log       *slog.Logger
	transport Transport
	clock     clockwork.Clock
	sums      *Checksummer
	scrub     scrubber
	validate  *validator.Validate
	limiter   *backoff.Limiter

	flushNow chan struct{}

	mu     sync.Mutex
	userID *string
	buffer []domain.AuditEntry
	recent *ring
}

// New creates a Logger. text may be nil, in which case string values are
// not scanned for PII-shaped substrings. A nil clock means the real clock.
func New(cfg Config, transport Transport, text textRedactor, clock clockwork.Clock, log *slog.Logger) (*Logger, error) {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	sums, err := NewChecksummer(cfg.Secret)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		cfg:       cfg,
		log:       log.With("service", "audit"),
		transport: transport,
		clock:     clock,
		sums:      sums,
		scrub:     scrubber{text: text},
		validate:  newValidator(),
		limiter:   backoff.NewLimiter("audit_flush", backoff.DefaultConfig(), clock, log),
		flushNow:  make(chan struct{}, 1),
	}
	if cfg.Debug {
		l.recent = newRing(cfg.RingSize)
	}
	if !sums.Authoritative() {
		l.log.Warn("audit secret not configured, checksums are non-authoritative")
	}
	return l, nil
}

// Checksummer returns the checksummer used to stamp entries.
func (l *Logger) Checksummer() *Checksummer { return l.sums }

// SetUser sets the ambient user recorded on entries whose event and context
// carry no user. An empty id clears it.
func (l *Logger) SetUser(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id == "" {
		l.userID = nil
		return
	}
	l.userID = &id
}

// Log builds, validates and buffers an entry for ev.
func (l *Logger) Log(ctx context.Context, ev domain.AuditEvent) {
	entry, err := l.build(ctx, ev)
	if err != nil {
		l.drop(ev, err.Error())
		return
	}
	if err := l.validate.Struct(entry); err != nil {
		l.drop(ev, validationFields(err))
		return
	}

	l.mu.Lock()
	l.buffer = append(l.buffer, entry)
	size := len(l.buffer)
	if l.recent != nil {
		l.recent.push(entry)
	}
	l.mu.Unlock()

	metrics.AuditEntries.WithLabelValues("buffered").Inc()
	metrics.AuditBufferSize.Set(float64(size))

	if size >= l.cfg.BatchSize {
		select {
		case l.flushNow <- struct{}{}:
		default:
		}
	}
}

func (l *Logger) drop(ev domain.AuditEvent, reason string) {
	metrics.AuditEntries.WithLabelValues("dropped").Inc()
	l.log.Warn("audit entry dropped",
		slog.String("event_type", ev.Type.String()),
		slog.String("reason", reason),
	)
}

func (l *Logger) build(ctx context.Context, ev domain.AuditEvent) (domain.AuditEntry, error) {
	outcome := ev.Outcome
	if outcome == "" {
		outcome = domain.OutcomeSuccess
	}

	entry := domain.AuditEntry{
		ID:             uuid.New(),
		Timestamp:      l.clock.Now().UTC().Truncate(time.Millisecond),
		EventType:      ev.Type,
		Severity:       severityFor(ev),
		UserID:         l.actor(ctx, ev),
		UserAgent:      l.cfg.UserAgent,
		ResourceType:   ev.ResourceType,
		ResourceID:     ev.ResourceID,
		Action:         ev.Action,
		Outcome:        outcome,
		PreviousValue:  l.scrub.value(ev.PreviousValue),
		NewValue:       l.scrub.value(ev.NewValue),
		Metadata:       l.scrub.metadata(ev.Metadata),
		Classification: classificationFor(ev.Type),
		ContainsPHI:    ev.ContainsPHI,
		ContainsPII:    ev.ContainsPII,
	}
	if l.cfg.SessionID != "" {
		sid := l.cfg.SessionID
		entry.SessionID = &sid
	}

	sum, err := l.sums.Sum(entry)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("checksum: %w", err)
	}
	entry.Checksum = sum
	return entry, nil
}

// actor resolves the user: explicit on the event, then the request
// principal, then the ambient user.
func (l *Logger) actor(ctx context.Context, ev domain.AuditEvent) *string {
	if ev.UserID != nil {
		id := *ev.UserID
		return &id
	}
	if id, ok := ctxutil.UserIDFromCtx(ctx); ok {
		s := id.String()
		return &s
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.userID == nil {
		return nil
	}
	id := *l.userID
	return &id
}

// Flush hands the buffered entries to the transport. On failure the batch
// is put back at the front of the buffer and the error is returned.
func (l *Logger) Flush(ctx context.Context) error {
	l.mu.Lock()
	if len(l.buffer) == 0 {
		l.mu.Unlock()
		return nil
	}
	batch := l.buffer
	l.buffer = nil
	l.mu.Unlock()
	metrics.AuditBufferSize.Set(0)

	if l.transport == nil {
		l.requeue(batch)
		return fmt.Errorf("audit flush: no transport configured")
	}

	var writeErr error
	_, ok := backoff.Do(ctx, l.limiter, "audit flush", func(ctx context.Context) (struct{}, error) {
		writeErr = l.transport.Write(ctx, batch)
		return struct{}{}, writeErr
	})
	if !ok {
		l.requeue(batch)
		l.log.Warn("audit flush failed, batch re-queued",
			slog.Int("entries", len(batch)),
			slog.String("error", errString(writeErr)),
		)
		return fmt.Errorf("audit flush: %w", writeErr)
	}

	metrics.AuditEntries.WithLabelValues("flushed").Add(float64(len(batch)))
	l.log.Debug("audit batch flushed", slog.Int("entries", len(batch)))
	return nil
}

func (l *Logger) requeue(batch []domain.AuditEntry) {
	l.mu.Lock()
	l.buffer = append(batch, l.buffer...)
	size := len(l.buffer)
	l.mu.Unlock()

	metrics.AuditEntries.WithLabelValues("requeued").Add(float64(len(batch)))
	metrics.AuditBufferSize.Set(float64(size))
}

// Run flushes on the configured interval and whenever the buffer reaches
// the batch size, until ctx is cancelled.
func (l *Logger) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		case <-l.flushNow:
		}
		_ = l.Flush(ctx)
	}
}

// Close performs a final best-effort flush.
func (l *Logger) Close(ctx context.Context) error {
	return l.Flush(ctx)
}

// Pending returns the number of buffered entries.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

// Recent returns up to n of the latest entries, oldest first. It returns
// nil unless the logger was created with Debug set.
func (l *Logger) Recent(n int) []domain.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recent == nil {
		return nil
	}
	return l.recent.last(n)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
