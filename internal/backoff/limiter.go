// Package backoff retries rate-limited operations with exponential delays.
//
// A Limiter keeps its retry count across calls, so each logical stream of
// operations (saves, loads, flushes) needs its own instance. Limiters never
// run two operations at once and an in-progress backoff cannot be aborted.
package backoff

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/metrics"
)

// Config controls retry bounds and delays.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	// Cooldown is the idle period after which the retry count starts over.
	Cooldown time.Duration
}

// DefaultConfig returns 3 retries, 1s base, x2, 10s cap, 60s cool-down.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Multiplier: 2,
		MaxDelay:   10 * time.Second,
		Cooldown:   60 * time.Second,
	}
}

// Limiter is a stateful retry helper dedicated to one stream of operations.
type Limiter struct {
	name  string
	cfg   Config
	clock clockwork.Clock
	log   *slog.Logger

	mu          sync.Mutex
	retries     int
	lastAttempt time.Time
	delays      *cbackoff.ExponentialBackOff
}

// NewLimiter creates a Limiter. A nil clock means the real clock.
func NewLimiter(name string, cfg Config, clock clockwork.Clock, log *slog.Logger) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	delays := cbackoff.NewExponentialBackOff()
	delays.InitialInterval = cfg.BaseDelay
	delays.Multiplier = cfg.Multiplier
	delays.MaxInterval = cfg.MaxDelay
	delays.RandomizationFactor = 0
	delays.MaxElapsedTime = 0
	delays.Reset()

	return &Limiter{
		name:   name,
		cfg:    cfg,
		clock:  clock,
		log:    log.With("limiter", name),
		delays: delays,
	}
}

// Name returns the stream name the limiter was created for.
func (l *Limiter) Name() string { return l.name }

// Retries returns the current retry count.
func (l *Limiter) Retries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retries
}

// Do runs op through l. It returns (result, true) on success and
// (zero, false) when op fails with a non-rate-limit error or the retry budget
// is exhausted; callers fall back to local state in that case.
func Do[T any](ctx context.Context, l *Limiter, label string, op func(ctx context.Context) (T, error)) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	for {
		now := l.clock.Now()
		if !l.lastAttempt.IsZero() && now.Sub(l.lastAttempt) > l.cfg.Cooldown {
			l.reset()
		}
		l.lastAttempt = now

		res, err := op(ctx)
		if err == nil {
			l.reset()
			return res, true
		}

		if !IsRateLimited(err) {
			l.log.Warn("operation failed",
				slog.String("label", label),
				slog.String("error", err.Error()),
			)
			metrics.BackoffGiveUps.WithLabelValues(l.name, "error").Inc()
			return zero, false
		}

		if l.retries >= l.cfg.MaxRetries {
			l.log.Warn("rate limited, retries exhausted",
				slog.String("label", label),
				slog.Int("retries", l.retries),
			)
			metrics.BackoffGiveUps.WithLabelValues(l.name, "exhausted").Inc()
			return zero, false
		}

		l.retries++
		delay := l.delays.NextBackOff()
		l.log.Info("rate limited, backing off",
			slog.String("label", label),
			slog.Int("retry", l.retries),
			slog.Duration("delay", delay),
		)
		metrics.BackoffRetries.WithLabelValues(l.name).Inc()
		l.clock.Sleep(delay)
	}
}

func (l *Limiter) reset() {
	l.retries = 0
	l.delays.Reset()
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// IsRateLimited reports whether err signals rate limiting: it wraps
// domain.ErrRateLimited, carries status 429, or says so in its message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
