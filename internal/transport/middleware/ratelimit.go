package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/heartmarshall/labassist-backend/internal/metrics"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

// idleTTL is how long an unused client limiter is kept.
const idleTTL = 10 * time.Minute

// RateLimiter limits requests per client: the authenticated user when
// there is one, otherwise the remote IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	clock clockwork.Clock

	clients sync.Map // map[string]*client
	stop    chan struct{}
}

type client struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter with background cleanup. A nil
// clock means the real clock. Call Stop() on shutdown.
func NewRateLimiter(rps float64, burst int, cleanupInterval time.Duration, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	rl := &RateLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		clock: clock,
		stop:  make(chan struct{}),
	}
	go rl.cleanup(cleanupInterval)
	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

// Middleware rejects requests over the client's budget with 429 and a
// Retry-After header in whole seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := rl.clock.Now()
		c := rl.client(clientKey(r), now)

		res := c.limiter.ReserveN(now, 1)
		if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
			res.CancelAt(now)
			metrics.HTTPRateLimited.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(delay)))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) client(key string, now time.Time) *client {
	val, _ := rl.clients.LoadOrStore(key, &client{
		limiter:  rate.NewLimiter(rl.limit, rl.burst),
		lastSeen: now,
	})
	c := val.(*client)
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
	return c
}

func clientKey(r *http.Request) string {
	if id, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 || d == rate.InfDuration {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}

func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := rl.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.Chan():
			now := rl.clock.Now()
			rl.clients.Range(func(key, value any) bool {
				c := value.(*client)
				c.mu.Lock()
				idle := now.Sub(c.lastSeen)
				c.mu.Unlock()
				if idle > idleTTL {
					rl.clients.Delete(key)
				}
				return true
			})
		}
	}
}
