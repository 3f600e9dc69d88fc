package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

func newTestLimiter(t *testing.T, rps float64, burst int) (*RateLimiter, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(rps, burst, time.Minute, clock)
	t.Cleanup(rl.Stop)
	return rl, clock
}

func serve(h http.Handler, remote string, user *domain.UserContext) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/threads", nil)
	req.RemoteAddr = remote
	if user != nil {
		req = req.WithContext(ctxutil.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 10)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 10; i++ {
		rec := serve(handler, "1.2.3.4:1234", nil)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should be allowed", i)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 0.5, 5)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(handler, "1.2.3.4:1234", nil).Code)
	}

	rec := serve(handler, "1.2.3.4:1234", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimiter_DifferentClientsIndependent(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 2)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		serve(handler, "1.1.1.1:1234", nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "1.1.1.1:4321", nil).Code, "same IP, other port")
	assert.Equal(t, http.StatusOK, serve(handler, "2.2.2.2:5678", nil).Code)
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 1)
	handler := rl.Middleware(okHandler())

	alice := domain.UserContext{ID: uuid.New()}
	bob := domain.UserContext{ID: uuid.New()}

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", &alice).Code)
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", &bob).Code, "users behind one IP are limited separately")
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.2:1", &alice).Code, "a user is limited across IPs")
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, 1, 1)
	handler := rl.Middleware(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "3.3.3.3:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "3.3.3.3:1234", nil).Code)

	clock.Advance(1100 * time.Millisecond)

	assert.Equal(t, http.StatusOK, serve(handler, "3.3.3.3:1234", nil).Code)
}
