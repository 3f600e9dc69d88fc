package remote

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// StatusError is a non-2xx response from the persistence endpoint. A 429
// unwraps to domain.ErrRateLimited so the backoff limiter retries it; every
// other status is final.
type StatusError struct {
	Method     string
	Path       string
	Code       int
	RetryAfter time.Duration
	// Body holds the start of the response body for logs. It is kept out of
	// Error so server text cannot change how the error is classified.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s: status %d", e.Method, e.Path, e.Code)
}

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
