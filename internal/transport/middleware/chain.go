package middleware

import "net/http"

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes mws so that the first one runs outermost. Nil entries are
// skipped, which lets callers pass optional layers such as a disabled rate
// limiter without branching.
func Chain(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] == nil {
				continue
			}
			next = mws[i](next)
		}
		return next
	}
}
