package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-Id"

const maxRequestIDLen = 128

// RequestID propagates the caller's X-Request-Id or assigns a new one.
// Incoming ids that are too long or not printable ASCII are replaced since
// they end up in logs and audit entries.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		ctx := ctxutil.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
