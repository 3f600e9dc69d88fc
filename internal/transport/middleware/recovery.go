package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

type incidentReporter interface {
	SecurityIncident(ctx context.Context, action string, severity domain.Severity, meta map[string]any)
}

// Recovery turns a handler panic into a 500 JSON error, logs it with a stack
// trace and, when incidents is non-nil, records it in the audit trail.
// http.ErrAbortHandler is re-raised so net/http can abort the response.
func Recovery(logger *slog.Logger, incidents incidentReporter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				ctx := r.Context()
				reqID := ctxutil.RequestIDFromCtx(ctx)
				logger.ErrorContext(ctx, "panic recovered",
					slog.Any("error", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", reqID),
				)
				if incidents != nil {
					incidents.SecurityIncident(ctx, "handler panic", domain.SeverityError, map[string]any{
						"method":    r.Method,
						"path":      r.URL.Path,
						"requestId": reqID,
						"panic":     fmt.Sprint(rec),
					})
				}
				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
