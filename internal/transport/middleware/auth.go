package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.UserContext, error)
}

// Auth resolves the bearer token into a principal. Requests without a
// token pass through anonymously; a token that fails validation is
// rejected with 401.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r) // Anonymous
				return
			}
			user, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := ctxutil.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
