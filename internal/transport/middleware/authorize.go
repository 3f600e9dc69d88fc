package middleware

import (
	"context"
	"net/http"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

type accessChecker interface {
	Can(ctx context.Context, req domain.AccessRequest) domain.Decision
}

// ScopeFunc derives the resource context of a request.
type ScopeFunc func(r *http.Request, user domain.UserContext) domain.ResourceContext

// OwnData scopes a request to data owned by the caller.
func OwnData(_ *http.Request, user domain.UserContext) domain.ResourceContext {
	id := user.ID
	return domain.ResourceContext{OwnerID: &id}
}

// Authorize gates a handler on resource:action. scope may be nil.
// Anonymous requests get 401, denied ones 403 with the decision reason.
func Authorize(checker accessChecker, resource domain.Resource, action domain.Action, scope ScopeFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := ctxutil.UserFromCtx(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			req := domain.AccessRequest{User: user, Resource: resource, Action: action}
			if scope != nil {
				req.Context = scope(r, user)
			}
			if d := checker.Can(r.Context(), req); !d.Allowed {
				writeError(w, r, http.StatusForbidden, d.Reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
