package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/transport/middleware"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.UserContext, error)
}

// RouterDeps are the pieces the HTTP surface is assembled from.
type RouterDeps struct {
	// Stack is applied to every route, outermost first.
	Stack   []middleware.Middleware
	Tokens  tokenValidator
	Limiter *middleware.RateLimiter
	Authz   accessChecker

	Health  *HealthHandler
	Threads *ThreadHandler
	Audit   *AuditHandler
	Access  *AccessHandler
}

// NewRouter mounts the probes, metrics and the authenticated /api/v1 routes.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Chain(d.Stack...))

	r.Get("/live", d.Health.Live)
	r.Get("/ready", d.Health.Ready)
	r.Get("/health", d.Health.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		var limit middleware.Middleware
		if d.Limiter != nil {
			limit = d.Limiter.Middleware
		}
		r.Use(middleware.Chain(middleware.Auth(d.Tokens), limit))

		gate := func(res domain.Resource, act domain.Action, scope middleware.ScopeFunc) func(http.Handler) http.Handler {
			return middleware.Authorize(d.Authz, res, act, scope)
		}

		r.With(gate(domain.ResourceThreads, domain.ActionView, middleware.OwnData)).Get("/threads", d.Threads.List)
		r.With(gate(domain.ResourceThreads, domain.ActionUpdate, middleware.OwnData)).Post("/threads", d.Threads.Save)
		r.With(gate(domain.ResourceThreads, domain.ActionUpdate, middleware.OwnData)).Post("/archive", d.Threads.Archive)

		r.With(gate(domain.ResourceAssistant, domain.ActionView, nil)).Post("/audit/logs", d.Audit.Ingest)
		r.With(gate(domain.ResourceAuditLogs, domain.ActionView, nil)).Get("/audit/logs", d.Audit.List)

		r.Get("/access", d.Access.Check)
	})

	return r
}
