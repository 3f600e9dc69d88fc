package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/adapter/amqp"
	"github.com/heartmarshall/labassist-backend/internal/adapter/postgres"
	pgaudit "github.com/heartmarshall/labassist-backend/internal/adapter/postgres/audit"
	"github.com/heartmarshall/labassist-backend/internal/adapter/postgres/thread"
	"github.com/heartmarshall/labassist-backend/internal/audit"
	"github.com/heartmarshall/labassist-backend/internal/auth"
	"github.com/heartmarshall/labassist-backend/internal/authz"
	"github.com/heartmarshall/labassist-backend/internal/classifier"
	"github.com/heartmarshall/labassist-backend/internal/config"
	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/transport/middleware"
	"github.com/heartmarshall/labassist-backend/internal/transport/rest"
)

// Run is the API server entry point. It loads configuration, migrates the
// database, assembles the HTTP surface and serves until ctx is cancelled,
// then drains in-flight requests and flushes the audit buffer.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("env", cfg.Env),
		slog.String("log_level", cfg.Log.Level),
		slog.String("audit_sink", cfg.Audit.Sink),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, cfg.Database.DSN, logger); err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	auditRepo := pgaudit.New(pool)
	checks := []rest.Check{{Name: "database", Pinger: pool}}

	var sink audit.Transport = auditRepo
	if cfg.Audit.Sink == "amqp" {
		pub, err := amqp.New(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close audit publisher", slog.String("error", err.Error()))
			}
		}()
		sink = pub
		checks = append(checks, rest.Check{Name: "audit_sink", Pinger: pub, Optional: true})
	}

	auditLog, err := audit.New(audit.Config{
		Secret:        cfg.Audit.HMACSecret,
		SessionID:     uuid.NewString(),
		UserAgent:     "labassist-api/" + Version,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		Debug:         cfg.Audit.Debug,
		RingSize:      cfg.Audit.RingSize,
	}, sink, classifier.New(logger), clock, logger)
	if err != nil {
		return fmt.Errorf("audit logger: %w", err)
	}

	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		auditLog.Run(auditCtx)
	}()
	defer func() {
		stopAudit()
		<-auditDone
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server))
		defer cancel()
		if err := auditLog.Close(closeCtx); err != nil {
			logger.Error("flush audit log on shutdown", slog.String("error", err.Error()))
		}
	}()

	verifier, err := audit.NewVerifier(cfg.Audit.HMACSecret)
	if err != nil {
		return fmt.Errorf("audit verifier: %w", err)
	}

	authzSvc := authz.NewService(authz.Config{
		CacheTTL:   cfg.Authz.CacheTTL,
		CacheSize:  cfg.Authz.CacheSize,
		HoursStart: cfg.Authz.HoursStart,
		HoursEnd:   cfg.Authz.HoursEnd,
		Location:   cfg.Authz.Location,
	}, auditLog, clock, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, clock)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.CleanupInterval, clock)
	defer limiter.Stop()

	handler := rest.NewRouter(rest.RouterDeps{
		Stack: []middleware.Middleware{
			middleware.RequestID,
			middleware.Recovery(logger, auditLog),
			middleware.Logger(logger),
			middleware.CORS(cfg.CORS),
		},
		Tokens:  tokens,
		Limiter: limiter,
		Authz:   authzSvc,
		Health:  rest.NewHealthHandler(BuildVersion(), checks...),
		Threads: rest.NewThreadHandler(thread.New(pool), auditLog, rest.ThreadLimits{
			MaxThreads:  cfg.Chat.MaxThreads,
			MaxMessages: cfg.Chat.MaxMessages,
		}, logger),
		Audit:  rest.NewAuditHandler(auditRepo, verifier, auditLog, logger),
		Access: rest.NewAccessHandler(authzSvc, logger),
	})

	auditLog.Log(ctx, domain.AuditEvent{
		Type:     domain.EventSystemStartup,
		Action:   "api server started",
		Metadata: map[string]any{"version": Version, "sink": cfg.Audit.Sink},
	})

	err = serve(ctx, cfg.Server, handler, logger)

	auditLog.Log(context.WithoutCancel(ctx), domain.AuditEvent{
		Type:   domain.EventSystemShutdown,
		Action: "api server stopped",
	})
	return err
}

// serve runs the HTTP server until ctx is cancelled and then shuts it down
// within cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server", slog.String("addr", srv.Addr))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	if err := <-shutdown; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped", slog.String("addr", srv.Addr))
	return nil
}

func shutdownTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.ShutdownTimeout
}
