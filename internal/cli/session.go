package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/labassist-backend/internal/adapter/remote"
	"github.com/heartmarshall/labassist-backend/internal/adapter/sqlite"
	"github.com/heartmarshall/labassist-backend/internal/audit"
	"github.com/heartmarshall/labassist-backend/internal/auth"
	"github.com/heartmarshall/labassist-backend/internal/chat"
	"github.com/heartmarshall/labassist-backend/internal/classifier"
	"github.com/heartmarshall/labassist-backend/internal/config"
)

const userAgent = "labchat/1"

var errOffline = errors.New("remote endpoint not configured or --offline set")

// session is everything one invocation works with.
type session struct {
	cfg      *config.Config
	log      *slog.Logger
	clock    clockwork.Clock
	classify *classifier.Classifier
	remote   *remote.Client // nil when offline
	snapshot *sqlite.Snapshot
	audit    *audit.Logger
	store    *chat.Store
	streamer *chat.Streamer
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return config.LoadFrom(path)
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession builds the store and its collaborators and loads the thread
// set, from the remote endpoint when possible and the local snapshot
// otherwise.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:   cfg,
		log:   newLogger(opts, cmd.ErrOrStderr()),
		clock: clockwork.NewRealClock(),
	}
	s.classify = classifier.New(s.log)

	s.snapshot, err = sqlite.Open(cfg.Local.Path)
	if err != nil {
		return nil, err
	}

	var (
		persister chat.Persister
		archiver  chat.Archiver
		transport audit.Transport
	)
	if !opts.Offline && cfg.Remote.BaseURL != "" {
		s.remote = remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, remote.StaticToken(cfg.Remote.Token), s.log)
		persister, archiver = s.remote, s.remote
		transport = remote.NewAuditTransport(s.remote)
	}

	s.audit, err = audit.New(audit.Config{
		Secret:        cfg.Audit.HMACSecret,
		SessionID:     uuid.NewString(),
		UserAgent:     userAgent,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		Debug:         cfg.Audit.Debug,
		RingSize:      cfg.Audit.RingSize,
	}, transport, s.classify, s.clock, s.log)
	if err != nil {
		_ = s.snapshot.Close()
		return nil, fmt.Errorf("audit logger: %w", err)
	}
	if cfg.Remote.Token != "" {
		if id, err := auth.Subject(cfg.Remote.Token); err == nil {
			s.audit.SetUser(id.String())
		} else {
			s.log.Warn("token subject unreadable, audit entries are anonymous", slog.String("error", err.Error()))
		}
	}

	s.store = chat.New(chat.Config{
		MaxThreads:      cfg.Chat.MaxThreads,
		MaxMessages:     cfg.Chat.MaxMessages,
		ArchiveAfter:    cfg.Chat.ArchiveAfter,
		ArchiveInterval: cfg.Chat.ArchiveInterval,
		LoadPageSize:    cfg.Chat.LoadPageSize,
		LabData:         cfg.Chat.LabData,
	}, chat.Deps{
		Classifier: s.classify,
		Audit:      s.audit,
		Remote:     persister,
		Local:      s.snapshot,
		Archiver:   archiver,
		Clock:      s.clock,
	}, s.log)
	s.streamer = chat.NewStreamer(s.store, s.clock, cfg.Chat.StreamDelay)

	s.store.Load(ctx)
	s.store.ArchiveStale(ctx)
	return s, nil
}

// Close finishes streaming, saves unsaved changes and flushes the audit
// buffer.
func (s *session) Close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	s.streamer.Stop()
	s.store.Close(ctx)
	if err := s.audit.Close(ctx); err != nil {
		s.log.Warn("audit entries not delivered",
			slog.Int("pending", s.audit.Pending()),
			slog.String("error", err.Error()),
		)
	}
	if err := s.snapshot.Close(); err != nil {
		s.log.Warn("close snapshot", slog.String("error", err.Error()))
	}
}

// withSession runs fn against an open session and always closes it.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(s *session, out *printer) error) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())
	return fn(s, newPrinter(opts, cmd.OutOrStdout()))
}
