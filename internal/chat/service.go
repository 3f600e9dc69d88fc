// Package chat owns the in-memory set of conversation threads. Every
// mutation is classified, audited and mirrored to persistence on a best
// effort basis; memory is always the source of truth.
package chat

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"

	"github.com/heartmarshall/labassist-backend/internal/backoff"
	"github.com/heartmarshall/labassist-backend/internal/classifier"
	"github.com/heartmarshall/labassist-backend/internal/domain"
)

const (
	DefaultMaxThreads      = 50
	DefaultMaxMessages     = 100
	DefaultArchiveAfter    = 30 * 24 * time.Hour
	DefaultArchiveInterval = time.Hour
	DefaultLoadPageSize    = 50
)

type contentClassifier interface {
	Verdict(content string, ctx classifier.Context) *domain.Verdict
}

type auditLogger interface {
	MessageEvent(ctx context.Context, typ domain.EventType, threadID, messageID string, role domain.MessageRole, v *domain.Verdict)
	ThreadEvent(ctx context.Context, typ domain.EventType, threadID string, prev, next any, meta map[string]any)
	DataAccess(ctx context.Context, typ domain.EventType, resourceType, resourceID string, outcome domain.Outcome, meta map[string]any)
}

// Persister mirrors the thread set to storage.
type Persister interface {
	SaveThreads(ctx context.Context, threads []domain.Thread) error
	LoadThreads(ctx context.Context, page, limit int) (domain.ThreadPage, error)
}

// Archiver receives threads dropped for age.
type Archiver interface {
	Archive(ctx context.Context, threads []domain.Thread) error
}

// Config holds capacity, archival and persistence settings.
type Config struct {
	MaxThreads      int
	MaxMessages     int
	ArchiveAfter    time.Duration
	ArchiveInterval time.Duration
	// SaveDebounce is the quiet period before a mutation triggers a save.
	// Zero disables automatic saving.
	SaveDebounce time.Duration
	LoadPageSize int
	// LabData classifies all content as lab data, raising unmatched text
	// to CONFIDENTIAL.
	LabData bool
}

func (c Config) withDefaults() Config {
	if c.MaxThreads <= 0 {
		c.MaxThreads = DefaultMaxThreads
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.ArchiveAfter <= 0 {
		c.ArchiveAfter = DefaultArchiveAfter
	}
	if c.ArchiveInterval <= 0 {
		c.ArchiveInterval = DefaultArchiveInterval
	}
	if c.LoadPageSize <= 0 {
		c.LoadPageSize = DefaultLoadPageSize
	}
	return c
}

// Deps are the collaborators of a Store. Remote, Local and Archiver are
// optional.
type Deps struct {
	Classifier contentClassifier
	Audit      auditLogger
	Remote     Persister
	// Local is used when the remote path gives up, and receives a copy of
	// every successful save.
	Local    Persister
	Archiver Archiver
	Clock    clockwork.Clock
}

// Store is the chat thread store. It is safe for concurrent use; every
// public operation runs under a single mutex.
type Store struct {
	cfg      Config
	log      *slog.Logger
	classify contentClassifier
	audit    auditLogger
	remote   Persister
	local    Persister
	archiver Archiver
	clock    clockwork.Clock

	saveLimiter *backoff.Limiter
	loadLimiter *backoff.Limiter

	saveReq chan struct{}
	bg      sync.WaitGroup

	mu      sync.Mutex
	threads []*domain.Thread // creation order
	active  string
	pending string
	// streamOrigin holds the content a streaming message started with.
	streamOrigin map[string]string
	dirty        bool
	// closed is set by Close; later archive calls run inline instead of
	// joining bg.
	closed  bool
	entropy *ulid.MonotonicEntropy
}

// New creates a Store.
func New(cfg Config, deps Deps, log *slog.Logger) *Store {
	cfg = cfg.withDefaults()
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		cfg:          cfg,
		log:          log.With("service", "chat"),
		classify:     deps.Classifier,
		audit:        deps.Audit,
		remote:       deps.Remote,
		local:        deps.Local,
		archiver:     deps.Archiver,
		clock:        clock,
		saveLimiter:  backoff.NewLimiter("chat_save", backoff.DefaultConfig(), clock, log),
		loadLimiter:  backoff.NewLimiter("chat_load", backoff.DefaultConfig(), clock, log),
		saveReq:      make(chan struct{}, 1),
		streamOrigin: make(map[string]string),
		entropy:      ulid.Monotonic(rand.Reader, 0),
	}
}

// newID returns a time-ordered identifier. Caller must hold s.mu.
func (s *Store) newID() string {
	id, err := ulid.New(ulid.Timestamp(s.clock.Now()), s.entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

// now returns the current time in UTC truncated to milliseconds, the
// precision persistence keeps.
func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

// find returns the thread with id. Caller must hold s.mu.
func (s *Store) find(id string) (int, *domain.Thread) {
	for i, t := range s.threads {
		if t.ID == id {
			return i, t
		}
	}
	return -1, nil
}

// removeAt drops the thread at index i and repairs the active and pending
// pointers. Caller must hold s.mu.
func (s *Store) removeAt(i int) *domain.Thread {
	t := s.threads[i]
	s.threads = append(s.threads[:i:i], s.threads[i+1:]...)
	for _, m := range t.Messages {
		delete(s.streamOrigin, m.ID)
	}
	if s.pending == t.ID {
		s.pending = ""
	}
	if s.active == t.ID {
		s.active = ""
		if next := s.mostRecent(); next != nil {
			s.active = next.ID
		}
	}
	return t
}

// mostRecent returns the most recently updated thread, preferring the later
// created one on ties. Caller must hold s.mu.
func (s *Store) mostRecent() *domain.Thread {
	var best *domain.Thread
	for _, t := range s.threads {
		if best == nil || !t.UpdatedAt.Before(best.UpdatedAt) {
			best = t
		}
	}
	return best
}

func threadSummary(t *domain.Thread) map[string]any {
	return map[string]any{
		"title":        t.Title,
		"messageCount": len(t.Messages),
	}
}
