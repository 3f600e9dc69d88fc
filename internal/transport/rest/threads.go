package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

type threadRepo interface {
	SaveThreads(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread) error
	ListThreads(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.ThreadPage, error)
	Archive(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread, at time.Time) error
}

type dataAuditor interface {
	DataAccess(ctx context.Context, typ domain.EventType, resourceType, resourceID string, outcome domain.Outcome, meta map[string]any)
}

// ThreadLimits bounds what a client may store.
type ThreadLimits struct {
	MaxThreads  int
	MaxMessages int
}

// ThreadHandler serves the thread persistence endpoints. Every request is
// scoped to the caller's own threads.
type ThreadHandler struct {
	repo   threadRepo
	audit  dataAuditor
	limits ThreadLimits
	now    func() time.Time
	log    *slog.Logger
}

// NewThreadHandler creates a ThreadHandler.
func NewThreadHandler(repo threadRepo, audit dataAuditor, limits ThreadLimits, logger *slog.Logger) *ThreadHandler {
	return &ThreadHandler{
		repo:   repo,
		audit:  audit,
		limits: limits,
		now:    time.Now,
		log:    logger.With("handler", "threads"),
	}
}

type threadsRequest struct {
	Threads []domain.Thread `json:"threads"`
}

// Save handles POST /threads: the body replaces the caller's live set.
func (h *ThreadHandler) Save(w http.ResponseWriter, r *http.Request) {
	owner, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req threadsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if err := h.validate(req.Threads, true); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.repo.SaveThreads(r.Context(), owner, req.Threads); err != nil {
		h.audit.DataAccess(r.Context(), domain.EventDataPersistFailed, "threads", owner.String(), domain.OutcomeFailure,
			map[string]any{"threadCount": len(req.Threads)})
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /threads?page=&limit=.
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	page = max(page, 1)
	limit = min(max(limit, 1), maxPageLimit)

	result, err := h.repo.ListThreads(r.Context(), owner, page, limit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	h.audit.DataAccess(r.Context(), domain.EventDataRead, "threads", owner.String(), domain.OutcomeSuccess,
		map[string]any{"page": page, "returned": len(result.Threads), "total": result.Total})
	writeJSON(w, http.StatusOK, result)
}

// Archive handles POST /archive.
func (h *ThreadHandler) Archive(w http.ResponseWriter, r *http.Request) {
	owner, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req threadsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if err := h.validate(req.Threads, false); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.repo.Archive(r.Context(), owner, req.Threads, h.now().UTC()); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	h.log.InfoContext(r.Context(), "threads archived",
		slog.String("owner_id", owner.String()),
		slog.Int("count", len(req.Threads)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// validate checks the structural invariants of a thread set. capped applies
// the live-set capacity limits.
func (h *ThreadHandler) validate(threads []domain.Thread, capped bool) error {
	var errs []domain.FieldError
	add := func(field, msg string) { errs = append(errs, domain.FieldError{Field: field, Message: msg}) }

	if capped && h.limits.MaxThreads > 0 && len(threads) > h.limits.MaxThreads {
		add("threads", fmt.Sprintf("at most %d threads", h.limits.MaxThreads))
	}

	seen := make(map[string]struct{}, len(threads))
	for i, t := range threads {
		field := fmt.Sprintf("threads[%d]", i)
		if t.ID == "" {
			add(field+".id", "required")
		} else if _, dup := seen[t.ID]; dup {
			add(field+".id", "duplicate")
		}
		seen[t.ID] = struct{}{}

		if capped && h.limits.MaxMessages > 0 && len(t.Messages) > h.limits.MaxMessages {
			add(field+".messages", fmt.Sprintf("at most %d messages", h.limits.MaxMessages))
		}
		for j, m := range t.Messages {
			if m.ID == "" {
				add(fmt.Sprintf("%s.messages[%d].id", field, j), "required")
			}
			if !m.Role.IsValid() {
				add(fmt.Sprintf("%s.messages[%d].role", field, j), "must be user, assistant or system")
			}
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return n, nil
}
