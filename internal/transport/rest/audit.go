package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/labassist-backend/internal/audit"
	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

const maxAuditBatch = 500

type auditStore interface {
	Insert(ctx context.Context, entries []domain.AuditEntry) (int, error)
	ListByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]domain.AuditEntry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error)
}

type entryChecker interface {
	Admit(e domain.AuditEntry) (domain.AuditEntry, error)
}

type incidentReporter interface {
	SecurityIncident(ctx context.Context, action string, severity domain.Severity, meta map[string]any)
}

// AuditHandler receives client audit batches and serves the audit trail.
type AuditHandler struct {
	store     auditStore
	checker   entryChecker
	incidents incidentReporter
	log       *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(store auditStore, checker entryChecker, incidents incidentReporter, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: store, checker: checker, incidents: incidents, log: logger.With("handler", "audit")}
}

type auditBatchRequest struct {
	Logs       []domain.AuditEntry `json:"logs"`
	ClientTime time.Time           `json:"clientTime"`
}

// Rejection explains why one entry of a batch was not stored.
type Rejection struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// IngestResponse summarises a received batch.
type IngestResponse struct {
	Received int         `json:"received"`
	Stored   int         `json:"stored"`
	Rejected []Rejection `json:"rejected"`
}

// Ingest handles POST /audit/logs. Entries are verified one by one; intact
// entries are stored even when others in the batch are rejected, so a
// client never re-sends a batch because of a single bad entry. Entries from
// a client without the audit secret are re-stamped with the server key.
// Only a keyed checksum mismatch or a user mismatch counts as tampering.
func (h *AuditHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	caller, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req auditBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if len(req.Logs) > maxAuditBatch {
		handleError(w, r, h.log, domain.NewValidationError("logs", "batch too large"))
		return
	}

	resp := IngestResponse{Received: len(req.Logs), Rejected: []Rejection{}}
	accepted := make([]domain.AuditEntry, 0, len(req.Logs))
	tampered := 0
	for _, e := range req.Logs {
		if e.UserID != nil && *e.UserID != caller.String() {
			resp.Rejected = append(resp.Rejected, Rejection{ID: e.ID, Reason: "user mismatch"})
			tampered++
			continue
		}
		admitted, err := h.checker.Admit(e)
		if err != nil {
			resp.Rejected = append(resp.Rejected, Rejection{ID: e.ID, Reason: err.Error()})
			if errors.Is(err, audit.ErrChecksum) {
				tampered++
			}
			continue
		}
		accepted = append(accepted, admitted)
	}

	stored, err := h.store.Insert(r.Context(), accepted)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	resp.Stored = stored

	if len(resp.Rejected) > 0 {
		h.log.WarnContext(r.Context(), "audit entries rejected",
			slog.String("user_id", caller.String()),
			slog.Int("rejected", len(resp.Rejected)),
			slog.Int("received", resp.Received),
		)
	}
	if tampered > 0 {
		h.incidents.SecurityIncident(r.Context(), "audit batch integrity failure", domain.SeverityCritical,
			map[string]any{"tampered": tampered, "received": resp.Received})
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// List handles GET /audit/logs, filtered either by resourceType and
// resourceId or by userId.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	limit = min(max(limit, 1), maxPageLimit)

	var entries []domain.AuditEntry
	switch {
	case q.Get("resourceType") != "" && q.Get("resourceId") != "":
		entries, err = h.store.ListByResource(r.Context(), q.Get("resourceType"), q.Get("resourceId"), limit)
	case q.Get("userId") != "":
		offset, oerr := queryInt(r, "offset", 0)
		if oerr != nil {
			handleError(w, r, h.log, oerr)
			return
		}
		entries, err = h.store.ListByUser(r.Context(), q.Get("userId"), limit, max(offset, 0))
	default:
		err = domain.NewValidationError("query", "resourceType and resourceId, or userId, required")
	}
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}
