package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

type accessChecker interface {
	Can(ctx context.Context, req domain.AccessRequest) domain.Decision
}

// AccessHandler answers "may I?" questions for the caller, so the client
// can hide what it cannot do.
type AccessHandler struct {
	authz accessChecker
	log   *slog.Logger
}

// NewAccessHandler creates an AccessHandler.
func NewAccessHandler(authz accessChecker, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{authz: authz, log: logger.With("handler", "access")}
}

// AccessResponse is the JSON body of GET /access.
type AccessResponse struct {
	Permission string `json:"permission"`
	domain.Decision
	LatencyMs float64 `json:"latencyMs"`
}

// Check handles GET /access?resource=&action=[&ownerId=&department=&timeRestricted=].
func (h *AccessHandler) Check(w http.ResponseWriter, r *http.Request) {
	user, ok := ctxutil.UserFromCtx(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	req := domain.AccessRequest{
		User:     user,
		Resource: domain.Resource(q.Get("resource")),
		Action:   domain.Action(q.Get("action")),
		Context:  domain.ResourceContext{Department: q.Get("department")},
	}

	var errs []domain.FieldError
	if !req.Resource.IsValid() {
		errs = append(errs, domain.FieldError{Field: "resource", Message: "unknown resource"})
	}
	if !req.Action.IsValid() {
		errs = append(errs, domain.FieldError{Field: "action", Message: "unknown action"})
	}
	if raw := q.Get("ownerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "ownerId", Message: "must be a UUID"})
		} else {
			req.Context.OwnerID = &id
		}
	}
	if raw := q.Get("timeRestricted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "timeRestricted", Message: "must be a boolean"})
		}
		req.Context.TimeRestricted = b
	}
	if len(errs) > 0 {
		handleError(w, r, h.log, domain.NewValidationErrors(errs))
		return
	}

	d := h.authz.Can(r.Context(), req)
	writeJSON(w, http.StatusOK, AccessResponse{
		Permission: domain.Permission{Resource: req.Resource, Action: req.Action}.String(),
		Decision:   d,
		LatencyMs:  float64(d.Latency.Microseconds()) / 1000,
	})
}
