package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

// maxBodyBytes bounds request bodies. A full thread set at capacity fits
// comfortably.
const maxBodyBytes = 8 << 20

type errorResponse struct {
	Error     string              `json:"error"`
	Fields    []domain.FieldError `json:"fields,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: ctxutil.RequestIDFromCtx(r.Context())})
}

func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "validation error",
			Fields:    verr.Errors,
			RequestID: ctxutil.RequestIDFromCtx(r.Context()),
		})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict")
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, domain.ErrValidation)
	}
	return nil
}
