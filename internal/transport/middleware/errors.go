package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, RequestID: ctxutil.RequestIDFromCtx(r.Context())})
}
