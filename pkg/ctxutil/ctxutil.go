package ctxutil

import (
	"context"

	"github.com/google/uuid"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

type ctxKey string

const (
	userKey      ctxKey = "user"
	requestIDKey ctxKey = "request_id"
)

// WithUser stores the authenticated principal in the context.
func WithUser(ctx context.Context, u domain.UserContext) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromCtx extracts the authenticated principal from the context.
// Returns false if the value is missing, has a nil ID, or is the wrong type.
func UserFromCtx(ctx context.Context) (domain.UserContext, bool) {
	u, ok := ctx.Value(userKey).(domain.UserContext)
	if !ok || u.ID == uuid.Nil {
		return domain.UserContext{}, false
	}
	return u, true
}

// UserIDFromCtx extracts the principal's ID from the context.
// Returns uuid.Nil and false if there is no principal.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	u, ok := UserFromCtx(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
