package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

func TestWithUser_And_UserFromCtx(t *testing.T) {
	t.Parallel()

	u := domain.UserContext{
		ID:         uuid.New(),
		Roles:      []domain.Role{domain.RoleScientist},
		Attributes: domain.UserAttributes{Department: "genomics"},
	}
	ctx := WithUser(context.Background(), u)

	got, ok := UserFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for stored user")
	}
	if got.ID != u.ID || got.Attributes.Department != "genomics" {
		t.Fatalf("expected %+v, got %+v", u, got)
	}

	id, ok := UserIDFromCtx(ctx)
	if !ok || id != u.ID {
		t.Fatalf("expected id %s, got %s (ok=%v)", u.ID, id, ok)
	}
}

func TestUserFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	_, ok := UserFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}

	id, ok := UserIDFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
	if id != uuid.Nil {
		t.Fatalf("expected uuid.Nil, got %s", id)
	}
}

func TestUserFromCtx_NilID(t *testing.T) {
	t.Parallel()

	ctx := WithUser(context.Background(), domain.UserContext{Roles: []domain.Role{domain.RoleAdmin}})

	if _, ok := UserFromCtx(ctx); ok {
		t.Fatal("expected ok=false for nil user id")
	}
}

func TestUserFromCtx_WrongType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey("user"), "not-a-user")

	if _, ok := UserFromCtx(ctx); ok {
		t.Fatal("expected ok=false for wrong type")
	}
}

func TestWithRequestID_And_RequestIDFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "req-123")

	got := RequestIDFromCtx(ctx)
	if got != "req-123" {
		t.Fatalf("expected req-123, got %s", got)
	}
}

func TestRequestIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got := RequestIDFromCtx(context.Background())
	if got != "" {
		t.Fatalf("expected empty string, got %s", got)
	}
}
