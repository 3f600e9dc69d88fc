package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/pkg/ctxutil"
)

//go:generate moq -out access_checker_mock_test.go -pkg middleware . accessChecker

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAuthorize_Allowed(t *testing.T) {
	t.Parallel()

	user := domain.UserContext{ID: uuid.New(), Roles: []domain.Role{domain.RoleViewer}}
	checker := &accessCheckerMock{
		CanFunc: func(ctx context.Context, req domain.AccessRequest) domain.Decision {
			return domain.Decision{Allowed: true, Reason: "owner may view own resource"}
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/threads", nil)
	req = req.WithContext(ctxutil.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	Authorize(checker, domain.ResourceThreads, domain.ActionView, OwnData)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	calls := checker.CanCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.ResourceThreads, calls[0].Req.Resource)
	assert.Equal(t, domain.ActionView, calls[0].Req.Action)
	require.NotNil(t, calls[0].Req.Context.OwnerID)
	assert.Equal(t, user.ID, *calls[0].Req.Context.OwnerID)
}

func TestAuthorize_Denied(t *testing.T) {
	t.Parallel()

	checker := &accessCheckerMock{
		CanFunc: func(ctx context.Context, req domain.AccessRequest) domain.Decision {
			return domain.Decision{Allowed: false, Reason: "no role grants audit_logs:view"}
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/logs", nil)
	req = req.WithContext(ctxutil.WithUser(req.Context(), domain.UserContext{ID: uuid.New()}))
	rec := httptest.NewRecorder()

	Authorize(checker, domain.ResourceAuditLogs, domain.ActionView, nil)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "no role grants audit_logs:view")
	require.Len(t, checker.CanCalls(), 1)
	assert.Nil(t, checker.CanCalls()[0].Req.Context.OwnerID, "no scope means empty resource context")
}

func TestAuthorize_Anonymous(t *testing.T) {
	t.Parallel()

	checker := &accessCheckerMock{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/threads", nil)
	rec := httptest.NewRecorder()

	Authorize(checker, domain.ResourceThreads, domain.ActionView, OwnData)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, checker.CanCalls())
}
