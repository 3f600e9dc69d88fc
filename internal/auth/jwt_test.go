package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func testUser() domain.UserContext {
	return domain.UserContext{
		ID:    uuid.New(),
		Email: "ana@lab.example",
		Roles: []domain.Role{domain.RoleScientist, domain.RoleTechnician},
		Attributes: domain.UserAttributes{
			Department: "genomics",
			Site:       "north",
			Clearance:  domain.SensitivityConfidential,
		},
	}
}

func TestTokenManager_IssueAndValidate_Success(t *testing.T) {
	t.Parallel()
	manager := NewTokenManager(testSecret, "labassist-test", 15*time.Minute, nil)
	user := testUser()

	token, err := manager.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := manager.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected userID %s, got %s", user.ID, got.ID)
	}
	if got.Email != user.Email {
		t.Errorf("expected email %q, got %q", user.Email, got.Email)
	}
	if len(got.Roles) != 2 || got.Roles[0] != domain.RoleScientist {
		t.Errorf("unexpected roles: %v", got.Roles)
	}
	if got.Attributes != user.Attributes {
		t.Errorf("expected attributes %+v, got %+v", user.Attributes, got.Attributes)
	}
}

func TestTokenManager_Issue_RejectsUnknownRole(t *testing.T) {
	t.Parallel()
	manager := NewTokenManager(testSecret, "labassist-test", time.Minute, nil)
	user := testUser()
	user.Roles = []domain.Role{"superuser"}

	_, err := manager.Issue(user)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTokenManager_Issue_RequiresID(t *testing.T) {
	t.Parallel()
	manager := NewTokenManager(testSecret, "labassist-test", time.Minute, nil)

	_, err := manager.Issue(domain.UserContext{Roles: []domain.Role{domain.RoleViewer}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTokenManager_ValidateToken_Expired(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	manager := NewTokenManager(testSecret, "labassist-test", 15*time.Minute, clock)

	token, err := manager.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock.Advance(16 * time.Minute)

	_, err = manager.ValidateToken(context.Background(), token)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("expected expiry in error, got %q", err.Error())
	}
}

func TestTokenManager_ValidateToken_InvalidSignature(t *testing.T) {
	t.Parallel()
	issuer := NewTokenManager(testSecret, "labassist-test", time.Minute, nil)
	verifier := NewTokenManager("another-secret-at-least-32-chars-long!!", "labassist-test", time.Minute, nil)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.ValidateToken(context.Background(), token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenManager_ValidateToken_WrongIssuer(t *testing.T) {
	t.Parallel()
	a := NewTokenManager(testSecret, "issuer-a", time.Minute, nil)
	b := NewTokenManager(testSecret, "issuer-b", time.Minute, nil)

	token, err := a.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := b.ValidateToken(context.Background(), token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenManager_ValidateToken_WrongAlgorithm(t *testing.T) {
	t.Parallel()
	manager := NewTokenManager(testSecret, "labassist-test", time.Minute, nil)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "labassist-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := manager.ValidateToken(context.Background(), unsigned); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenManager_ValidateToken_Malformed(t *testing.T) {
	t.Parallel()
	manager := NewTokenManager(testSecret, "labassist-test", time.Minute, nil)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.ValidateToken(context.Background(), tok); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("token %q: expected ErrUnauthorized, got %v", tok, err)
		}
	}
}

func TestTokenManager_ValidateToken_DropsUnknownRoles(t *testing.T) {
	t.Parallel()
	manager := NewTokenManager(testSecret, "labassist-test", time.Minute, nil)
	now := time.Now()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "labassist-test",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Roles: []domain.Role{"root", domain.RoleViewer},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := manager.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if len(got.Roles) != 1 || got.Roles[0] != domain.RoleViewer {
		t.Errorf("expected only viewer, got %v", got.Roles)
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()
	manager := NewTokenManager(testSecret, "labassist-test", time.Minute, nil)
	user := testUser()

	token, err := manager.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := Subject(token)
	if err != nil {
		t.Fatalf("Subject failed: %v", err)
	}
	if got != user.ID {
		t.Errorf("expected subject %s, got %s", user.ID, got)
	}

	if _, err := Subject("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}
