package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/labassist-backend/internal/adapter/remote"
	"github.com/heartmarshall/labassist-backend/internal/auth"
	"github.com/heartmarshall/labassist-backend/internal/domain"
)

const testSecret = "cli-test-secret-at-least-32-characters"

// writeConfig writes a config file into a fresh directory and returns its
// path. remoteURL and token may be empty.
func writeConfig(t *testing.T, remoteURL, token string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`env: development
auth:
  jwt_secret: %q
  jwt_issuer: labassist-test
audit:
  hmac_secret: %q
chat:
  stream_delay: 1ms
local:
  path: %q
remote:
  base_url: %q
  token: %q
  timeout: 2s
`, testSecret, testSecret, filepath.Join(dir, "snapshot.db"), remoteURL, token)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes labchat with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func runYAML[T any](t *testing.T, args ...string) T {
	t.Helper()
	out, err := run(t, append(args, "--format", "yaml")...)
	require.NoError(t, err)
	var v T
	require.NoError(t, yaml.Unmarshal([]byte(out), &v), out)
	return v
}

// ---------------------------------------------------------------------------
// Root
// ---------------------------------------------------------------------------

func TestRootCommand_Commands(t *testing.T) {
	t.Parallel()
	cmd := NewRootCommand()

	for _, name := range []string{"send", "new", "threads", "show", "rename", "delete", "clear", "search", "classify", "access", "token"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	t.Parallel()

	_, err := run(t, "classify", "hello", "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// ---------------------------------------------------------------------------
// Thread commands (offline)
// ---------------------------------------------------------------------------

func TestSend_PersistsAcrossInvocations(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	sent := runYAML[sendResult](t, "send", "calibrate", "the", "centrifuge", "-c", cfg, "--offline")
	assert.True(t, sent.CreatedThread)
	assert.Equal(t, "calibrate the centrifuge", sent.Message.Content)
	assert.Equal(t, "user", sent.Message.Role)

	list := runYAML[[]threadSummary](t, "threads", "-c", cfg, "--offline")
	require.Len(t, list, 1)
	assert.Equal(t, sent.ThreadID, list[0].ID)
	assert.Equal(t, "calibrate the centrifuge", list[0].Title)
	assert.Equal(t, 1, list[0].Messages)

	again := runYAML[sendResult](t, "send", "and", "log", "it", "-c", cfg, "--offline", "--thread", sent.ThreadID)
	assert.False(t, again.CreatedThread)

	shown := runYAML[threadView](t, "show", sent.ThreadID, "-c", cfg, "--offline")
	require.Len(t, shown.Messages, 2)
	assert.Equal(t, "and log it", shown.Messages[1].Content)
}

func TestSend_StreamsReply(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	sent := runYAML[sendResult](t, "send", "status?", "--reply", "all runs nominal", "-c", cfg, "--offline")
	require.NotNil(t, sent.Reply)
	assert.Equal(t, "assistant", sent.Reply.Role)
	assert.Equal(t, "all runs nominal", sent.Reply.Content)
}

func TestSend_UnknownThread(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	_, err := run(t, "send", "hi", "--thread", "01NOSUCHTHREAD", "-c", cfg, "--offline")
	assert.ErrorIs(t, err, errNoThread)
}

func TestRenameClearDelete(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	sent := runYAML[sendResult](t, "send", "first", "-c", cfg, "--offline")
	id := sent.ThreadID

	res := runYAML[actionResult](t, "rename", id, "Buffer", "prep", "-c", cfg, "--offline")
	assert.Equal(t, "renamed", res.Action)

	runYAML[actionResult](t, "clear", id, "-c", cfg, "--offline")
	shown := runYAML[threadView](t, "show", id, "-c", cfg, "--offline")
	assert.Equal(t, "Buffer prep", shown.Title)
	assert.Empty(t, shown.Messages)

	runYAML[actionResult](t, "delete", id, "-c", cfg, "--offline")
	_, err := run(t, "show", id, "-c", cfg, "--offline")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewAndSearch(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	created := runYAML[threadSummary](t, "new", "PCR", "notes", "-c", cfg, "--offline")
	assert.Equal(t, "PCR notes", created.Title)
	runYAML[sendResult](t, "send", "unrelated", "-c", cfg, "--offline", "--thread", created.ID)

	found := runYAML[[]threadSummary](t, "search", "pcr", "-c", cfg, "--offline")
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	none := runYAML[[]threadSummary](t, "search", "zebrafish", "-c", cfg, "--offline")
	assert.Empty(t, none)
}

func TestThreads_TextOutput(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	out, err := run(t, "threads", "-c", cfg, "--offline")
	require.NoError(t, err)
	assert.Equal(t, "no threads\n", out)
}

// ---------------------------------------------------------------------------
// classify / token
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	t.Parallel()

	plain := runYAML[classifyResult](t, "classify", "hello", "there")
	assert.Equal(t, string(domain.SensitivityPublic), plain.Sensitivity)

	lab := runYAML[classifyResult](t, "classify", "hello", "there", "--lab-data")
	assert.Equal(t, string(domain.SensitivityConfidential), lab.Sensitivity)
}

func TestToken_IssuesVerifiableToken(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	res := runYAML[tokenResult](t, "token", "-c", cfg, "--role", "scientist", "--department", "genomics")
	assert.Equal(t, []string{"scientist"}, res.Roles)

	user, err := auth.NewTokenManager(testSecret, "labassist-test", time.Minute, nil).
		ValidateToken(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Subject, user.ID.String())
	assert.Equal(t, []domain.Role{domain.RoleScientist}, user.Roles)
	assert.Equal(t, "genomics", user.Attributes.Department)
}

func TestToken_UnknownRole(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	_, err := run(t, "token", "-c", cfg, "--role", "root")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---------------------------------------------------------------------------
// Remote
// ---------------------------------------------------------------------------

// fakeServer records what labchat sends to the persistence endpoint.
type fakeServer struct {
	mu      sync.Mutex
	saved   [][]domain.Thread
	audited []domain.AuditEntry
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /threads", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domain.ThreadPage{Threads: []domain.Thread{}, Total: 0})
	})
	mux.HandleFunc("POST /threads", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Threads []domain.Thread `json:"threads"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.saved = append(f.saved, body.Threads)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /audit/logs", func(w http.ResponseWriter, r *http.Request) {
		var batch remote.AuditBatch
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		f.mu.Lock()
		f.audited = append(f.audited, batch.Logs...)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /access", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "threads", r.URL.Query().Get("resource"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"permission":"threads:delete","allowed":false,"reason":"requires scientist","requiredRole":"scientist","latencyMs":0.1}`))
	})
	return mux
}

func TestSend_RemoteSavesAndAudits(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	user := domain.UserContext{ID: mustUUID(t), Roles: []domain.Role{domain.RoleScientist}}
	token, err := auth.NewTokenManager(testSecret, "labassist-test", time.Minute, nil).Issue(user)
	require.NoError(t, err)
	cfg := writeConfig(t, srv.URL, token)

	sent := runYAML[sendResult](t, "send", "hello", "lab", "-c", cfg)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.saved)
	last := fake.saved[len(fake.saved)-1]
	require.Len(t, last, 1)
	assert.Equal(t, sent.ThreadID, last[0].ID)

	require.NotEmpty(t, fake.audited)
	for _, e := range fake.audited {
		require.NotNil(t, e.UserID)
		assert.Equal(t, user.ID.String(), *e.UserID)
		assert.NotEmpty(t, e.Checksum)
	}
}

func TestAccess(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	res := runYAML[accessResult](t, "access", "threads", "delete", "-c", cfg)
	assert.False(t, res.Allowed)
	assert.Equal(t, "scientist", res.RequiredRole)
}

func TestAccess_Offline(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, "", "")

	_, err := run(t, "access", "threads", "view", "-c", cfg, "--offline")
	assert.True(t, errors.Is(err, errOffline))
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id
}
