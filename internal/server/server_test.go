package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/classroom/internal/config"
	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/model"
	"github.com/sakif/classroom/internal/server"
)

// echoExecutor succeeds with the submitted code as output, except for the
// language "cobol", which it rejects the way real backends do.
type echoExecutor struct{}

func (echoExecutor) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	if _, ok := executor.Resolve(req.Language); !ok {
		return executor.Failed(executor.KindUnsupportedLanguage, executor.UnsupportedMessage(req.Language), 0), nil
	}
	return executor.Succeeded(req.Code, 3), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{DBPath: ":memory:"},
		Auth: config.AuthConfig{
			JWTSecret: "integration-test-secret-123",
			TokenTTL:  time.Hour,
		},
		Executor: config.ExecutorConfig{Backend: config.BackendLocal, Timeout: time.Second, MaxConcurrent: 1},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := server.New(testConfig(), echoExecutor{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNew_RejectsShortJWTSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"

	_, err := server.New(cfg, echoExecutor{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestServer_PublicRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp := call(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp = call(t, ts, http.MethodGet, "/api/languages", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/auth/github/login", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "GitHub routes are absent when not configured")
}

func TestServer_ProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/api/courses/cs101/code/execute"},
		{http.MethodPost, "/api/courses/cs101/code/sessions"},
		{http.MethodGet, "/api/courses/cs101/code/sessions"},
		{http.MethodGet, "/api/courses/cs101/code/sessions/abc"},
	} {
		resp := call(t, ts, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.path)
	}
}

func TestServer_ExecutionFlow(t *testing.T) {
	ts := newTestServer(t)

	// Register
	resp := call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "analytical-engine",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var registered struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registered))
	require.NotEmpty(t, registered.Token)

	// Login with the same credentials
	resp = call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "analytical-engine",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token := registered.Token

	// Profile
	resp = call(t, ts, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile model.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, registered.User.ID, profile.ID)

	// Execute twice, one unsupported
	resp = call(t, ts, http.MethodPost, "/api/courses/cs101/code/execute", token, map[string]string{
		"language": "python", "code": "print('hi')",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result executor.ExecutionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, "print('hi')", result.Output)

	resp = call(t, ts, http.MethodPost, "/api/courses/cs101/code/execute", token, map[string]string{
		"language": "cobol", "code": "DISPLAY 'HI'.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Success)
	assert.Equal(t, "Unsupported language: cobol", result.Error)

	// Timed session
	resp = call(t, ts, http.MethodPost, "/api/courses/cs101/code/sessions", token, map[string]any{
		"language": "java", "code": "class Main {}", "time_limit_seconds": 600,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// History: newest first, all three rows
	resp = call(t, ts, http.MethodGet, "/api/courses/cs101/code/sessions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []model.CodeSession
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 3)
	assert.Equal(t, "java", history[0].Language)
	require.NotNil(t, history[0].TimeLimitSeconds)
	assert.Equal(t, 600, *history[0].TimeLimitSeconds)
	assert.Equal(t, "cobol", history[1].Language)
	assert.Equal(t, "unsupported_language", history[1].FailureKind)
	assert.Equal(t, "print('hi')", *history[2].Output)

	// One session by id, only within its own course
	resp = call(t, ts, http.MethodGet, "/api/courses/cs101/code/sessions/"+history[2].ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, history[2].ID, raw["id"])
	assert.Contains(t, raw, "duration_ms")
	assert.Contains(t, raw, "course_id")

	resp = call(t, ts, http.MethodGet, "/api/courses/cs202/code/sessions/"+history[2].ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Another course is empty
	resp = call(t, ts, http.MethodGet, "/api/courses/cs202/code/sessions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Empty(t, history)

	// Logout
	resp = call(t, ts, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
