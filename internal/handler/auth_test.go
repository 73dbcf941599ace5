package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/classroom/internal/apperror"
	"github.com/sakif/classroom/internal/auth"
	"github.com/sakif/classroom/internal/handler"
	"github.com/sakif/classroom/internal/model"
	"github.com/sakif/classroom/internal/service"
)

type MockAuthService struct {
	Result *service.AuthResult
	User   *model.User
	Err    error

	GitHubUser *auth.GitHubUser
}

func (m *MockAuthService) Register(_ context.Context, username, email, password string) (*service.AuthResult, error) {
	return m.Result, m.Err
}

func (m *MockAuthService) Login(_ context.Context, email, password string) (*service.AuthResult, error) {
	return m.Result, m.Err
}

func (m *MockAuthService) LoginOrRegisterGitHub(_ context.Context, gh *auth.GitHubUser) (*service.AuthResult, error) {
	m.GitHubUser = gh
	return m.Result, m.Err
}

func (m *MockAuthService) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return m.User, m.Err
}

type MockProvider struct {
	User *auth.GitHubUser
	Err  error
}

func (m *MockProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (m *MockProvider) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	return m.User, m.Err
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)
	return ts
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_HandleRegister(t *testing.T) {
	svc := &MockAuthService{Result: &service.AuthResult{
		User:  &model.User{ID: "u1", Username: "ada", PasswordHash: "secret-hash"},
		Token: "tok",
	}}
	h := handler.NewAuthHandler(svc, nil, newTokens(t), discardLogger())

	rr := do(t, http.HandlerFunc(h.HandleRegister), http.MethodPost, "/api/auth/register",
		`{"username":"ada","email":"ada@example.com","password":"password1"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret-hash", "password hash must never be serialized")

	var body struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "tok", body.Token)
	assert.Equal(t, "u1", body.User.ID)

	cookie := findCookie(rr, auth.CookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, "tok", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
}

func TestAuthHandler_HandleRegister_Conflict(t *testing.T) {
	svc := &MockAuthService{Err: &apperror.AppError{Err: apperror.ErrConflict, Message: "taken", Field: "email"}}
	h := handler.NewAuthHandler(svc, nil, newTokens(t), discardLogger())

	rr := do(t, http.HandlerFunc(h.HandleRegister), http.MethodPost, "/api/auth/register", `{}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := &MockAuthService{Result: &service.AuthResult{User: &model.User{ID: "u1"}, Token: "tok"}}
		h := handler.NewAuthHandler(svc, nil, newTokens(t), discardLogger())

		rr := do(t, http.HandlerFunc(h.HandleLogin), http.MethodPost, "/api/auth/login",
			`{"email":"a@example.com","password":"x"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := &MockAuthService{Err: apperror.Unauthorized("invalid email or password")}
		h := handler.NewAuthHandler(svc, nil, newTokens(t), discardLogger())

		rr := do(t, http.HandlerFunc(h.HandleLogin), http.MethodPost, "/api/auth/login",
			`{"email":"a@example.com","password":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, findCookie(rr, auth.CookieName))
	})
}

func TestAuthHandler_HandleProfile(t *testing.T) {
	svc := &MockAuthService{User: &model.User{ID: "u1", Username: "ada"}}
	h := handler.NewAuthHandler(svc, nil, newTokens(t), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))
	rr := httptest.NewRecorder()
	h.HandleProfile(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"ada"`)
}

func TestAuthHandler_HandleLogout(t *testing.T) {
	h := handler.NewAuthHandler(&MockAuthService{}, nil, newTokens(t), discardLogger())

	rr := do(t, http.HandlerFunc(h.HandleLogout), http.MethodPost, "/auth/logout", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	cookie := findCookie(rr, auth.CookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, "", cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestAuthHandler_GitHubFlow(t *testing.T) {
	svc := &MockAuthService{Result: &service.AuthResult{User: &model.User{ID: "u1"}, Token: "tok"}}
	provider := &MockProvider{User: &auth.GitHubUser{ID: 42, Login: "octocat"}}
	h := handler.NewAuthHandler(svc, provider, newTokens(t), discardLogger())

	// Step 1: login redirects to the provider with a state cookie.
	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	state := findCookie(rr, "oauth_state")
	require.NotNil(t, state)
	assert.Contains(t, rr.Header().Get("Location"), url.QueryEscape(state.Value))

	callback := func(query string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, req)
		return rr
	}

	t.Run("state mismatch", func(t *testing.T) {
		rr := callback("state=forged&code=abc", state)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing state cookie", func(t *testing.T) {
		rr := callback("state="+state.Value+"&code=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("user denied", func(t *testing.T) {
		rr := callback("state="+state.Value+"&error=access_denied", state)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
	})

	t.Run("success", func(t *testing.T) {
		rr := callback("state="+state.Value+"&code=abc", state)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, int64(42), svc.GitHubUser.ID)
		token := findCookie(rr, auth.CookieName)
		require.NotNil(t, token)
		assert.Equal(t, "tok", token.Value)
	})

	t.Run("exchange failure", func(t *testing.T) {
		provider.Err = errors.New("bad code")
		defer func() { provider.Err = nil }()
		rr := callback("state="+state.Value+"&code=abc", state)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestAuthHandler_GitHubNotConfigured(t *testing.T) {
	h := handler.NewAuthHandler(&MockAuthService{}, nil, newTokens(t), discardLogger())

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
