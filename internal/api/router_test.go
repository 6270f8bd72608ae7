package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/crisalida-app/crisalida-be/internal/auth"
	"github.com/crisalida-app/crisalida-be/internal/config"
	"github.com/crisalida-app/crisalida-be/internal/database"
	"github.com/crisalida-app/crisalida-be/internal/models"
	"github.com/crisalida-app/crisalida-be/internal/services"
)

// testUserForToken is a user identity that exists only as token claims,
// never in the store.
func testUserForToken() models.User {
	return models.User{
		ID:    "3b6c8f1e-0000-4000-8000-0000000000ff",
		Email: "ghost@x.com",
		Role:  models.RoleLearner,
	}
}

type testEnv struct {
	router http.Handler
	tokens *auth.TokenManager
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		AccessSecret:    "test-access-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		CORSOrigin:      "http://localhost:3000",
	}

	log := zerolog.Nop()
	tokens := auth.NewTokenManager(cfg)
	userService := services.NewUserService(db)
	authService := services.NewAuthService(userService, tokens, log)

	return &testEnv{
		router: NewRouter(authService, userService, tokens, cfg.CORSOrigin, log),
		tokens: tokens,
		cfg:    cfg,
	}
}

type response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func (e *testEnv) register(t *testing.T, email, password string) {
	t.Helper()
	rec, _ := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Test User", "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (e *testEnv) login(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	rec, resp := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return resp.Data["accessToken"].(string), resp.Data["refreshToken"].(string)
}

func TestRootStatus(t *testing.T) {
	env := newTestEnv(t)
	rec, resp := env.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.Equal(t, "running", resp.Data["status"])
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, resp.Success)
	require.Equal(t, "a@x.com", resp.Data["email"])
	require.NotEmpty(t, resp.Data["id"])

	// Same email again is a conflict, regardless of password.
	rec, resp = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@x.com", "password": "secret2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, resp.Success)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []map[string]string{
		{"email": "not-an-email", "password": "secret1"},
		{"email": "a@x.com", "password": "short"},
		{"email": "a@x.com"},
		{"password": "secret1"},
	}
	for _, payload := range cases {
		rec, _ := env.do(t, http.MethodPost, "/auth/register", "", payload)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestLogin_UniformInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")

	rec, wrongPass := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, unknown := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nouser@x.com", "password": "x",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Identical failure body for wrong password and unknown account.
	require.Equal(t, wrongPass.Message, unknown.Message)
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")

	rec, resp := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data["accessToken"])
	require.NotEmpty(t, resp.Data["refreshToken"])
}

func TestRefresh_Flow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")
	_, refreshToken := env.login(t, "a@x.com", "secret1")

	// Missing token is 401, before any verification.
	rec, _ := env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token is 403.
	rec, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"token": "garbage"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// A valid refresh rotates the pair...
	rec, resp := env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"token": refreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	newRefresh := resp.Data["refreshToken"].(string)
	require.NotEqual(t, refreshToken, newRefresh)

	// ...and replaying the old token fails.
	rec, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"token": refreshToken})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"token": newRefresh})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")
	_, refreshToken := env.login(t, "a@x.com", "secret1")

	rec, _ := env.do(t, http.MethodPost, "/auth/logout", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The refresh token is still cryptographically valid but no longer
	// matches the (now cleared) stored token.
	rec, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"token": refreshToken})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Logging out again still succeeds.
	rec, _ = env.do(t, http.MethodPost, "/auth/logout", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/auth/logout", "", map[string]string{"email": "nouser@x.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileMe(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")
	accessToken, _ := env.login(t, "a@x.com", "secret1")

	// No Authorization header.
	rec, _ := env.do(t, http.MethodGet, "/profile/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Expired access token: same secrets, negative TTL.
	expiredCfg := *env.cfg
	expiredCfg.AccessTokenTTL = -time.Minute
	expired, err := auth.NewTokenManager(&expiredCfg).IssueAccessToken(testUserForToken())
	require.NoError(t, err)
	rec, _ = env.do(t, http.MethodGet, "/profile/me", expired, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Valid token.
	rec, resp := env.do(t, http.MethodGet, "/profile/me", accessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a@x.com", resp.Data["email"])
	require.Equal(t, "learner", resp.Data["role"])
	require.EqualValues(t, 0, resp.Data["xp"])
	require.EqualValues(t, 1, resp.Data["level"])

	// The password hash never appears in the body, under any key.
	require.NotContains(t, resp.Data, "passwordHash")
	require.NotContains(t, resp.Data, "password_hash")
	require.NotContains(t, rec.Body.String(), "$2a$")
}

func TestProfileMe_DeletedUser(t *testing.T) {
	env := newTestEnv(t)

	// Token for a user that does not exist in the store.
	ghost, err := env.tokens.IssueAccessToken(testUserForToken())
	require.NoError(t, err)

	rec, _ := env.do(t, http.MethodGet, "/profile/me", ghost, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")
	accessToken, _ := env.login(t, "a@x.com", "secret1")

	rec, _ := env.do(t, http.MethodPut, "/profile/update", accessToken, map[string]string{
		"name": "Renamed", "password": "secret2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The new password works; the old one does not.
	rec, _ = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "secret2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	_, resp := env.do(t, http.MethodGet, "/profile/me", accessToken, nil)
	require.Equal(t, "Renamed", resp.Data["name"])
}

func TestProfileUpdate_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")
	env.register(t, "b@x.com", "secret1")
	accessToken, _ := env.login(t, "b@x.com", "secret1")

	rec, _ := env.do(t, http.MethodPut, "/profile/update", accessToken, map[string]string{
		"email": "a@x.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
