package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-auth-api/internal/config"
	"github.com/pribylovaa/go-auth-api/internal/models"
	"github.com/pribylovaa/go-auth-api/internal/service"
	"github.com/pribylovaa/go-auth-api/internal/storage"
)

// memStorage — потокобезопасное in-memory хранилище для сквозных тестов
// HTTP-слоя: регистрация, вход, отзыв и обновление токенов гоняются через
// настоящий service поверх него.
type memStorage struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*models.User
	byUsername map[string]*models.User
	byEmail    map[string]*models.User
	blacklist  map[string]time.Time
}

var _ storage.Storage = (*memStorage)(nil)

func newMemStorage() *memStorage {
	return &memStorage{
		byID:       make(map[uuid.UUID]*models.User),
		byUsername: make(map[string]*models.User),
		byEmail:    make(map[string]*models.User),
		blacklist:  make(map[string]time.Time),
	}
}

func (m *memStorage) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUsername[user.Username]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := m.byEmail[user.Email]; ok {
		return storage.ErrAlreadyExists
	}

	m.byID[user.ID] = user
	m.byUsername[user.Username] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *memStorage) UserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byUsername[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (m *memStorage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (m *memStorage) BlacklistToken(_ context.Context, token *models.BlacklistedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Повторная вставка того же jti — no-op, как ON CONFLICT DO NOTHING.
	if _, ok := m.blacklist[token.JTI]; !ok {
		m.blacklist[token.JTI] = token.ExpiresAt
	}
	return nil
}

func (m *memStorage) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.blacklist[jti]
	return ok, nil
}

func (m *memStorage) DeleteExpired(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for jti, exp := range m.blacklist {
		if exp.Before(now) {
			delete(m.blacklist, jti)
		}
	}
	return nil
}

func (m *memStorage) Close() {}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	svc := service.New(newMemStorage(), config.AuthConfig{
		JWTSecret:       "e2e-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "auth-api",
	})

	return NewRouter(svc, Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:  5 * time.Second,
		BasePath: "/api/auth",
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func registerBody(username, email string) map[string]string {
	return map[string]string{
		"username":   username,
		"email":      email,
		"first_name": "Alice",
		"last_name":  "Smith",
		"password":   "Str0ngPass!",
		"password2":  "Str0ngPass!",
	}
}

func loginAlice(t *testing.T, h http.Handler) (access, refresh string) {
	t.Helper()

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register/", registerBody("alice", "alice@example.com"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/auth/login/", map[string]string{
		"username": "alice",
		"password": "Str0ngPass!",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var tokens map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens["access"])
	require.NotEmpty(t, tokens["refresh"])
	return tokens["access"], tokens["refresh"]
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	rr := doJSON(t, h, http.MethodPost, "/api/auth/register/", registerBody("Alice", "Alice@Example.com"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Message string          `json:"message"`
		User    json.RawMessage `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "User registered successfully.", resp.Message)

	var user map[string]any
	require.NoError(t, json.Unmarshal(resp.User, &user))
	require.Equal(t, "alice", user["username"])
	require.Equal(t, "alice@example.com", user["email"])
	require.Equal(t, "Alice Smith", user["full_name"])

	// Ни пароль, ни хэш не попадают в ответ.
	require.NotContains(t, strings.ToLower(rr.Body.String()), "password")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register/", registerBody("alice", "alice@example.com"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/auth/register/", registerBody("alice", "other@example.com"), "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var fields map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fields))
	require.Equal(t, []string{"A user with that username already exists."}, fields["username"])
}

func TestRegister_ValidationErrors(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register/", map[string]string{
		"username": "ab",
		"email":    "not-an-email",
		"password": "123",
	}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var fields map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fields))
	require.Contains(t, fields["username"], "Username must be at least 3 characters long.")
	require.Contains(t, fields["email"], "Please enter a valid email address.")
	require.Contains(t, fields["password"], "This password is too short. It must contain at least 8 characters.")
	require.Contains(t, fields["first_name"], "First name is required.")
	require.Contains(t, fields["last_name"], "Last name is required.")
}

func TestRegister_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register/", `{"username":"alice","is_admin":true}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Malformed request body.")
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register/", registerBody("alice", "alice@example.com"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/auth/login/", map[string]string{
		"username": "alice",
		"password": "wrongpass",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"detail":"No active account found with the given credentials"}`, rr.Body.String())
}

func TestLogin_UnknownUser(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	// Тело ответа неотличимо от случая неверного пароля.
	rr := doJSON(t, h, http.MethodPost, "/api/auth/login/", map[string]string{
		"username": "ghost",
		"password": "whatever",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"detail":"No active account found with the given credentials"}`, rr.Body.String())
}

func TestProfile_OK(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	access, _ := loginAlice(t, h)

	rr := doJSON(t, h, http.MethodGet, "/api/auth/profile/", nil, access)
	require.Equal(t, http.StatusOK, rr.Code)

	var user map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	require.Equal(t, "alice", user["username"])
	require.Equal(t, "Alice Smith", user["full_name"])
}

func TestProfile_NoToken(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/api/auth/profile/", nil, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t,
		`{"detail":"Authentication credentials were not provided.","code":"not_authenticated"}`,
		rr.Body.String())
}

func TestProfile_GarbageToken(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/api/auth/profile/", nil, "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t,
		`{"detail":"Given token not valid for any token type","code":"token_not_valid"}`,
		rr.Body.String())
}

func TestProfile_RefreshTokenRejected(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	_, refresh := loginAlice(t, h)

	// Refresh-токен не подходит для доступа к защищённым эндпоинтам.
	rr := doJSON(t, h, http.MethodGet, "/api/auth/profile/", nil, refresh)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRefresh_OK(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	_, refresh := loginAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/token/refresh/", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access"])

	// Новый access работает.
	rr = doJSON(t, h, http.MethodGet, "/api/auth/profile/", nil, resp["access"])
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRefresh_WithAccessToken(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	access, _ := loginAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/token/refresh/", map[string]string{"refresh": access}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`, rr.Body.String())
}

func TestRefresh_MissingBody(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/token/refresh/", map[string]string{}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"refresh":["This field is required."]}`, rr.Body.String())
}

func TestLogout_ThenRefreshFails(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	access, refresh := loginAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/logout/", map[string]string{"refresh": refresh}, access)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message":"Successfully logged out."}`, rr.Body.String())

	// Отозванный refresh больше не обменивается на access.
	rr = doJSON(t, h, http.MethodPost, "/api/auth/token/refresh/", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"detail":"Token is blacklisted","code":"token_not_valid"}`, rr.Body.String())

	// Access-токен остаётся действителен до собственного exp.
	rr = doJSON(t, h, http.MethodGet, "/api/auth/profile/", nil, access)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	access, refresh := loginAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/logout/", map[string]string{"refresh": refresh}, access)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/auth/logout/", map[string]string{"refresh": refresh}, access)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestLogout_MissingRefresh(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	access, _ := loginAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/logout/", map[string]string{}, access)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"refresh":["This field is required."]}`, rr.Body.String())
}

func TestLogout_RequiresAuth(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	_, refresh := loginAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/logout/", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout_GarbageRefresh(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	access, _ := loginAlice(t, h)

	// Битый токен — это 400, а не 401: аутентификация запроса в порядке.
	rr := doJSON(t, h, http.MethodPost, "/api/auth/logout/", map[string]string{"refresh": "not-a-jwt"}, access)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`, rr.Body.String())
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/api/auth/health/", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t,
		`{"status":"healthy","message":"User Authentication API is running."}`,
		rr.Body.String())
}

func TestRouter_RequestIDHeader(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/api/auth/health/", nil, "")
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}
