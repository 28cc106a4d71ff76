package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexus-vita/session-service/internal/api/http/handlers"
	"github.com/nexus-vita/session-service/internal/api/http/session"
	"github.com/nexus-vita/session-service/internal/auth"
	"github.com/nexus-vita/session-service/internal/config"
	"github.com/nexus-vita/session-service/internal/domain"
	"github.com/nexus-vita/session-service/internal/events"
	"github.com/nexus-vita/session-service/internal/observability"
	"github.com/nexus-vita/session-service/internal/service"
)

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account.ID = uuid.NewString()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) ListByRole(_ context.Context, role domain.Role, limit int) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Account
	for _, account := range r.accounts {
		if account.Role == role && len(out) < limit {
			copied := *account
			out = append(out, &copied)
		}
	}
	return out, nil
}

type testEnv struct {
	app   *fiber.App
	repo  *fakeAccountRepo
	codec *auth.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	codec := auth.NewCodec("router-test-secret", 7*24*time.Hour)
	repo := newFakeAccountRepo()

	accountService := service.NewAccountService(
		config.AuthConfig{BcryptCost: 4, SessionTTLDays: 7},
		repo, codec, dispatcher, logger,
	)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("test", "test", nil, nil),
		Accounts: handlers.NewAccountsHandler(accountService, false),
		Session:  session.NewMiddleware(auth.NewGuard(codec), dispatcher, metrics),
	})

	return &testEnv{app: app, repo: repo, codec: codec}
}

func (e *testEnv) register(t *testing.T, name, email string) (string, *http.Cookie) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"name": name, "email": email, "password": "hunter2"})
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cookie := sessionCookie(t, resp)
	var parsed struct {
		Data struct {
			Account struct {
				ID string `json:"id"`
			} `json:"account"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return parsed.Data.Account.ID, cookie
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == session.CookieName {
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.register(t, "Ada", "ada@example.com")

	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), cookie.Expires, time.Minute)

	cred, err := env.codec.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, cred.Role)
}

func TestMeWithoutCookieIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeReturnsVerifiedIdentity(t *testing.T) {
	env := newTestEnv(t)
	id, cookie := env.register(t, "Ada", "ada@example.com")

	req := httptest.NewRequest(http.MethodGet, "/sessions/me", nil)
	req.AddCookie(cookie)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Data struct {
			SubjectID string `json:"subject_id"`
			Role      string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Equal(t, id, parsed.Data.SubjectID)
	assert.Equal(t, "USER", parsed.Data.Role)
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada", "ada@example.com")

	body, _ := json.Marshal(map[string]string{"email": "ada@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAccountAccessIsSelfOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	adaID, adaCookie := env.register(t, "Ada", "ada@example.com")
	bobID, bobCookie := env.register(t, "Bob", "bob@example.com")

	// Self access.
	req := httptest.NewRequest(http.MethodGet, "/accounts/"+adaID, nil)
	req.AddCookie(adaCookie)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Another user's account is forbidden.
	req = httptest.NewRequest(http.MethodGet, "/accounts/"+adaID, nil)
	req.AddCookie(bobCookie)
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// An admin session overrides ownership.
	adminToken, exp := env.codec.Issue("admin-1", domain.RoleAdmin)
	req = httptest.NewRequest(http.MethodGet, "/accounts/"+bobID, nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: adminToken, Expires: exp})
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminListRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	_, userCookie := env.register(t, "Ada", "ada@example.com")

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts?role=USER", nil)
	req.AddCookie(userCookie)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken, _ := env.codec.Issue("admin-1", domain.RoleAdmin)
	req = httptest.NewRequest(http.MethodGet, "/admin/accounts?role=USER", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: adminToken})
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.register(t, "Ada", "ada@example.com")

	req := httptest.NewRequest(http.MethodDelete, "/sessions", nil)
	req.AddCookie(cookie)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	cleared := sessionCookie(t, resp)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))
}

func TestTamperedCookieIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.register(t, "Ada", "ada@example.com")

	tampered := []byte(cookie.Value)
	tampered[len(tampered)-1] ^= 0x01
	req := httptest.NewRequest(http.MethodGet, "/sessions/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: string(tampered)})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
