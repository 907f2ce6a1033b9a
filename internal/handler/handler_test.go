package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenant-booking-api/internal/auth"
	"tenant-booking-api/internal/cache"
	"tenant-booking-api/internal/handler"
	"tenant-booking-api/internal/memstore"
	"tenant-booking-api/internal/middleware"
	"tenant-booking-api/internal/model"
	"tenant-booking-api/internal/provision"
)

const secret = "test-secret"

type env struct {
	srv   *httptest.Server
	store *memstore.Store
	id    *auth.Identity
}

func setup(t *testing.T, burst int) *env {
	t.Helper()
	st := memstore.New()
	id := auth.NewIdentity(st, secret, time.Hour)
	wf := provision.New(st, id, nil, "root@tusalon.com", zap.NewNop())
	tenants, err := cache.NewTenants(st, 100, time.Minute)
	require.NoError(t, err)
	t.Cleanup(tenants.Close)
	h := handler.New(wf, tenants, id, zap.NewNop())
	rl := middleware.NewRateLimiter(0.001, burst)
	t.Cleanup(rl.Stop)
	srv := httptest.NewServer(h.Routes(rl))
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: st, id: id}
}

func (e *env) token(t *testing.T, email string, admin bool) string {
	t.Helper()
	ctx := context.Background()
	var err error
	if admin {
		_, err = e.id.CreateAdmin(ctx, email, "secret1")
	} else {
		_, err = e.id.CreatePrincipal(ctx, email, "secret1")
	}
	require.NoError(t, err)
	tok, _, err := e.id.SignIn(ctx, email, "secret1")
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, method, url, token string, body any) (int, string) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func adminBody(slug string) map[string]string {
	return map[string]string{
		"slug": slug, "companyId": slug, "projectName": "Salon " + slug,
		"email": "owner-" + slug + "@test.com", "password": "secret1",
	}
}

func TestCreateTenantAsAdmin(t *testing.T) {
	e := setup(t, 10)
	tok := e.token(t, "admin@test.com", true)

	code, body := do(t, http.MethodPost, e.srv.URL+"/api/tenants", tok, adminBody("acme"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	tn, err := e.store.GetTenant(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, tn.Provisioned())

	code, body = do(t, http.MethodPost, e.srv.URL+"/api/tenants", tok, adminBody("acme"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Slug already exists", body)
}

func TestCreateTenantSuperAdminByEmail(t *testing.T) {
	e := setup(t, 10)
	tok := e.token(t, "root@tusalon.com", false)

	code, _ := do(t, http.MethodPost, e.srv.URL+"/api/tenants", tok, adminBody("beta"))
	assert.Equal(t, http.StatusOK, code)
}

func TestCreateTenantAuthFailures(t *testing.T) {
	e := setup(t, 10)
	userTok := e.token(t, "user@test.com", false)
	url := e.srv.URL + "/api/tenants"

	code, _ := do(t, http.MethodPost, url, "", adminBody("acme"))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, http.MethodPost, url, "not-a-jwt", adminBody("acme"))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, http.MethodPost, url, userTok, adminBody("acme"))
	assert.Equal(t, http.StatusForbidden, code)

	_, err := e.store.GetTenant(context.Background(), "acme")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateTenantWrongMethod(t *testing.T) {
	e := setup(t, 10)
	code, _ := do(t, http.MethodGet, e.srv.URL+"/api/tenants", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	code, _ = do(t, http.MethodPut, e.srv.URL+"/api/signup", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestCreateTenantInvalid(t *testing.T) {
	e := setup(t, 10)
	tok := e.token(t, "admin@test.com", true)

	bad := adminBody("ab")
	code, body := do(t, http.MethodPost, e.srv.URL+"/api/tenants", tok, bad)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or missing fields", body)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/tenants", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTenantIdentityFailure(t *testing.T) {
	e := setup(t, 10)
	tok := e.token(t, "admin@test.com", true)

	body := adminBody("gamma")
	body["password"] = "123"
	code, msg := do(t, http.MethodPost, e.srv.URL+"/api/tenants", tok, body)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, msg, "password")
}

func TestSignup(t *testing.T) {
	e := setup(t, 10)
	code, body := do(t, http.MethodPost, e.srv.URL+"/api/signup", "", map[string]string{
		"slug": "Mi-Salon", "projectName": "Mi Salon", "email": "me@test.com", "password": "secret1",
		"firstName": "Ana", "lastName": "Gómez", "phone": "+54 11 5555",
	})
	require.Equal(t, http.StatusOK, code, body)

	tn, err := e.store.GetTenant(context.Background(), "mi-salon")
	require.NoError(t, err)
	assert.Equal(t, "mi-salon", tn.CompanyID)

	p, err := e.store.GetProfile(context.Background(), tn.OwnerUID)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, "Ana", p.FirstName)
}

func TestSignupRateLimited(t *testing.T) {
	e := setup(t, 1)
	url := e.srv.URL + "/api/signup"
	code, _ := do(t, http.MethodPost, url, "", map[string]string{"slug": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, http.MethodPost, url, "", map[string]string{"slug": "x"})
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestGetTenant(t *testing.T) {
	e := setup(t, 10)
	require.NoError(t, e.store.CreateTenant(context.Background(), &model.Tenant{
		Slug: "acme", CompanyID: "acme-co", ProjectName: "Acme", DepositConfirmation: true,
	}))

	code, body := do(t, http.MethodGet, e.srv.URL+"/api/tenants/acme", "", nil)
	require.Equal(t, http.StatusOK, code)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "acme-co", got["companyId"])
	assert.Equal(t, true, got["depositConfirmation"])

	code, _ = do(t, http.MethodGet, e.srv.URL+"/api/tenants/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

type recordingTenants struct {
	*memstore.Store
	mu          sync.Mutex
	invalidated []string
}

func (r *recordingTenants) Invalidate(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, slug)
}

func (r *recordingTenants) slugs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.invalidated...)
}

func TestProvisionInvalidatesCachedTenant(t *testing.T) {
	st := memstore.New()
	id := auth.NewIdentity(st, secret, time.Hour)
	wf := provision.New(st, id, nil, "root@tusalon.com", zap.NewNop())
	tenants := &recordingTenants{Store: st}
	rl := middleware.NewRateLimiter(1000, 1000)
	t.Cleanup(rl.Stop)
	srv := httptest.NewServer(handler.New(wf, tenants, id, zap.NewNop()).Routes(rl))
	t.Cleanup(srv.Close)

	body := map[string]string{"slug": " Salon-Luz ", "email": "luz@test.com", "password": "secret1"}
	code, _ := do(t, http.MethodPost, srv.URL+"/api/signup", "", body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"salon-luz"}, tenants.slugs())

	// a rejected duplicate writes nothing, so the cache is left alone
	code, _ = do(t, http.MethodPost, srv.URL+"/api/signup", "", body)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, tenants.slugs(), 1)
}

func TestLogin(t *testing.T) {
	e := setup(t, 10)
	_, err := e.id.CreatePrincipal(context.Background(), "me@test.com", "secret1")
	require.NoError(t, err)

	code, body := do(t, http.MethodPost, e.srv.URL+"/api/auth/login", "", map[string]string{"email": "me@test.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.NotEmpty(t, got["token"])

	code, _ = do(t, http.MethodPost, e.srv.URL+"/api/auth/login", "", map[string]string{"email": "me@test.com", "password": "nope00"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, http.MethodPost, e.srv.URL+"/api/auth/login", "", map[string]string{"email": "me@test.com"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealth(t *testing.T) {
	e := setup(t, 10)
	code, body := do(t, http.MethodGet, e.srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}
