package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/ecommerce-api/internal/core/domain"
	"github.com/storefront/ecommerce-api/internal/core/service"
)

const routerTestKey = "router-test-signing-key-0123456789abcdef"

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[email]
	return ok, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return nil, domain.ErrEmailInUse
	}
	cp := *u
	cp.ID = fmt.Sprintf("u%d", len(m.users)+1)
	m.users[u.Email] = &cp
	return &cp, nil
}

type memProducts struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*domain.Product
}

func (m *memProducts) List(context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Product, 0, len(m.byID))
	for _, p := range m.byID {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memProducts) FindByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *p
	cp.ID = fmt.Sprintf("p%d", m.seq)
	m.byID[cp.ID] = &cp
	return &cp, nil
}

func (m *memProducts) Update(_ context.Context, p *domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return &cp, nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(m.byID, id)
	return nil
}

type discardImages struct{}

func (discardImages) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "http://localhost:8080/uploads/" + name, nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	log := zerolog.Nop()

	tokens, err := service.NewTokenService(routerTestKey, time.Hour)
	require.NoError(t, err)

	auth := service.NewAuthService(&memUsers{users: map[string]*domain.User{}}, service.NewBcryptHasher(4), tokens, log)
	_, err = auth.EnsureAdmin(context.Background(), "admin@example.com", "admin123", "Admin User")
	require.NoError(t, err)

	products := service.NewProductService(&memProducts{byID: map[string]*domain.Product{}}, discardImages{}, service.DefaultMaxImageBytes, log)

	return NewRouter(Dependencies{
		AuthService:    auth,
		ProductService: products,
		Tokens:         tokens,
		MaxUploadBytes: service.DefaultMaxImageBytes,
		Logger:         log,
		Registry:       prometheus.NewRegistry(),
	})
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, email, password string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/auth/login", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, email, resp.Email)
	return resp.Token
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/auth/register", `{"email":"ann@example.com","password":"secret1","full_name":"Ann Lee"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User registered successfully", rec.Body.String())

	rec = do(e, http.MethodPost, "/auth/register", `{"email":"ann@example.com","password":"other12"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"email already in use"}`, rec.Body.String())

	token := login(t, e, "ann@example.com", "secret1")

	rec = do(e, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"ann@example.com","role":"CUSTOMER","full_name":"Ann Lee"}`, rec.Body.String())
}

func TestRouter_RegisterDuplicateLoginWithShortPassword(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"pw123","full_name":"Alice"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(e, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"zz","full_name":"Al"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	token := login(t, e, "a@x.com", "pw123")

	rec = do(e, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"a@x.com","role":"CUSTOMER","full_name":"Alice"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"zz"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LoginFailuresAreUniform(t *testing.T) {
	e := newTestServer(t)

	wrongPassword := do(e, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"nope"}`, "")
	unknownEmail := do(e, http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"nope"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestRouter_SeededAdminManagesCatalog(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, "admin@example.com", "admin123")

	rec := do(e, http.MethodPost, "/products", `{"description":"Mug","price":1299,"stock":3}`, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(e, http.MethodGet, "/products/"+created.ID, "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "catalog reads are public")

	rec = do(e, http.MethodPut, "/products/"+created.ID, `{"description":"Big mug","price":1599,"stock":1}`, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodDelete, "/products/"+created.ID, "", admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, "/products/"+created.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CatalogWritesRequireAdmin(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/products", `{"description":"Mug","price":1,"stock":1}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusOK, do(e, http.MethodPost, "/auth/register", `{"email":"c@example.com","password":"secret1"}`, "").Code)
	customer := login(t, e, "c@example.com", "secret1")

	rec = do(e, http.MethodPost, "/products", `{"description":"Mug","price":1,"stock":1}`, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodDelete, "/products/p1", "", "forged.token.value")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_OpsEndpoints(t *testing.T) {
	e := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health/ready", "", "").Code)

	do(e, http.MethodGet, "/products", "", "")
	rec := do(e, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_requests_total")
}
