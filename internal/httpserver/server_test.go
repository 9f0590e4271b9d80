package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"catalog/backend/internal/cache"
	"catalog/backend/internal/config"
	authdomain "catalog/backend/internal/domain/auth"
	productdomain "catalog/backend/internal/domain/product"
	"catalog/backend/internal/domain/product/producttest"
	"catalog/backend/internal/infrastructure/token"
	"catalog/backend/internal/metrics"
	authusecase "catalog/backend/internal/usecase/auth"
	productusecase "catalog/backend/internal/usecase/product"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	srv     *Server
	repo    *producttest.Repository
	metrics *metrics.Collector
}

func seedProducts() []*productdomain.Product {
	return []*productdomain.Product{
		{Name: "Boat Airdopes", Category: "Audio", Brand: "boAt", Tags: "tws,bluetooth", Price: 1000, Rating: 4.1, Stock: 5, PurchaseCount: 30, Mode: "general"},
		{Name: "JBL Tune", Category: "Audio", Brand: "JBL", Price: 1500, Rating: 4.5, Stock: 0, PurchaseCount: 10, Mode: "general"},
		{Name: "Sony WH", Category: "Audio", Brand: "Sony", Price: 1501, Rating: 4.9, Stock: 2, PurchaseCount: 50, Mode: "premium"},
		{Name: "LG Washer", Category: "Appliances", Brand: "LG", Description: "Laundry made easy", Price: 20000, Rating: 4.0, Stock: 1, PurchaseCount: 40, Mode: "general"},
	}
}

func newTestServer(t *testing.T, authService *authusecase.Service, opts ...Option) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.NewCollector()
	repo := producttest.NewRepository(seedProducts()...)
	products := productusecase.NewService(repo, cache.NewAccessor(cache.NewMemory(), logger, m),
		productusecase.WithLogger(logger))
	cfg := config.Config{HTTPPort: "0", AllowedOrigins: []string{"*"}}
	opts = append([]Option{WithLogger(logger), WithMetrics(m)}, opts...)
	return &testServer{
		srv:     NewServer(cfg, products, authService, opts...),
		repo:    repo,
		metrics: m,
	}
}

func (ts *testServer) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	down := newTestServer(t, nil, WithHealthCheck(func(context.Context) error { return errors.New("db down") }))
	rec = down.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMissingProductReturnsNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/products/999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"product not found"}`, rec.Body.String())

	rec = ts.do(t, http.MethodPut, "/products/999999", `{"price": 10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/products/999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/products/999999/suggestions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/products", `{"name":"Philips Trimmer","category":"Grooming","price":1299,"stock":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[productdomain.Product](t, rec)
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, "general", created.Mode)

	rec = ts.do(t, http.MethodPut, "/products/5", `{"price":999}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[productdomain.Product](t, rec)
	assert.Equal(t, 999.0, updated.Price)
	assert.Equal(t, "Philips Trimmer", updated.Name)

	rec = ts.do(t, http.MethodGet, "/products/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 999.0, decode[productdomain.Product](t, rec).Price)

	rec = ts.do(t, http.MethodDelete, "/products/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted": true}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/products/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProductErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/products", `{"price": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.repo.SetFailing(true)
	rec = ts.do(t, http.MethodPost, "/products", `{"name":"Fridge","price":15000}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListProducts(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/products?skip=1&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[productdomain.Page](t, rec)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.Equal(t, int64(3), page.Items[1].ID)

	rec = ts.do(t, http.MethodGet, "/products?category=Audio&min_price=1000&max_price=1500&sort_by=price&order=desc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[productdomain.Page](t, rec)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Items[0].ID)

	for _, target := range []string{
		"/products?limit=-1",
		"/products?skip=x",
		"/products?min_price=cheap",
		"/products?sort_by=rating",
		"/products?order=sideways",
	} {
		rec = ts.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestListMasksStoreFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.repo.SetFailing(true)

	rec := ts.do(t, http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":0,"items":[]}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/products/trending", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/products/ai-search?description=earbuds", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/products/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListIsServedFromCache(t *testing.T) {
	ts := newTestServer(t, nil)

	first := ts.do(t, http.MethodGet, "/products?limit=3", "")
	second := ts.do(t, http.MethodGet, "/products?limit=3", "")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, ts.repo.Calls("List"))

	ts.do(t, http.MethodPost, "/products", `{"name":"Cable","price":99}`)
	third := ts.do(t, http.MethodGet, "/products?limit=3", "")
	assert.Equal(t, 2, ts.repo.Calls("List"))
	assert.Equal(t, 5, decode[productdomain.Page](t, third).Total)
}

func TestTrendingCacheHeader(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/products/trending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	items := decode[[]productdomain.Product](t, rec)
	require.Len(t, items, 4)
	assert.Equal(t, int64(3), items[0].ID)

	rec = ts.do(t, http.MethodGet, "/products/trending", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, target := range []string{"/products/ai-search", "/products/ai-search?description=", "/products/ai-search?description=%20%20"} {
		rec := ts.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := ts.do(t, http.MethodGet, "/products/ai-search?description=please", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Zero(t, ts.repo.Calls("SearchCandidates"))

	rec = ts.do(t, http.MethodGet, "/products/ai-search?description=I+want+to+clean+my+dirty+earbuds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]productusecase.SearchResult](t, rec)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(1), results[0].ID)
	require.NotNil(t, results[0].Reason)
	assert.Contains(t, *results[0].Reason, "bluetooth")
}

func TestSuggestionsAndModeRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/products/1/suggestions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]productdomain.Product](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)

	rec = ts.do(t, http.MethodGet, "/products/mode/premium", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[productdomain.Page](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Sony WH", page.Items[0].Name)

	rec = ts.do(t, http.MethodGet, "/products/mode/general?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/products/1/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/products/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[productdomain.Stats](t, rec)
	assert.Equal(t, 4, stats.TotalProducts)
	assert.Equal(t, 8, stats.TotalStock)
	assert.Len(t, stats.Categories, 2)
}

func TestRequestIDAndCORS(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", "", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = ts.do(t, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec = ts.do(t, http.MethodOptions, "/products", "", "Origin", "http://localhost:8501")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8501", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPanicsBecomeServerErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.srv.router.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := ts.do(t, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/products/1", "")
	ts.do(t, http.MethodGet, "/products/1", "")

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `catalog_http_requests_total{method="GET",route="GET /products/{id}",status="200"} 2`)
	assert.Contains(t, body, `catalog_cache_operations_total{op="get",result="hit"} 1`)
}

type userStore struct {
	mu    sync.Mutex
	users map[string]*authdomain.User
}

func (s *userStore) Create(_ context.Context, u *authdomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*authdomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, authdomain.ErrUserNotFound
}

func (s *userStore) GetByID(_ context.Context, id string) (*authdomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, authdomain.ErrUserNotFound
}

func (s *userStore) UpdateRole(_ context.Context, u *authdomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		existing.Role = u.Role
		return nil
	}
	return authdomain.ErrUserNotFound
}

func TestWritesRequireAdminWhenAuthEnabled(t *testing.T) {
	authService := authusecase.NewService(
		&userStore{users: map[string]*authdomain.User{}},
		token.NewJWTManager("test-secret", time.Hour, "catalog"),
		zaptest.NewLogger(t),
	)
	require.NoError(t, authService.EnsureAdmin(context.Background(), "admin@example.com", "hunter22", "Admin"))
	ts := newTestServer(t, authService)

	rec := ts.do(t, http.MethodPost, "/products", `{"name":"Cable","price":99}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/products/1", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[struct {
		Token string          `json:"token"`
		User  authdomain.User `json:"user"`
	}](t, rec)
	require.NotEmpty(t, login.Token)
	bearer := "Bearer " + login.Token

	rec = ts.do(t, http.MethodPost, "/products", `{"name":"Cable","price":99}`, "Authorization", bearer)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/auth/me", "", "Authorization", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@example.com", decode[authdomain.User](t, rec).Email)

	rec = ts.do(t, http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay public")
}
