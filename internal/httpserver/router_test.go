package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/inventory_api/internal/es"
	"github.com/Skotchmaster/inventory_api/internal/images"
	"github.com/Skotchmaster/inventory_api/internal/middleware/auth"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/testutil"
	"github.com/Skotchmaster/inventory_api/internal/transport"
	"github.com/Skotchmaster/inventory_api/pkg/tokens"
)

type testServer struct {
	e    *echo.Echo
	deps *Deps
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	factory := repo.Factory{DB: testutil.NewDB(t)}
	store, err := images.NewFSStore(t.TempDir())
	require.NoError(t, err)

	authSvc := &service.AuthService{
		UoW: factory,
		Tokens: &tokens.Issuer{
			Secret:   []byte("test-jwt-secret"),
			Issuer:   "inventory-api",
			Audience: "inventory-clients",
			TTL:      time.Hour,
		},
	}

	deps := &Deps{
		UoW:             factory,
		AuthHandler:     &AuthHTTP{Svc: authSvc},
		CategoryHandler: &CategoryHTTP{Svc: &service.CategoryService{UoW: factory}},
		ProductHandler:  &ProductHTTP{Svc: &service.ProductService{UoW: factory, Images: store}},
		SearchHandler:   &SearchHTTP{},
		Bearer:          auth.NewBearerAuth(authSvc),
		ImageDir:        filepath.Join(store.Root, "images"),
	}

	e := echo.New()
	e.Validator = NewValidator()
	Register(e, deps)

	return &testServer{e: e, deps: deps}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(raw))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, r)
	return rec
}

func (s *testServer) register(t *testing.T, username string) transport.AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", transport.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "Passw0rd",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp transport.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["message"]
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", "", nil).Code)
}

func TestAuthRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	registered := s.register(t, "alice")
	assert.Equal(t, "alice", registered.Username)
	assert.NotEmpty(t, registered.AccessToken)

	t.Run("register validation", func(t *testing.T) {
		tests := []struct {
			name string
			req  transport.RegisterRequest
			want string
		}{
			{name: "weak password", req: transport.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "password"}, want: "password must contain"},
			{name: "short username", req: transport.RegisterRequest{Username: "bo", Email: "bob@example.com", Password: "Passw0rd"}, want: "username must be at least 3 characters"},
			{name: "bad email", req: transport.RegisterRequest{Username: "bob", Email: "nope", Password: "Passw0rd"}, want: "email must be a valid email address"},
			{name: "duplicate email", req: transport.RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "Passw0rd"}, want: "User with this email already exists"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := s.do(t, http.MethodPost, "/api/auth/register", "", tt.req)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, message(t, rec), tt.want)
			})
		}
	})

	t.Run("login", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", "", transport.LoginRequest{Email: "alice@example.com", Password: "Passw0rd"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decode[transport.AuthResponse](t, rec).AccessToken)

		rec = s.do(t, http.MethodPost, "/api/auth/login", "", transport.LoginRequest{Email: "alice@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid email or password", message(t, rec))

		rec = s.do(t, http.MethodPost, "/api/auth/login", "", transport.LoginRequest{Email: "", Password: "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("refresh and revoke", func(t *testing.T) {
		login := decode[transport.AuthResponse](t, s.do(t, http.MethodPost, "/api/auth/login", "",
			transport.LoginRequest{Email: "alice@example.com", Password: "Passw0rd"}))

		rec := s.do(t, http.MethodPost, "/api/auth/refresh", "", transport.RefreshRequest{RefreshToken: login.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code)
		rotated := decode[transport.AuthResponse](t, rec)

		rec = s.do(t, http.MethodPost, "/api/auth/refresh", "", transport.RefreshRequest{RefreshToken: login.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/auth/revoke", "", transport.RefreshRequest{RefreshToken: "unknown"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid refresh token", message(t, rec))

		rec = s.do(t, http.MethodPost, "/api/auth/revoke", "", transport.RefreshRequest{RefreshToken: rotated.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Token revoked successfully", message(t, rec))
	})

	t.Run("empty refresh token", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/refresh", "", transport.RefreshRequest{})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid or expired refresh token", message(t, rec))

		rec = s.do(t, http.MethodPost, "/api/auth/revoke", "", transport.RefreshRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid refresh token", message(t, rec))
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	paths := []string{"/api/categories", "/api/products", "/api/products/search?q=x", "/api/search?q=x"}
	for _, p := range paths {
		rec := s.do(t, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
	}

	rec := s.do(t, http.MethodGet, "/api/categories", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid or expired token", message(t, rec))
}

func TestCategoryRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	token := s.register(t, "carol").AccessToken

	rec := s.do(t, http.MethodPost, "/api/categories", token, transport.CategoryRequest{Name: "Tools", Description: "Hand tools"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[transport.CategoryResponse](t, rec)
	assert.Equal(t, "/api/categories/1", rec.Header().Get(echo.HeaderLocation))

	rec = s.do(t, http.MethodGet, "/api/categories/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tools", decode[transport.CategoryResponse](t, rec).Name)

	rec = s.do(t, http.MethodGet, "/api/categories", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]transport.CategoryResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/categories/42", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category with ID 42 not found", message(t, rec))

	rec = s.do(t, http.MethodGet, "/api/categories/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/categories", token, transport.CategoryRequest{Name: "Tools"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/categories", token, transport.CategoryRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", message(t, rec))

	rec = s.do(t, http.MethodPut, "/api/categories/1", token, transport.CategoryRequest{Name: "Power Tools"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Power Tools", decode[transport.CategoryResponse](t, rec).Name)

	rec = s.do(t, http.MethodPost, "/api/products", token, transport.ProductRequest{Name: "Drill", Price: 99.5, Stock: 2, CategoryID: created.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodDelete, "/api/categories/1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete category that contains products", message(t, rec))

	rec = s.do(t, http.MethodDelete, "/api/products/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/categories/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Category deleted successfully", message(t, rec))

	rec = s.do(t, http.MethodDelete, "/api/categories/1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	token := s.register(t, "dave").AccessToken

	cat := decode[transport.CategoryResponse](t,
		s.do(t, http.MethodPost, "/api/categories", token, transport.CategoryRequest{Name: "Garden"}))

	rec := s.do(t, http.MethodPost, "/api/products", token, transport.ProductRequest{
		Name: "Leaf Rake", Description: "Wide head", Price: 12.349, Stock: 4, CategoryID: cat.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[transport.ProductResponse](t, rec)
	assert.Equal(t, "/api/products/1", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, "Garden", p.CategoryName)
	assert.Equal(t, 12.35, p.Price)

	rec = s.do(t, http.MethodPost, "/api/products", token, transport.ProductRequest{Name: "Orphan", Price: 1, CategoryID: 99})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/products", token, transport.ProductRequest{Name: "Free", Price: 0, CategoryID: cat.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "price")

	rec = s.do(t, http.MethodGet, "/api/products/search?q=WIDE", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]transport.ProductResponse](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)

	rec = s.do(t, http.MethodGet, "/api/products/category/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]transport.ProductResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/products/category/7", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/products/1", token, transport.ProductRequest{Name: "Big Rake", Price: 15, Stock: 1, CategoryID: cat.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Big Rake", decode[transport.ProductResponse](t, rec).Name)

	rec = s.do(t, http.MethodPut, "/api/products/9", token, transport.ProductRequest{Name: "Ghost", Price: 15, CategoryID: cat.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/products/9", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type multipartFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, file *multipartFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="imageFile"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return r
}

func TestProductImageRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	token := s.register(t, "erin").AccessToken
	cat := decode[transport.CategoryResponse](t,
		s.do(t, http.MethodPost, "/api/categories", token, transport.CategoryRequest{Name: "Lamps"}))

	png := &multipartFile{name: "lamp.png", contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\nlamp")}
	fields := map[string]string{"name": "Desk Lamp", "price": "25.50", "stock": "3", "category_id": "1"}
	require.Equal(t, uint(1), cat.ID)

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/api/products/with-image", token, fields, png))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[transport.ProductResponse](t, rec)
	require.NotNil(t, p.ImageURL)
	assert.True(t, strings.HasPrefix(*p.ImageURL, "/images/products/"))

	rec = s.do(t, http.MethodGet, *p.ImageURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png.data, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/api/products/1/image", token,
		map[string]string{"useBase64Storage": "true"}, png))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	inline := decode[transport.ProductResponse](t, rec)
	assert.Nil(t, inline.ImageURL)
	require.NotNil(t, inline.ImageBase64)
	assert.True(t, strings.HasPrefix(*inline.ImageBase64, "data:image/png;base64,"))

	rec = s.do(t, http.MethodGet, *p.ImageURL, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "replaced file is gone")

	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/api/products/1/image", token, nil,
		&multipartFile{name: "notes.txt", contentType: "text/plain", data: []byte("hi")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, multipartRequest(t, http.MethodPost, "/api/products/1/image", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/products/1/image", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/products/5/image", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeSearcher struct {
	query      string
	from, size int
}

func (f *fakeSearcher) Search(_ context.Context, query string, from, size int) (*es.SearchResult, error) {
	f.query, f.from, f.size = query, from, size
	return &es.SearchResult{Total: 25, Items: []es.ProductDocument{{ID: 1, Name: "Lamp"}}}, nil
}

func TestSearchRoute(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	token := s.register(t, "frank").AccessToken

	rec := s.do(t, http.MethodGet, "/api/search?q=lamp", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	searcher := &fakeSearcher{}
	s.deps.SearchHandler.Index = searcher

	rec = s.do(t, http.MethodGet, "/api/search?q=lamp&page=2&size=10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lamp", searcher.query)
	assert.Equal(t, 10, searcher.from)
	assert.Equal(t, 10, searcher.size)

	body := decode[struct {
		Data []es.ProductDocument `json:"data"`
		Meta transport.PageMeta   `json:"meta"`
	}](t, rec)
	assert.Len(t, body.Data, 1)
	assert.Equal(t, int64(3), body.Meta.TotalPages)
	assert.True(t, body.Meta.HasPrev)
	assert.True(t, body.Meta.HasNext)

	rec = s.do(t, http.MethodGet, "/api/search?q=", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
