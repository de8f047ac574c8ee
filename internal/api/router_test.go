package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/user-service/internal/core/service"
	"github.com/99minutos/user-service/internal/infrastructure/crypto"
	"github.com/99minutos/user-service/internal/infrastructure/db/memory"
	"github.com/99minutos/user-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/user-service/internal/infrastructure/token"
)

type testServer struct {
	e     *echo.Echo
	codec *token.JWTCodec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	codec, err := token.NewJWTCodec(token.Config{Secret: []byte("test-secret"), Issuer: "user-service"})
	require.NoError(t, err)
	repo := memory.NewUserRepository()
	svc := service.NewAuthService(repo, crypto.NewBcryptHasher(bcrypt.MinCost), codec, nil, zerolog.Nop())

	e := NewRouter(Dependencies{
		AuthService: svc,
		Log:         zerolog.Nop(),
		Readiness:   map[string]handlers.Pinger{"store": repo},
	})
	return &testServer{e: e, codec: codec}
}

func (s *testServer) do(method, path, body string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func basic(user, pass string) func(*http.Request) {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok) }
}

func TestRouter_RegisterAndLoginFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/user", `{"username":"alice","password":"s3cret"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())

	dup := s.do(http.MethodPost, "/user", `{"username":"alice","password":"other"}`, nil)
	assert.Equal(t, http.StatusBadRequest, dup.Code)

	rec = s.do(http.MethodPost, "/user/token", "", basic("alice", "s3cret"))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	id, err := s.codec.Decode(resp.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, id.UserID)

	me := s.do(http.MethodGet, "/user/me", "", bearer(resp.Token))
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"username":"alice"`)
	assert.Contains(t, me.Body.String(), id.UserID)
	assert.NotContains(t, me.Body.String(), "$2a$")

	refreshed := s.do(http.MethodPost, "/user/token/refresh", "", bearer(resp.Token))
	assert.Equal(t, http.StatusOK, refreshed.Code)
}

func TestRouter_DuplicateAndValidationAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/user", `{"username":"alice","password":"pw"}`, nil).Code)

	dup := s.do(http.MethodPost, "/user", `{"username":"alice","password":"pw"}`, nil)
	missing := s.do(http.MethodPost, "/user", `{"username":"bob"}`, nil)
	malformed := s.do(http.MethodPost, "/user", `{"username":`, nil)
	tooLong := s.do(http.MethodPost, "/user", `{"username":"carol","password":"`+strings.Repeat("p", 73)+`"}`, nil)

	for _, rec := range []*httptest.ResponseRecorder{dup, missing, malformed, tooLong} {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dup.Body.String(), rec.Body.String())
	}
}

func TestRouter_BadCredentialsAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/user", `{"username":"alice","password":"s3cret"}`, nil).Code)

	wrong := s.do(http.MethodPost, "/user/token", "", basic("alice", "nope"))
	unknown := s.do(http.MethodPost, "/user/token", "", basic("mallory", "s3cret"))
	missing := s.do(http.MethodPost, "/user/token", "", nil)
	caseVariant := s.do(http.MethodPost, "/user/token", "", basic("Alice", "s3cret"))

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown, missing, caseVariant} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, wrong.Body.String(), rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderWWWAuthenticate))
	}
}

func TestRouter_ProtectedRouteRejectsBadTokens(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/user/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/user/me", "", bearer("garbage")).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/user/token/refresh", "", bearer("garbage")).Code)
}

func TestRouter_HealthAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	ready := s.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"store"`)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/nope", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do(http.MethodGet, "/user", "", nil).Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRouter_PanicIsRecoveredAndLogged(t *testing.T) {
	var buf bytes.Buffer
	e := NewRouter(Dependencies{
		AuthService: service.NewAuthService(memory.NewUserRepository(), crypto.NewBcryptHasher(bcrypt.MinCost), nil, nil, zerolog.Nop()),
		Log:         zerolog.New(&buf),
	})
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"message":"request"`)
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), `"path":"/boom"`)
}
