package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/dmitrijs2005/bookmarker/internal/server/auth"
	"github.com/dmitrijs2005/bookmarker/internal/server/config"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/memory"
	"github.com/dmitrijs2005/bookmarker/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	codec := auth.NewTokenCodec([]byte("test-key"))
	cfg := &config.Config{
		AccessTokenValidityDuration:  30 * time.Minute,
		RefreshTokenValidityDuration: 7 * 24 * time.Hour,
	}
	us := services.NewUserService(nil, store, store, auth.NewBcryptHasher(bcrypt.MinCost), codec, cfg, logging.Discard())
	bs := services.NewBookmarkService(nil, store, store, logging.Discard())
	resolver := auth.NewBearerResolver(codec, store.Users(nil), nil)

	srv, err := NewServer(":0", `^moz-extension://.*`, logging.Discard(), NewHandler(us, bs, resolver, logging.Discard()))
	require.NoError(t, err)
	return &testEnv{srv: srv, store: store}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, e.srv, method, path, body, token)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) login(t *testing.T, username, password string) tokenResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tr tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	return tr
}

func (e *testEnv) registerAndLogin(t *testing.T, username, password string) tokenResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", map[string]string{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return e.login(t, username, password)
}

func TestRootAndHealth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": "Bookmarker API", "version": "1.0.0"}, decode(t, rec))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = e.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "healthy"}, decode(t, rec))
}

func TestAliceSession_EndToEnd(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "alice", "password": "s3cret1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	registered := decode(t, rec)
	assert.Equal(t, "alice", registered["username"])
	assert.Equal(t, true, registered["is_active"])
	assert.NotContains(t, registered, "password")
	assert.NotContains(t, registered, "hashed_password")

	pair := e.login(t, "alice", "s3cret1")
	assert.Equal(t, "bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	rec = e.do(t, http.MethodGet, "/auth/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, registered["id"], me["id"])

	rec = e.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	rec = e.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, detailBadRefresh, decode(t, rec)["detail"])

	rec = e.do(t, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": rotated.RefreshToken}, rotated.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out", decode(t, rec)["message"])

	rec = e.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": rotated.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_Errors(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, "alice", "s3cret1")

	rec := e.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "alice", "password": "x"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, detailUsernameTaken, decode(t, rec)["detail"])

	rec = e.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "", "password": "x"}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	detail, ok := decode(t, rec)["detail"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, detail, "username")

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	raw := httptest.NewRecorder()
	e.srv.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusUnprocessableEntity, raw.Code)
}

func TestLogin_BadCredentialsChallenge(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, "alice", "s3cret1")

	for _, body := range []map[string]string{
		{"username": "alice", "password": "s3cret2"},
		{"username": "nobody", "password": "s3cret1"},
	} {
		rec := e.do(t, http.MethodPost, "/auth/login", body, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
		assert.Equal(t, detailBadCredentials, decode(t, rec)["detail"])
	}
}

func TestProtected_BearerFailures(t *testing.T) {
	e := newTestEnv(t)
	pair := e.registerAndLogin(t, "alice", "s3cret1")

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic " + pair.AccessToken,
		"garbage":      "Bearer not-a-jwt",
		"refresh used": "Bearer " + pair.RefreshToken,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if header != "" {
				req.Header.Set(echo.HeaderAuthorization, header)
			}
			rec := httptest.NewRecorder()
			e.srv.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
			assert.Equal(t, detailNoCredentials, decode(t, rec)["detail"])
		})
	}
}

func TestProtected_InactiveUser(t *testing.T) {
	e := newTestEnv(t)
	pair := e.registerAndLogin(t, "alice", "s3cret1")
	u, err := e.store.Users(nil).GetUserByLogin(context.Background(), "alice")
	require.NoError(t, err)
	require.NoError(t, e.store.SetActive(u.ID, false))

	rec := e.do(t, http.MethodGet, "/auth/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, detailInactive, decode(t, rec)["detail"])

	rec = e.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "alice", "password": "s3cret1"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, detailInactive, decode(t, rec)["detail"])
}

func TestLogout_AlwaysSucceedsForValidBearer(t *testing.T) {
	e := newTestEnv(t)
	alice := e.registerAndLogin(t, "alice", "s3cret1")
	bob := e.registerAndLogin(t, "bob", "hunter22")

	for _, tok := range []string{"never-issued", alice.RefreshToken, alice.RefreshToken} {
		rec := e.do(t, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": tok}, bob.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := e.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": alice.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, "bob cannot log alice out")

	rec = e.do(t, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": "x"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookmarks_Flow(t *testing.T) {
	e := newTestEnv(t)
	alice := e.registerAndLogin(t, "alice", "s3cret1")
	bob := e.registerAndLogin(t, "bob", "hunter22")

	rec := e.do(t, http.MethodPost, "/bookmarks/", map[string]any{"url": "https://go.dev", "title": "Go", "notes": "docs"}, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, false, created["archived"])
	assert.Nil(t, created["archived_at"])
	id := int64(created["id"].(float64))
	path := "/bookmarks/" + jsonNumber(id)

	rec = e.do(t, http.MethodPost, "/bookmarks", map[string]any{"url": "not a url", "title": "x"}, alice.AccessToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodGet, path, nil, bob.AccessToken)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, detailBookmarkMissing, decode(t, rec)["detail"])

	rec = e.do(t, http.MethodPatch, path, map[string]any{"archived": true}, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)
	assert.Equal(t, true, updated["archived"])
	assert.NotNil(t, updated["archived_at"])
	assert.Equal(t, "docs", updated["notes"])

	rec = e.do(t, http.MethodGet, "/bookmarks?archived=false", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = e.do(t, http.MethodGet, "/bookmarks?archived=true", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = e.do(t, http.MethodGet, "/bookmarks?archived=maybe", nil, alice.AccessToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodGet, "/bookmarks/abc", nil, alice.AccessToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodDelete, path, nil, bob.AccessToken)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, path, nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bookmark deleted successfully", decode(t, rec)["message"])

	rec = e.do(t, http.MethodGet, path, nil, alice.AccessToken)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/bookmarks", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func jsonNumber(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
		req.Header.Set(echo.HeaderOrigin, origin)
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
		rec := httptest.NewRecorder()
		e.srv.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("moz-extension://1234-abcd")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "moz-extension://1234-abcd", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPatch)

	rec = preflight("https://evil.example")
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestNewServer_BadCORSPattern(t *testing.T) {
	_, err := NewServer(":0", "([", logging.Discard(), NewHandler(nil, nil, nil, logging.Discard()))
	require.Error(t, err)
}

// --- storage failures surface as 500 ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type failingUsers struct{}

func (failingUsers) Register(context.Context, string, string) (*models.User, error) {
	return nil, errBoom{}
}
func (failingUsers) Login(context.Context, string, string) (*services.TokenPair, error) {
	return nil, errBoom{}
}
func (failingUsers) Refresh(context.Context, string) (*services.TokenPair, error) {
	return nil, errBoom{}
}
func (failingUsers) Logout(context.Context, string, *models.User) error { return errBoom{} }

type staticAuth struct{ user *models.User }

func (a staticAuth) ResolveActive(context.Context, string) (*models.User, error) { return a.user, nil }

func TestStorageFailures_Are500(t *testing.T) {
	h := NewHandler(failingUsers{}, nil, staticAuth{user: &models.User{ID: 1, UserName: "alice", IsActive: true}}, logging.Discard())
	srv, err := NewServer(":0", ".*", logging.Discard(), h)
	require.NoError(t, err)

	for _, tc := range []struct{ path, body string }{
		{"/auth/register", `{"username":"a","password":"b"}`},
		{"/auth/login", `{"username":"a","password":"b"}`},
		{"/auth/refresh", `{"refresh_token":"r"}`},
		{"/auth/logout", `{"refresh_token":"r"}`},
	} {
		req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewBufferString(tc.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		assert.JSONEq(t, `{"detail":"internal server error"}`, rec.Body.String())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	e := newTestEnv(t)
	e.srv.address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		challenge bool
	}{
		{errors.New("x"), http.StatusInternalServerError, false},
		{echo.NewHTTPError(http.StatusTeapot), http.StatusTeapot, false},
		{fmt.Errorf("login: %w", common.ErrInvalidCredentials), http.StatusUnauthorized, true},
		{common.ErrInactiveAccount, http.StatusUnauthorized, false},
		{common.ErrInvalidOrExpiredToken, http.StatusUnauthorized, false},
		{common.ErrMissingCredential, http.StatusUnauthorized, true},
		{common.ErrInvalidCredential, http.StatusUnauthorized, true},
		{common.ErrorAlreadyExists, http.StatusBadRequest, false},
		{common.ErrorNotFound, http.StatusNotFound, false},
		{fmt.Errorf("db error: %w", errBoom{}), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		m := mapError(tc.err)
		assert.Equal(t, tc.status, m.status)
		assert.Equal(t, tc.challenge, m.challenge)
	}
	assert.Equal(t, http.StatusText(http.StatusTeapot), mapError(echo.NewHTTPError(http.StatusTeapot)).detail)
}
