package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gogomedia/internal/authgate"
	"github.com/Skotchmaster/gogomedia/internal/config"
	"github.com/Skotchmaster/gogomedia/internal/db"
	"github.com/Skotchmaster/gogomedia/internal/hash"
	"github.com/Skotchmaster/gogomedia/internal/media"
	"github.com/Skotchmaster/gogomedia/internal/repo"
	"github.com/Skotchmaster/gogomedia/internal/revocation"
	"github.com/Skotchmaster/gogomedia/internal/search"
	"github.com/Skotchmaster/gogomedia/internal/service"
	"github.com/Skotchmaster/gogomedia/internal/tokens"
)

type testEnv struct {
	E      *echo.Echo
	DB     *gorm.DB
	Auth   *AuthHandler
	Media  *MediaHandler
	Health *HealthHandler
	Gate   *authgate.Gate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	gdb, err := db.Open(ctx, config.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	ts := tokens.NewService([]byte("handler-secret"), time.Hour)
	revoked := &revocation.GormStore{DB: gdb}
	gate := &authgate.Gate{Tokens: ts, Revoked: revoked, Users: r}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler

	return &testEnv{
		E:  e,
		DB: gdb,
		Auth: &AuthHandler{
			Auth: &service.AuthService{Repo: r, Hasher: hash.Hasher{Cost: bcrypt.MinCost}, Tokens: ts, Revoked: revoked},
			Gate: gate,
		},
		Media: &MediaHandler{
			Media: &service.MediaService{Engine: media.NewEngine(r), Repo: r, Index: search.Disabled{}},
			Gate:  gate,
		},
		Health: &HealthHandler{DB: gdb},
		Gate:   gate,
	}
}

func (env *testEnv) context(method, target, body, token string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return env.E.NewContext(req, rec), rec
}

func (env *testEnv) register(t *testing.T, username string) string {
	t.Helper()
	c, rec := env.context(http.MethodPost, "/register", `{"username":"`+username+`","password":"secret"}`, "")
	require.NoError(t, env.Auth.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AuthToken)
	return resp.AuthToken
}

func (env *testEnv) mediaContext(method, username, query, body, token string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := env.context(method, "/user/"+username+"/media"+query, body, token)
	c.SetPath("/user/:username/media")
	c.SetParamNames("username")
	c.SetParamValues(username)
	return c, rec
}

func requireHTTPError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected HTTPError, got %v", err)
	assert.Equal(t, code, he.Code)
	assert.Equal(t, msg, he.Message)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "test_user")

	_, err := env.Auth.Auth.Tokens.Verify(token)
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"taken", `{"username":"test_user","password":"x"}`, http.StatusUnprocessableEntity, "username taken"},
		{"no username", `{"password":"x"}`, http.StatusUnprocessableEntity, "missing parameter 'username'"},
		{"no password", `{"username":"other"}`, http.StatusUnprocessableEntity, "missing parameter 'password'"},
		{"empty body", ``, http.StatusUnprocessableEntity, "missing parameter 'username'"},
		{"broken json", `{"username":`, http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := env.context(http.MethodPost, "/register", tt.body, "")
			requireHTTPError(t, env.Auth.Register(c), tt.code, tt.msg)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "test_user")

	c, rec := env.context(http.MethodPost, "/login", `{"username":"test_user","password":"secret"}`, "")
	require.NoError(t, env.Auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "user successfully logged in", resp["message"])
	assert.NotEmpty(t, resp["auth_token"])

	c, _ = env.context(http.MethodPost, "/login", `{"username":"test_user","password":"nope"}`, "")
	requireHTTPError(t, env.Auth.Login(c), http.StatusUnauthorized, "incorrect password")

	c, _ = env.context(http.MethodPost, "/login", `{"username":"ghost","password":"secret"}`, "")
	requireHTTPError(t, env.Auth.Login(c), http.StatusUnprocessableEntity, "user doesn't exist")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "test_user")

	c, rec := env.context(http.MethodGet, "/logout", "", token)
	require.NoError(t, env.Auth.Logout(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user successfully logged out")

	c, _ = env.context(http.MethodGet, "/logout", "", token)
	requireHTTPError(t, env.Auth.Logout(c), http.StatusUnauthorized, "auth token blacklisted")

	c, _ = env.context(http.MethodGet, "/logout", "", "")
	requireHTTPError(t, env.Auth.Logout(c), http.StatusUnauthorized, "no authorization header")
}

func TestMedia_PutSingleThenList(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	c, rec := env.mediaContext(http.MethodPut, "alice", "", `{"name":"X"}`, token)
	require.NoError(t, env.Media.Upsert(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var put struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &put))
	assert.Equal(t, "successfully added/updated media element", put.Message)
	assert.Equal(t, map[string]any{
		"id":             float64(1),
		"name":           "X",
		"medium":         "other",
		"consumed_state": "not started",
		"description":    "",
		"order":          float64(0),
	}, put.Data)

	c, rec = env.mediaContext(http.MethodGet, "alice", "?medium=other", "", token)
	require.NoError(t, env.Media.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Message string           `json:"message"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "successfully got media for the logged in user", list.Message)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "X", list.Data[0]["name"])

	c, rec = env.mediaContext(http.MethodGet, "alice", "?medium=film", "", token)
	require.NoError(t, env.Media.List(c))
	assert.JSONEq(t, `{"success":true,"message":"successfully got media for the logged in user","data":[]}`, rec.Body.String())
}

func TestMedia_PutBatchAtomic(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	c, _ := env.mediaContext(http.MethodPut, "alice", "", `[{"name":"A"},{"name":"B","medium":"bogus"}]`, token)
	requireHTTPError(t, env.Media.Upsert(c), http.StatusUnprocessableEntity,
		"medium parameter must be 'film', 'audio', 'literature', or 'other'")

	var count int64
	require.NoError(t, env.DB.Table("media").Count(&count).Error)
	assert.Zero(t, count)

	c, rec := env.mediaContext(http.MethodPut, "alice", "", `[{"name":"A"},{"name":"B","medium":"film"}]`, token)
	require.NoError(t, env.Media.Upsert(c))
	var resp struct {
		Message string           `json:"message"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "successfully added/updated media elements", resp.Message)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "A", resp.Data[0]["name"])
	assert.Equal(t, "film", resp.Data[1]["medium"])
}

func TestMedia_OwnershipAndGate(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	c, _ := env.mediaContext(http.MethodPut, "alice", "", `{"name":"mine"}`, alice)
	require.NoError(t, env.Media.Upsert(c))

	// bob edits his own collection but names alice's item
	c, _ = env.mediaContext(http.MethodPut, "bob", "", `{"id":1,"name":"stolen"}`, bob)
	requireHTTPError(t, env.Media.Upsert(c), http.StatusUnauthorized, "logged in user doesn't have media with given id")

	c, _ = env.mediaContext(http.MethodPut, "alice", "", `{"name":"x"}`, bob)
	requireHTTPError(t, env.Media.Upsert(c), http.StatusUnauthorized, "not logged in as this user")

	c, _ = env.mediaContext(http.MethodGet, "carol", "", "", bob)
	requireHTTPError(t, env.Media.List(c), http.StatusUnprocessableEntity, "user doesn't exist")

	c, _ = env.mediaContext(http.MethodGet, "alice", "", "", "")
	requireHTTPError(t, env.Media.List(c), http.StatusUnauthorized, "no authorization header")

	c, _ = env.mediaContext(http.MethodGet, "alice", "", "", "")
	c.Request().Header.Set(echo.HeaderAuthorization, alice)
	requireHTTPError(t, env.Media.List(c), http.StatusUnprocessableEntity, "authorization header malformed")

	c, rec := env.mediaContext(http.MethodGet, "alice", "", "", alice)
	require.NoError(t, env.Media.List(c))
	assert.Contains(t, rec.Body.String(), `"name":"mine"`)
}

func TestMedia_FilterErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	c, _ := env.mediaContext(http.MethodGet, "alice", "?consumed-state=done", "", token)
	requireHTTPError(t, env.Media.List(c), http.StatusUnprocessableEntity,
		"consumed-state url parameter must be 'not-started', 'started', or 'finished'")

	c, _ = env.mediaContext(http.MethodGet, "alice", "?medium=vinyl", "", token)
	requireHTTPError(t, env.Media.List(c), http.StatusUnprocessableEntity,
		"medium url parameter must be 'film', 'audio', 'literature', or 'other'")
}

func TestMedia_Delete(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	c, _ := env.mediaContext(http.MethodPut, "alice", "", `{"name":"X"}`, token)
	require.NoError(t, env.Media.Upsert(c))

	c, _ = env.mediaContext(http.MethodDelete, "alice", "", `{}`, token)
	requireHTTPError(t, env.Media.Delete(c), http.StatusUnprocessableEntity, "missing parameter 'id'")

	c, _ = env.mediaContext(http.MethodDelete, "alice", "", `{"id":"1"}`, token)
	requireHTTPError(t, env.Media.Delete(c), http.StatusUnprocessableEntity, "id parameter must be type integer")

	for i := 0; i < 2; i++ {
		c, rec := env.mediaContext(http.MethodDelete, "alice", "", `{"id":1}`, token)
		require.NoError(t, env.Media.Delete(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "successfully deleted media element")
	}

	var count int64
	require.NoError(t, env.DB.Table("media").Count(&count).Error)
	assert.Zero(t, count)
}

func TestMedia_SearchDisabled(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	c, _ := env.mediaContext(http.MethodGet, "alice", "/search", "", token)
	requireHTTPError(t, env.Media.Search(c), http.StatusBadRequest, "missing parameter 'q'")

	c, _ = env.mediaContext(http.MethodGet, "alice", "/search?q=dune", "", token)
	requireHTTPError(t, env.Media.Search(c), http.StatusServiceUnavailable, "search is disabled")
}

func TestBypassMode(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	env.Gate.AuthDisabled = true

	c, rec := env.mediaContext(http.MethodPut, "alice", "", `{"name":"X"}`, "")
	require.NoError(t, env.Media.Upsert(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = env.context(http.MethodGet, "/logout", "", "")
	require.NoError(t, env.Auth.Logout(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorHandler(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.context(http.MethodGet, "/", "", "")
	ErrorHandler(echo.NewHTTPError(http.StatusUnauthorized, "signature expired"), c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"signature expired"}`, rec.Body.String())

	c, rec = env.context(http.MethodGet, "/", "", "")
	ErrorHandler(errors.New("boom"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal error"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.context(http.MethodGet, "/", "", "")
	require.NoError(t, env.Health.Index(c))
	assert.JSONEq(t, `{"success":true,"message":"gogomedia api"}`, rec.Body.String())

	c, rec = env.context(http.MethodGet, "/health/ready", "", "")
	require.NoError(t, env.Health.Ready(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, db.Close(env.DB))
	c, _ = env.context(http.MethodGet, "/health/ready", "", "")
	requireHTTPError(t, env.Health.Ready(c), http.StatusServiceUnavailable, "database unavailable")
}
