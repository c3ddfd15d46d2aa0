package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"promptlime/internal/config"
	"promptlime/internal/models"
	"promptlime/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testJWTSecret      = "test-session-secret-0123456789abcdef0123"
	testIdentitySecret = "test-identity-secret"
	testWebhookSecret  = "whsec_test"
	testAdminEmail     = "admin@example.com"
)

// testEnv is a fully wired server backed by in-memory SQLite and miniredis.
type testEnv struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Port:                 "0",
		JWTSecret:            testJWTSecret,
		IdentitySecret:       testIdentitySecret,
		AdminEmails:          testAdminEmail,
		FreeCopyLimit:        5,
		GuestCookieName:      "pl_guest_copied",
		PaymentWebhookSecret: testWebhookSecret,
		ImageUploadDir:       t.TempDir(),
		ImageMaxUploadSizeMB: 2,
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	testutil.SeedCatalog(t, db)
	return &testEnv{t: t, srv: srv, app: srv.App(), db: db, mr: mr}
}

// user seeds an account and returns it with a session token.
func (e *testEnv) user(email string, mutate ...func(*models.User)) (*models.User, string) {
	e.t.Helper()
	u := testutil.SeedUser(e.t, e.db, email, mutate...)
	session, err := e.srv.sessionService.Issue(u)
	require.NoError(e.t, err)
	return u, session.Token
}

func (e *testEnv) admin() (*models.User, string) {
	return e.user(testAdminEmail, func(u *models.User) { u.IsAdmin = true })
}

type reqOpt func(*http.Request)

func withToken(token string) reqOpt {
	return func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func withHeader(key, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func (e *testEnv) do(method, path string, body any, opts ...reqOpt) *http.Response {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func errorBody(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	decodeBody(t, resp, &body)
	return body
}
