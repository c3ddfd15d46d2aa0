package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"promptlime/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webOrigin = "http://localhost:5173"

func newMiddlewareApp(t *testing.T, method, path string) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: webOrigin}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Add(method, path, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

// hit sends a browser request from webOrigin and returns status and headers.
func hit(t *testing.T, app *fiber.App, method, path string, header map[string]string) (int, http.Header) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", webOrigin)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode, resp.Header
}

// exhaustLimiter spends the per-IP budget of 100 requests.
func exhaustLimiter(t *testing.T, app *fiber.App, method, path string) {
	t.Helper()
	for range 100 {
		status, _ := hit(t, app, method, path, nil)
		require.Equal(t, fiber.StatusOK, status)
	}
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	app := newMiddlewareApp(t, http.MethodGet, "/api/prompts")
	exhaustLimiter(t, app, http.MethodGet, "/api/prompts")

	status, header := hit(t, app, http.MethodGet, "/api/prompts", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, webOrigin, header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_PreflightBypassesLimiter(t *testing.T) {
	app := newMiddlewareApp(t, http.MethodPost, "/api/prompts/1/copy")
	exhaustLimiter(t, app, http.MethodPost, "/api/prompts/1/copy")

	status, _ := hit(t, app, http.MethodPost, "/api/prompts/1/copy", nil)
	require.Equal(t, fiber.StatusTooManyRequests, status)

	status, header := hit(t, app, http.MethodOptions, "/api/prompts/1/copy", map[string]string{
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "authorization,content-type",
	})
	assert.Equal(t, fiber.StatusNoContent, status)
	assert.Equal(t, webOrigin, header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestSetupMiddleware_PaymentWebhookBypassesLimiter(t *testing.T) {
	app := newMiddlewareApp(t, http.MethodPost, "/api/payments/webhook")

	// Provider retries arrive in bursts from a handful of addresses.
	for range 120 {
		status, _ := hit(t, app, http.MethodPost, "/api/payments/webhook", nil)
		require.Equal(t, fiber.StatusOK, status)
	}
}
