package auth_test

import (
	"net/http/httptest"
	"testing"

	"license-agent/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg auth.Config) *fiber.App {
	app := fiber.New()
	app.Use(auth.New(cfg))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/status", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestAuth(t *testing.T) {
	app := newApp(auth.Config{ApiKey: "s3cret", Skip: []string{"/health"}})

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{"ValidKey", "/status", "s3cret", fiber.StatusOK},
		{"WrongKey", "/status", "guess", fiber.StatusUnauthorized},
		{"MissingKey", "/status", "", fiber.StatusUnauthorized},
		{"SkippedPath", "/health", "", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set(auth.HeaderName, tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_Disabled(t *testing.T) {
	app := newApp(auth.Config{})

	resp, err := app.Test(httptest.NewRequest("GET", "/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
