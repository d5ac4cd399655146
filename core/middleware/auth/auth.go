package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// HeaderName is the request header carrying the API key.
const HeaderName = "X-API-Key"

// Config defines the auth middleware settings.
type Config struct {
	// ApiKey is the expected key. Empty disables the check.
	ApiKey string

	// Skip lists paths served without a key.
	Skip []string
}

// New returns a middleware that rejects requests without the configured API key.
func New(cfg Config) fiber.Handler {
	skip := make(map[string]struct{}, len(cfg.Skip))
	for _, p := range cfg.Skip {
		skip[p] = struct{}{}
	}
	want := []byte(cfg.ApiKey)

	return func(c *fiber.Ctx) error {
		if len(want) == 0 {
			return c.Next()
		}
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}
		got := []byte(c.Get(HeaderName))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing API key",
			})
		}
		return c.Next()
	}
}
