package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APIKeyAuthMiddleware guards internal API routes with a shared key,
// accepted as X-API-Key or a bearer token. An empty configured key
// disables the routes entirely rather than leaving them open.
func APIKeyAuthMiddleware(configuredKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if configuredKey == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "service_unavailable", "message": "API access is not configured",
			})
		}

		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized", "message": "Missing API key",
			})
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(configuredKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized", "message": "Invalid API key",
			})
		}

		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
