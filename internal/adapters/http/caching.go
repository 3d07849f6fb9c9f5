package http

import (
	"github.com/gofiber/fiber/v2"
)

// cacheControl holds the default Cache-Control header per GET path.
var cacheControl = map[string]string{
	"/v1/health":    "public, max-age=10",
	"/v1/ready":     "public, max-age=10",
	"/v1/filter":    "public, max-age=3600",
	"/v1/snapshots": "public, max-age=60",
	"/v1/analysis":  "public, max-age=60",
	"/metrics":      "no-cache",
}

// CachingMiddleware sets Cache-Control on GET responses unless the handler
// already did. Stored snapshots are append-only, so range results stay valid
// for a short while.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}
		if c.Response().StatusCode() >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}
		if ttl, ok := cacheControl[c.Path()]; ok {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
