package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// RequestIDLogMiddleware stores a logger carrying the request ID in the
// request's user context.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", rid)
		c.SetUserContext(context.WithValue(c.UserContext(), loggerKey, reqLogger))

		return c.Next()
	}
}

// LoggerFromCtx returns the request logger, or the default logger.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
