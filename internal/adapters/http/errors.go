package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/criticaltracks/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, unprocessable, store_unavailable, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errFromRun maps pipeline errors onto HTTP statuses.
func errFromRun(c *fiber.Ctx, err error) error {
	var (
		storeErr  *usecases.StoreError
		decodeErr *usecases.DecodeError
	)
	switch {
	case errors.Is(err, usecases.ErrInvalidRange):
		return errBadRequest(c, err.Error())
	case errors.As(err, &decodeErr):
		return newError(c, 422, "unprocessable", err.Error())
	case errors.As(err, &storeErr):
		return newError(c, 502, "store_unavailable", err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
