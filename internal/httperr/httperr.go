// Package httperr defines the error taxonomy every endpoint funnels
// through: bad request, unauthorized, forbidden, not found, rate limited
// and internal. Anything else defaults to a 500 with a generic body.
package httperr

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/substacklab/gateway/internal/logger"
)

// Error is an HTTP-mapped error. Headers, when set, are written on the
// response alongside the status code (used by rate limiting for
// Retry-After and the policy header).
type Error struct {
	Status  int
	Message string
	Headers map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error {
	return New(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(fiber.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return New(fiber.StatusNotFound, message)
}

func RateLimited(message string, headers map[string]string) *Error {
	return &Error{Status: fiber.StatusTooManyRequests, Message: message, Headers: headers}
}

func Internal(message string) *Error {
	return New(fiber.StatusInternalServerError, message)
}

// Handler is the Fiber error handler. Known errors surface their message
// verbatim; everything else becomes a 500 whose body never echoes the
// original error text (it goes to the logs instead).
func Handler(c *fiber.Ctx, err error) error {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		for k, v := range httpErr.Headers {
			c.Set(k, v)
		}
		if httpErr.Status >= fiber.StatusInternalServerError {
			logger.Get().Error().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Int("status", httpErr.Status).
				Str("error", httpErr.Message).
				Msg("request failed")
			return c.Status(httpErr.Status).JSON(fiber.Map{
				"error": http.StatusText(httpErr.Status),
			})
		}
		return c.Status(httpErr.Status).JSON(fiber.Map{
			"error": httpErr.Message,
		})
	}

	// Fiber's own errors (404 route miss, body limits) keep their codes.
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	logger.Get().Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": http.StatusText(fiber.StatusInternalServerError),
	})
}
