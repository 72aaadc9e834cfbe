package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/geowerks/specklegeo/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: invalid_parameter, model_not_found, etc.
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

// errDomain maps pipeline errors to HTTP responses. Unknown errors
// become 500s without leaking internals.
func errDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		return newError(c, 400, "invalid_parameter", err.Error())
	case errors.Is(err, domain.ErrModelNotFound):
		return newError(c, 404, "model_not_found", err.Error())
	case errors.Is(err, domain.ErrModelMalformed):
		return newError(c, 422, "model_malformed", err.Error())
	case errors.Is(err, domain.ErrModelUnreachable):
		return newError(c, 502, "model_unreachable", err.Error())
	case errors.Is(err, domain.ErrTransformFailure):
		return newError(c, 500, "transform_failure", err.Error())
	default:
		return newError(c, 500, "internal_error", "internal server error")
	}
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}
