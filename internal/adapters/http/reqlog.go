package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/geowerks/specklegeo/internal/pkg/logging"
)

// RequestIDLogMiddleware stores a request-scoped logger in the user context,
// so log lines emitted deep in the pipeline (traversal, store fetches) carry
// the id of the conversion that caused them. The pipeline retrieves the
// logger with logging.FromCtx.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, ok := c.Locals("requestid").(string)
		if !ok || rid == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", rid)
		c.SetUserContext(logging.IntoCtx(c.UserContext(), reqLogger))

		return c.Next()
	}
}
