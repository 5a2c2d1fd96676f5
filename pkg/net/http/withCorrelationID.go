package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WithCorrelationID stamps every request/response pair with an X-Correlation-ID.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := c.Get(headerCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}

		c.Set(headerCorrelationID, cid)
		c.Request().Header.Set(headerCorrelationID, cid)

		return c.Next()
	}
}
