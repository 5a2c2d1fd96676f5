package http

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health returns HTTP Status 200 once the process has started serving.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

// Ready probes the capabilities passed in and reports 200 only if all of
// them respond, so a load balancer can distinguish "process up" from
// "process able to serve traffic".
func Ready(pingers ...func() error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, ping := range pingers {
			if err := ping(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "not_ready",
					"error":  err.Error(),
				})
			}
		}

		return c.JSON(fiber.Map{"status": "ready"})
	}
}

// Version returns HTTP Status 200 with the given build version.
func Version(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":     version,
			"buildNumber": os.Getenv("BUILD_NUMBER"),
			"requestDate": time.Now().UTC(),
		})
	}
}

// Welcome returns HTTP Status 200 with service info.
func Welcome(service string, description string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     service,
			"description": description,
		})
	}
}

// NotImplementedEndpoint returns HTTP 501 with not implemented message.
func NotImplementedEndpoint(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "not implemented"})
}
