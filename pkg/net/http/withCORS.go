package http

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	defaultAllowOrigin  = "http://localhost:3000"
	defaultAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	defaultAllowHeaders = "Accept, Content-Type, Content-Length, Authorization, X-Correlation-ID"
)

func getenvOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

// WithCORS builds a CORS middleware from CORS_ALLOWED_ORIGINS, falling
// back to http://localhost:3000 only when the variable is unset or empty.
func WithCORS() fiber.Handler {
	origins := getenvOrDefault("CORS_ALLOWED_ORIGINS", defaultAllowOrigin)

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     defaultAllowMethods,
		AllowHeaders:     defaultAllowHeaders,
		AllowCredentials: true,
	})
}
