package http

import (
	"regexp"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/ctxutil"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mopentelemetry"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryMiddleware wraps the process-wide Telemetry to expose fiber
// middleware that opens and closes one span per request.
type TelemetryMiddleware struct {
	*mopentelemetry.Telemetry
}

// NewTelemetryMiddleware builds a TelemetryMiddleware from tl.
func NewTelemetryMiddleware(tl *mopentelemetry.Telemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{tl}
}

var uuidInPath = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// replaceUUIDWithPlaceholder collapses request paths containing ids into a
// single low-cardinality span name, e.g. "/capsules/:id".
func replaceUUIDWithPlaceholder(path string) string {
	return uuidInPath.ReplaceAllString(path, ":id")
}

// WithTelemetry starts a span for every request, named "METHOD /templated/path".
func (tm *TelemetryMiddleware) WithTelemetry() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tracer := otel.Tracer(tm.LibraryName)
		ctx := ctxutil.ContextWithTracer(c.UserContext(), tracer)

		ctx, span := tracer.Start(ctx, c.Method()+" "+replaceUUIDWithPlaceholder(c.Path()))
		defer span.End()

		c.SetUserContext(ctx)

		return c.Next()
	}
}

// EndTracingSpans closes the span left open on the request's user context
// once the handler chain has returned.
func (tm *TelemetryMiddleware) EndTracingSpans(c *fiber.Ctx) error {
	err := c.Next()

	trace.SpanFromContext(c.UserContext()).End()

	return err
}
