// Package ctxutil carries the request-scoped tracer and logger together in
// one context value, the way handlers pull both without two separate lookups.
package ctxutil

import (
	"context"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type requestContextKey string

// RequestContextKey is the single context key holding a *RequestContextValue.
var RequestContextKey = requestContextKey("request_context")

// RequestContextValue bundles the per-request tracer and logger.
type RequestContextValue struct {
	Tracer trace.Tracer
	Logger mlog.Logger
}

// NewLoggerFromContext extracts the Logger from the request context, falling
// back to a no-op logger so callers never need a nil check.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) mlog.Logger {
	if rc, ok := ctx.Value(RequestContextKey).(*RequestContextValue); ok && rc.Logger != nil {
		return rc.Logger
	}

	return &mlog.NoneLogger{}
}

// ContextWithLogger returns a context carrying logger, preserving any tracer
// already attached.
func ContextWithLogger(ctx context.Context, logger mlog.Logger) context.Context {
	values, _ := ctx.Value(RequestContextKey).(*RequestContextValue)
	if values == nil {
		values = &RequestContextValue{}
	}

	values.Logger = logger

	return context.WithValue(ctx, RequestContextKey, values)
}

// NewTracerFromContext extracts the Tracer from the request context, falling
// back to the default global tracer.
//
//nolint:ireturn
func NewTracerFromContext(ctx context.Context) trace.Tracer {
	if rc, ok := ctx.Value(RequestContextKey).(*RequestContextValue); ok && rc.Tracer != nil {
		return rc.Tracer
	}

	return otel.Tracer("default")
}

// ContextWithTracer returns a context carrying tracer, preserving any logger
// already attached.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	values, _ := ctx.Value(RequestContextKey).(*RequestContextValue)
	if values == nil {
		values = &RequestContextValue{}
	}

	values.Tracer = tracer

	return context.WithValue(ctx, RequestContextKey, values)
}
