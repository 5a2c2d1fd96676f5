// Package mzap adapts *zap.SugaredLogger to the mlog.Logger interface and
// adds span-correlated logging helpers used by handlers that want a log line
// attached to the active trace span.
package mzap

import (
	"context"
	"fmt"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ZapWithTraceLogger wraps *zap.SugaredLogger and implements mlog.Logger.
type ZapWithTraceLogger struct {
	Logger *zap.SugaredLogger
}

func (l *ZapWithTraceLogger) Info(args ...any)                  { l.Logger.Info(args...) }
func (l *ZapWithTraceLogger) Infof(format string, args ...any)  { l.Logger.Infof(format, args...) }
func (l *ZapWithTraceLogger) Infoln(args ...any)                { l.Logger.Info(args...) }
func (l *ZapWithTraceLogger) Error(args ...any)                 { l.Logger.Error(args...) }
func (l *ZapWithTraceLogger) Errorf(format string, args ...any) { l.Logger.Errorf(format, args...) }
func (l *ZapWithTraceLogger) Errorln(args ...any)               { l.Logger.Error(args...) }
func (l *ZapWithTraceLogger) Warn(args ...any)                  { l.Logger.Warn(args...) }
func (l *ZapWithTraceLogger) Warnf(format string, args ...any)  { l.Logger.Warnf(format, args...) }
func (l *ZapWithTraceLogger) Warnln(args ...any)                { l.Logger.Warn(args...) }
func (l *ZapWithTraceLogger) Debug(args ...any)                 { l.Logger.Debug(args...) }
func (l *ZapWithTraceLogger) Debugf(format string, args ...any) { l.Logger.Debugf(format, args...) }
func (l *ZapWithTraceLogger) Debugln(args ...any)               { l.Logger.Debug(args...) }
func (l *ZapWithTraceLogger) Fatal(args ...any)                 { l.Logger.Fatal(args...) }
func (l *ZapWithTraceLogger) Fatalf(format string, args ...any) { l.Logger.Fatalf(format, args...) }
func (l *ZapWithTraceLogger) Fatalln(args ...any)               { l.Logger.Fatal(args...) }

// InfofContext logs at info level and, when ctx carries a recording span,
// adds the message as a span event so trace viewers show it inline.
func (l *ZapWithTraceLogger) InfofContext(ctx context.Context, format string, args ...any) {
	l.Logger.Infof(format, args...)
	addSpanEvent(ctx, format, args...)
}

// ErrorfContext logs at error level and annotates the active span, if any.
func (l *ZapWithTraceLogger) ErrorfContext(ctx context.Context, format string, args ...any) {
	l.Logger.Errorf(format, args...)
	addSpanEvent(ctx, format, args...)
}

// WarnfContext logs at warn level and annotates the active span, if any.
func (l *ZapWithTraceLogger) WarnfContext(ctx context.Context, format string, args ...any) {
	l.Logger.Warnf(format, args...)
	addSpanEvent(ctx, format, args...)
}

func addSpanEvent(ctx context.Context, format string, args ...any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.AddEvent(fmt.Sprintf(format, args...))
}

// WithFields returns a new logger carrying the given key/value pairs,
// leaving the receiver unchanged.
//
//nolint:ireturn
func (l *ZapWithTraceLogger) WithFields(fields ...any) mlog.Logger {
	return &ZapWithTraceLogger{Logger: l.Logger.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *ZapWithTraceLogger) Sync() error { return l.Logger.Sync() }
