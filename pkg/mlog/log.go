// Package mlog defines the logging contract the control plane codes
// against. Production wiring injects the zap-backed implementation from
// pkg/mzap; this package carries only the interface, a stdlib fallback used
// before zap is up (and by the launcher when no logger is configured), and
// the context plumbing that moves a request-scoped logger through
// middleware.
package mlog

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Logger is the leveled, field-capable logging surface every component
// takes as a dependency.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Fatalln(args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}

// LogLevel orders severities from PanicLevel (most severe) down to
// DebugLevel; a logger emits entries at or above its configured level.
type LogLevel int8

const (
	PanicLevel LogLevel = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

var levelNames = map[string]LogLevel{
	"fatal":   FatalLevel,
	"error":   ErrorLevel,
	"warn":    WarnLevel,
	"warning": WarnLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

// ParseLevel maps a LOG_LEVEL-style string to its LogLevel.
func ParseLevel(lvl string) (LogLevel, error) {
	if level, ok := levelNames[strings.ToLower(lvl)]; ok {
		return level, nil
	}

	return 0, fmt.Errorf("not a valid LogLevel: %q", lvl)
}

// GoLogger is the stdlib-log fallback implementation: level-gated, with any
// bound fields prefixed onto each line.
type GoLogger struct {
	Level  LogLevel
	fields []any
}

// IsLevelEnabled reports whether entries at level would be emitted.
func (l *GoLogger) IsLevelEnabled(level LogLevel) bool {
	return l.Level >= level
}

func (l *GoLogger) print(level LogLevel, args ...any) {
	if !l.IsLevelEnabled(level) {
		return
	}

	log.Print(l.prefixed(args)...)
}

func (l *GoLogger) printf(level LogLevel, format string, args ...any) {
	if !l.IsLevelEnabled(level) {
		return
	}

	if len(l.fields) > 0 {
		format = fmt.Sprint(l.fields...) + " " + format
	}

	log.Printf(format, args...)
}

func (l *GoLogger) println(level LogLevel, args ...any) {
	if !l.IsLevelEnabled(level) {
		return
	}

	log.Println(l.prefixed(args)...)
}

func (l *GoLogger) prefixed(args []any) []any {
	if len(l.fields) == 0 {
		return args
	}

	return append(append([]any{}, l.fields...), args...)
}

func (l *GoLogger) Info(args ...any)                  { l.print(InfoLevel, args...) }
func (l *GoLogger) Infof(format string, args ...any)  { l.printf(InfoLevel, format, args...) }
func (l *GoLogger) Infoln(args ...any)                { l.println(InfoLevel, args...) }
func (l *GoLogger) Error(args ...any)                 { l.print(ErrorLevel, args...) }
func (l *GoLogger) Errorf(format string, args ...any) { l.printf(ErrorLevel, format, args...) }
func (l *GoLogger) Errorln(args ...any)               { l.println(ErrorLevel, args...) }
func (l *GoLogger) Warn(args ...any)                  { l.print(WarnLevel, args...) }
func (l *GoLogger) Warnf(format string, args ...any)  { l.printf(WarnLevel, format, args...) }
func (l *GoLogger) Warnln(args ...any)                { l.println(WarnLevel, args...) }
func (l *GoLogger) Debug(args ...any)                 { l.print(DebugLevel, args...) }
func (l *GoLogger) Debugf(format string, args ...any) { l.printf(DebugLevel, format, args...) }
func (l *GoLogger) Debugln(args ...any)               { l.println(DebugLevel, args...) }
func (l *GoLogger) Fatal(args ...any)                 { l.print(FatalLevel, args...) }
func (l *GoLogger) Fatalf(format string, args ...any) { l.printf(FatalLevel, format, args...) }
func (l *GoLogger) Fatalln(args ...any)               { l.println(FatalLevel, args...) }

// WithFields returns a copy carrying the extra key/value pairs.
//
//nolint:ireturn
func (l *GoLogger) WithFields(fields ...any) Logger {
	return &GoLogger{
		Level:  l.Level,
		fields: append(append([]any{}, l.fields...), fields...),
	}
}

// Sync is a no-op; the stdlib logger writes unbuffered.
func (l *GoLogger) Sync() error { return nil }

type loggerContextKey struct{}

// ContextWithLogger stashes logger in ctx for handlers further down the
// chain.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// NewLoggerFromContext returns the logger stashed by ContextWithLogger, or
// a NoneLogger so callers never need a nil check.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(Logger); ok {
		return l
	}

	return &NoneLogger{}
}
