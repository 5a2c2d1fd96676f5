package mlog

// NoneLogger discards everything. It backs NewLoggerFromContext's fallback
// and tests that don't care about log output.
type NoneLogger struct{}

func (l *NoneLogger) Info(args ...any)                  {}
func (l *NoneLogger) Infof(format string, args ...any)  {}
func (l *NoneLogger) Infoln(args ...any)                {}
func (l *NoneLogger) Error(args ...any)                 {}
func (l *NoneLogger) Errorf(format string, args ...any) {}
func (l *NoneLogger) Errorln(args ...any)               {}
func (l *NoneLogger) Warn(args ...any)                  {}
func (l *NoneLogger) Warnf(format string, args ...any)  {}
func (l *NoneLogger) Warnln(args ...any)                {}
func (l *NoneLogger) Debug(args ...any)                 {}
func (l *NoneLogger) Debugf(format string, args ...any) {}
func (l *NoneLogger) Debugln(args ...any)               {}
func (l *NoneLogger) Fatal(args ...any)                 {}
func (l *NoneLogger) Fatalf(format string, args ...any) {}
func (l *NoneLogger) Fatalln(args ...any)               {}

// WithFields returns the receiver; there is nothing to bind fields to.
//
//nolint:ireturn
func (l *NoneLogger) WithFields(fields ...any) Logger { return l }

// Sync is a no-op.
func (l *NoneLogger) Sync() error { return nil }
