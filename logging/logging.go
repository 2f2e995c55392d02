// Package logging defines the logging collaborator injected into the
// simulation layers. The core packages never touch a global logger; callers
// that want output pass a Logger, everyone else gets the nop implementation.
package logging

import "go.uber.org/zap"

// Logger is the reporting interface the engines write through.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap adapts a zap logger to the Logger interface.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...interface{}) { z.s.Debugf(format, args...) }
func (z *zapLogger) Infof(format string, args ...interface{})  { z.s.Infof(format, args...) }
func (z *zapLogger) Warnf(format string, args ...interface{})  { z.s.Warnf(format, args...) }
func (z *zapLogger) Errorf(format string, args ...interface{}) { z.s.Errorf(format, args...) }

type nopLogger struct{}

// Nop returns a logger that discards everything. It is the default for every
// engine so the library stays silent unless a caller opts in.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
