// Package logger defines the logging seam for the engine. The default is a
// no-op; callers inject a real implementation (see NewZapLogger) through the
// engine options.
package logger

type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}

// Default returns the logger used when none is injected.
func Default() Logger { return NoopLogger{} }
