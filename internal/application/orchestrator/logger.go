package orchestrator

import (
	"github.com/relicta-tech/relmono/internal/domain/releaseflow"
)

// Logger is the logging capability the engine and its handlers use.
// *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// Tracer observes transitions. It has no influence on control flow.
type Tracer func(runID string, t releaseflow.Transition)

// LogTracer returns a Tracer that writes each transition at debug level.
func LogTracer(logger Logger) Tracer {
	return func(runID string, t releaseflow.Transition) {
		logger.Debug("transition",
			"run_id", runID,
			"from", t.From,
			"action", t.Action,
			"state", t.To)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}
func (nopLogger) Error(any, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}
