package supervisor

import "github.com/webots/supervisor/internal/logger"

// loggerDiagnostics adapts the module's structured logger to the
// DiagnosticSink interface, following the same delegation pattern
// dittofs's adapter handlers use to route protocol-level warnings to
// slog without the core package depending on any particular handler.
type loggerDiagnostics struct{}

func (loggerDiagnostics) Warn(function, message string) {
	logger.Warn("supervisor: precondition violation",
		logger.Operation(function), "message", message)
}

func (loggerDiagnostics) Error(err error) {
	logger.Error("supervisor: engine error", logger.Err(err))
}

// NewEngineWithLogging constructs an Engine whose diagnostics are routed
// to the module's structured logger instead of being dropped, the
// constructor cmd/supervisorctl and any long-running host process use in
// place of the bare NewEngine(t, nil) tests favor.
func NewEngineWithLogging(t Transport) *Engine {
	return NewEngine(t, loggerDiagnostics{})
}
