package logging

import (
	"log/slog"
)

// LoggerHook creates step-specific loggers by wrapping a base logger.
// This interface allows the orchestrator to remain generic while supporting
// log capturing through custom implementations.
type LoggerHook interface {
	// LoggerForStep wraps the base logger to create a step-specific logger.
	// The base logger comes from the orchestrator's injected dependencies.
	LoggerForStep(baseLogger *slog.Logger, stepID string) *slog.Logger
}

// CapturingLoggerHook creates loggers that capture logs via CapturingHandler.
type CapturingLoggerHook struct {
	collector *LogCollector
}

// NewCapturingLoggerHook creates a hook that captures all step logs.
func NewCapturingLoggerHook(collector *LogCollector) LoggerHook {
	return &CapturingLoggerHook{
		collector: collector,
	}
}

// LoggerForStep creates a step-specific logger with capturing enabled.
// Each call wraps the base logger with a CapturingHandler that tags logs
// with the step ID.
func (p *CapturingLoggerHook) LoggerForStep(baseLogger *slog.Logger, stepID string) *slog.Logger {
	capturingHandler := NewCapturingHandler(
		baseLogger.Handler(),
		p.collector,
		stepID,
	)
	return slog.New(capturingHandler)
}
