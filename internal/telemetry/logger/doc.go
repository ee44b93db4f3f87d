// Package logger provides structured logging for tokvault.
//
// It wraps log/slog with JSON and text output, a process-wide dynamic
// level and automatic redaction of sensitive attributes:
//
//   - logger.go: Logger interface, construction, level control
//   - context.go: context-carried loggers and operation IDs
//   - redact.go: sensitive data redaction
//
// Lower layers accept a *slog.Logger; use Logger.Slog to hand them one
// that shares the redacting handler.
package logger
