// Package log provides slog loggers that redact secrets before they
// reach any output. Control-port cookies and hidden-service private
// keys must never appear in logs, and the handler in this package is
// the safety net that guarantees it even when a caller logs carelessly.
package log
