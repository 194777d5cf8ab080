// Package logger configures structured logging for ACI.
//
// It builds log/slog handlers with a process-wide adjustable level and
// automatic redaction of credentials:
//
//   - logger.go: handler construction and level control
//   - context.go: context propagation of the logger and session ids
//   - redact.go: credential masking
package logger
