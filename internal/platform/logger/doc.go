// Package logger provides structured JSON logging on log/slog with a
// configurable level, plus helpers for carrying a request-scoped logger
// through a context.Context.
package logger
