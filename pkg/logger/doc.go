// Package logger builds the application's slog loggers. Records are JSON in
// prod and text elsewhere, and carry the deployment environment. Output
// resolves a configured log target to a writer; only stdout is supported.
package logger
