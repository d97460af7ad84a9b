// Package logging assembles structured slog loggers used across scribe
// services.
//
// It centralizes level and output plumbing and exposes context-aware helpers
// so pipeline code can automatically tag log lines with job IDs, pipeline
// steps, and correlation IDs. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
