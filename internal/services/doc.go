// Package services defines shared utilities consumed by the job pipeline and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, pipeline steps, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the retry policy the worker pool applies (transient vs permanent).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
