// Package queue persists transcription jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stale-job recovery, and the atomic claim that
// grants a worker exclusive processing rights. Jobs capture the immutable
// submission snapshot (input path, model, options) alongside the mutable
// result fields (segments, artifacts, transcript text) the pipeline writes at
// finalization.
//
// Treat this package as the single source of truth for job lifecycle
// semantics; when you add new statuses or fields, update schema.sql and bump
// schemaVersion.
package queue
