// Package daemon coordinates the long-running service: single-instance
// locking, the worker pool, stale-job reclamation, and the HTTP API through
// which jobs are submitted and inspected.
package daemon
