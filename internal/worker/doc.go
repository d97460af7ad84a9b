// Package worker runs the consumer side of the job service: N slots pulling
// tasks from the broker, each owning one lazily-initialized transcription
// backend handle reused across jobs.
package worker
