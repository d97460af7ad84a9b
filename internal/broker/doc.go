// Package broker implements a durable at-least-once task queue on SQLite.
//
// Producers enqueue job identifiers; worker slots dequeue tasks under a
// lease and acknowledge them only after the work completes. Tasks whose
// lease expires without an acknowledgement become visible again, so a
// crashed worker never strands a task.
package broker
