package broker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/config"
)

// Task is a single unit of deliverable work referencing a job.
type Task struct {
	ID          int64
	JobID       string
	Attempts    int
	EnqueuedAt  time.Time
	LeasedUntil *time.Time
}

// Broker is a lease-based task queue. Delivery is at-least-once: a task
// stays invisible for the lease duration after dequeue and reappears if it
// is not acknowledged in time.
type Broker struct {
	db    *sql.DB
	lease time.Duration
}

const tasksSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    enqueued_at TEXT NOT NULL,
    leased_until TEXT
);
CREATE INDEX IF NOT EXISTS idx_tasks_leased_until ON tasks(leased_until);
`

// Open initializes the task database and returns a connected broker.
func Open(cfg *config.Config) (*Broker, error) {
	dbPath := filepath.Join(cfg.Paths.LogDir, "tasks.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open task db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(tasksSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tasks schema: %w", err)
	}

	return &Broker{
		db:    db,
		lease: cfg.Workers.LeaseTimeout,
	}, nil
}

// Close closes the underlying database connection.
func (b *Broker) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Enqueue makes a job identifier available for delivery. Errors propagate to
// the producer so it can mark the job failed instead of stranding it.
func (b *Broker) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := b.db.ExecContext(
		ctx,
		`INSERT INTO tasks (job_id, enqueued_at) VALUES (?, ?)`,
		jobID,
		now,
	)
	if err != nil {
		return fmt.Errorf("enqueue task for job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue claims the oldest deliverable task under a fresh lease. Returns
// (nil, nil) when no task is deliverable.
func (b *Broker) Dequeue(ctx context.Context) (*Task, error) {
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dequeue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT id, job_id, attempts, enqueued_at
         FROM tasks
         WHERE leased_until IS NULL OR leased_until < ?
         ORDER BY id
         LIMIT 1`,
		nowStr,
	)

	var (
		task        Task
		enqueuedRaw string
	)
	err = row.Scan(&task.ID, &task.JobID, &task.Attempts, &enqueuedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}

	leasedUntil := now.Add(b.lease)
	res, err := tx.ExecContext(
		ctx,
		`UPDATE tasks
         SET leased_until = ?, attempts = attempts + 1
         WHERE id = ? AND (leased_until IS NULL OR leased_until < ?)`,
		leasedUntil.Format(time.RFC3339Nano),
		task.ID,
		nowStr,
	)
	if err != nil {
		return nil, fmt.Errorf("lease task %d: %w", task.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		// Lost the race to another consumer.
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dequeue: %w", err)
	}

	task.Attempts++
	task.LeasedUntil = &leasedUntil
	if enqueued, parseErr := time.Parse(time.RFC3339Nano, enqueuedRaw); parseErr == nil {
		task.EnqueuedAt = enqueued
	}
	return &task, nil
}

// Ack removes a completed task from the queue. Acknowledging a task whose
// lease already expired and was redelivered is harmless.
func (b *Broker) Ack(ctx context.Context, taskID int64) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("ack task %d: %w", taskID, err)
	}
	return nil
}

// Depth returns the number of tasks currently in the queue, leased or not.
func (b *Broker) Depth(ctx context.Context) (int, error) {
	var depth int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks`).Scan(&depth); err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return depth, nil
}

// Ping verifies the broker is reachable.
func (b *Broker) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}
