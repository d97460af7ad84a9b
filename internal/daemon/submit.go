package daemon

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// SubmitRequest is a producer-side job submission.
type SubmitRequest struct {
	InputPath string        `json:"input_path"`
	ModelName string        `json:"model_name,omitempty"`
	Options   queue.Options `json:"options"`
}

// Submit creates a pending job and enqueues its task. When the broker
// rejects the enqueue the job is marked failed instead of lingering pending
// forever, and the error propagates to the caller.
func (d *Daemon) Submit(ctx context.Context, req SubmitRequest) (*queue.Job, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return nil, services.Wrap(services.ErrInput, "submit", "validate", "input_path is required", nil)
	}
	model := strings.TrimSpace(req.ModelName)
	if model == "" {
		model = d.cfg.Transcription.Model
	}

	job, err := d.store.NewJob(ctx, req.InputPath, model, req.Options)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := d.broker.Enqueue(ctx, job.ID); err != nil {
		job.SetFailed(fmt.Sprintf("cannot enqueue task: %v", err))
		if updateErr := d.store.Update(ctx, job); updateErr != nil {
			d.logger.Error("cannot mark unenqueued job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(updateErr))
		}
		return job, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return job, nil
}

// Retry resets a failed job to pending and enqueues a fresh task. Only
// failed jobs are eligible.
func (d *Daemon) Retry(ctx context.Context, jobID string) (*queue.Job, error) {
	job, err := d.store.RetryFailed(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := d.broker.Enqueue(ctx, job.ID); err != nil {
		job.SetFailed(fmt.Sprintf("cannot enqueue task: %v", err))
		if updateErr := d.store.Update(ctx, job); updateErr != nil {
			d.logger.Error("cannot mark unenqueued job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(updateErr))
		}
		return job, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return job, nil
}
