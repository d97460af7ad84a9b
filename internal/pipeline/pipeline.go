package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scribe/internal/asr"
	"scribe/internal/audioprep"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/textproc"
)

// Pipeline processes claimed jobs to a terminal state.
type Pipeline struct {
	cfg      *config.Config
	store    *queue.Store
	preparer *audioprep.Preparer
	dialect  *textproc.DialectMapper
	logger   *slog.Logger
}

// New builds a pipeline. The dialect lexicon CSV is loaded once here when
// configured.
func New(cfg *config.Config, store *queue.Store, preparer *audioprep.Preparer, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if preparer == nil {
		preparer = audioprep.New(cfg.Transcription.FFmpegBinary, logger)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	dialect := textproc.NewDialectMapper()
	if cfg.Paths.LexiconCSV != "" {
		if err := dialect.LoadCSV(cfg.Paths.LexiconCSV); err != nil {
			return nil, fmt.Errorf("load dialect lexicon: %w", err)
		}
	}

	return &Pipeline{
		cfg:      cfg,
		store:    store,
		preparer: preparer,
		dialect:  dialect,
		logger:   logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}, nil
}

// Process runs one job through the full pipeline using the caller-owned
// backend handle. A nil return means the task can be acknowledged: the job
// reached a terminal state or was abandoned. A non-nil return signals a
// transient condition the task queue should retry.
func (p *Pipeline) Process(ctx context.Context, backend asr.Backend, jobID string) error {
	ctx = services.WithJobID(ctx, jobID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, p.logger)

	job, err := p.acquire(ctx, jobID, logger)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	stopHeartbeat := p.startHeartbeat(ctx, jobID, logger)
	defer stopHeartbeat()

	if err := p.runSteps(ctx, backend, job, logger); err != nil {
		if services.IsTransient(err) {
			logger.Warn("transient failure, surfacing for redelivery",
				logging.Error(err))
			return err
		}
		message := services.FailureMessage(err)
		job.SetFailed(message)
		if updateErr := p.store.Update(ctx, job); updateErr != nil {
			logger.Error("cannot persist failed state", logging.Error(updateErr))
			return fmt.Errorf("persist failed state for job %s: %w", jobID, updateErr)
		}
		logger.Info("job failed",
			logging.String("error_message", message))
		return nil
	}

	logger.Info("job finished",
		logging.Int("segments", len(job.Segments)),
		logging.Int("artifacts", len(job.Artifacts)))
	return nil
}

// acquire claims the job, retrying a bounded number of times when the record
// is not yet visible. Returns (nil, nil) when the task should be abandoned.
func (p *Pipeline) acquire(ctx context.Context, jobID string, logger *slog.Logger) (*queue.Job, error) {
	attempts := p.cfg.Workers.ClaimAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		job, err := p.store.Claim(ctx, jobID)
		if errors.Is(err, queue.ErrNotClaimable) {
			logger.Info("job not claimable, abandoning task", logging.Error(err))
			return nil, nil
		}
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "acquire", "claim",
				fmt.Sprintf("cannot claim job %s", jobID), err)
		}
		if job != nil {
			return job, nil
		}

		if attempt < attempts {
			logger.Debug("job record not yet visible, retrying",
				logging.Int("attempt", attempt),
				logging.Int("budget", attempts))
			select {
			case <-time.After(p.cfg.Workers.ClaimRetryDelay):
			case <-ctx.Done():
				return nil, services.Wrap(services.ErrTransient, "acquire", "claim",
					"claim interrupted", ctx.Err())
			}
		}
	}
	logger.Warn("job record never became visible, abandoning task",
		logging.Int("attempts", attempts))
	return nil, nil
}

// startHeartbeat refreshes worker liveness until the returned stop function
// runs.
func (p *Pipeline) startHeartbeat(ctx context.Context, jobID string, logger *slog.Logger) func() {
	interval := p.cfg.Workers.HeartbeatInterval
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := p.store.UpdateHeartbeat(ctx, jobID); err != nil {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
