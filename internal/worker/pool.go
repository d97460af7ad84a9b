package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/asr"
	"scribe/internal/broker"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
)

// Pool runs N concurrent consumers over the shared task queue.
type Pool struct {
	cfg      *config.Config
	broker   *broker.Broker
	pipeline *pipeline.Pipeline
	factory  BackendFactory
	logger   *slog.Logger
}

// NewPool assembles a worker pool.
func NewPool(cfg *config.Config, b *broker.Broker, p *pipeline.Pipeline, factory BackendFactory, logger *slog.Logger) (*Pool, error) {
	if cfg == nil || b == nil || p == nil || factory == nil {
		return nil, errors.New("worker pool requires config, broker, pipeline, and backend factory")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		cfg:      cfg,
		broker:   b,
		pipeline: p,
		factory:  factory,
		logger:   logger.With(logging.String(logging.FieldComponent, "worker")),
	}, nil
}

// Run blocks consuming tasks until the context is cancelled. Startup waits
// for the broker within the configured budget instead of crash-looping.
func (p *Pool) Run(ctx context.Context) error {
	if err := p.waitForBroker(ctx); err != nil {
		return err
	}

	count := p.cfg.Workers.Count
	if count < 1 {
		count = 1
	}
	p.logger.Info("worker pool starting", logging.Int("slots", count))

	var wg sync.WaitGroup
	for slot := 0; slot < count; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			p.runSlot(ctx, slot)
		}(slot)
	}
	wg.Wait()
	p.logger.Info("worker pool stopped")
	return nil
}

// waitForBroker retries connectivity with backoff until the startup budget
// is spent.
func (p *Pool) waitForBroker(ctx context.Context) error {
	budget := time.Duration(p.cfg.Workers.StartupWaitSeconds) * time.Second
	deadline := time.Now().Add(budget)
	delay := time.Second

	for {
		err := p.broker.Ping(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("broker unavailable after %s: %w", budget, err)
		}
		p.logger.Warn("broker unavailable, retrying",
			logging.Duration("delay", delay),
			logging.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if delay < 10*time.Second {
			delay *= 2
		}
	}
}

// runSlot is one consumer loop. The backend handle initializes lazily on the
// first task and is reused for every subsequent job in this slot.
func (p *Pool) runSlot(ctx context.Context, slot int) {
	logger := p.logger.With(logging.Int(logging.FieldWorker, slot))

	var backend asr.Backend
	defer func() {
		if backend != nil {
			if err := backend.Close(); err != nil {
				logger.Warn("backend close failed", logging.Error(err))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := p.broker.Dequeue(ctx)
		if err != nil {
			logger.Warn("dequeue failed", logging.Error(err))
			p.sleep(ctx, p.cfg.Workers.PollInterval)
			continue
		}
		if task == nil {
			p.sleep(ctx, p.cfg.Workers.PollInterval)
			continue
		}

		if backend == nil {
			backend, err = p.factory()
			if err != nil {
				logger.Error("backend initialization failed", logging.Error(err))
				// Leave the task leased; it redelivers after expiry.
				p.sleep(ctx, p.cfg.Workers.PollInterval)
				continue
			}
			logger.Info("backend initialized", logging.String("backend", backend.Name()))
		}

		logger.Info("task received",
			logging.String(logging.FieldJobID, task.JobID),
			logging.Int("attempt", task.Attempts))

		if err := p.pipeline.Process(ctx, backend, task.JobID); err != nil {
			logger.Warn("task left for redelivery",
				logging.String(logging.FieldJobID, task.JobID),
				logging.Error(err))
			continue
		}
		if err := p.broker.Ack(ctx, task.ID); err != nil {
			logger.Warn("ack failed", logging.Error(err))
		}
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
