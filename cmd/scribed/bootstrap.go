package main

import (
	"fmt"
	"log/slog"

	"scribe/internal/audioprep"
	"scribe/internal/broker"
	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/worker"
)

// bootstrap wires the full service graph: store, broker, pipeline, worker
// pool, daemon.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	b, err := broker.Open(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open task broker: %w", err)
	}

	preparer := audioprep.New(cfg.Transcription.FFmpegBinary, logger)
	p, err := pipeline.New(cfg, store, preparer, logger)
	if err != nil {
		_ = b.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	factory, err := worker.NewBackendFactory(cfg)
	if err != nil {
		_ = b.Close()
		_ = store.Close()
		return nil, err
	}

	pool, err := worker.NewPool(cfg, b, p, factory, logger)
	if err != nil {
		_ = b.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build worker pool: %w", err)
	}

	d, err := daemon.New(cfg, store, b, pool, logger)
	if err != nil {
		_ = b.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build daemon: %w", err)
	}
	return d, nil
}
