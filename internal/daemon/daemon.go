package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/broker"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/worker"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	broker *broker.Broker
	pool   *worker.Pool

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                `json:"running"`
	Queue        queue.HealthSummary `json:"queue"`
	TaskDepth    int                 `json:"task_depth"`
	QueueDBPath  string              `json:"queue_db_path"`
	LockFilePath string              `json:"lock_file_path"`
	Dependencies []deps.Status       `json:"dependencies,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, b *broker.Broker, pool *worker.Pool, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || b == nil || pool == nil {
		return nil, errors.New("daemon requires config, store, broker, and worker pool")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		broker:   b,
		pool:     pool,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the worker pool, the stale-job
// reclaimer, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	for _, dep := range deps.CheckBinaries(deps.Requirements(d.cfg)) {
		if !dep.Available && !dep.Optional {
			d.logger.Warn("required external tool unavailable",
				logging.String("tool", dep.Name),
				logging.String("detail", dep.Detail))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.pool.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("worker pool exited", logging.Error(err))
		}
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.reclaimLoop(runCtx)
	}()

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			cancel()
			d.wg.Wait()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("scribe daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.broker.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Queue = health
	}
	if depth, err := d.broker.Depth(ctx); err == nil {
		status.TaskDepth = depth
	}
	return status
}

// APIAddr returns the bound API address, empty until started.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// reclaimLoop resets processing jobs whose heartbeat expired and makes them
// deliverable again.
func (d *Daemon) reclaimLoop(ctx context.Context) {
	interval := d.cfg.Workers.HeartbeatInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-d.cfg.Workers.HeartbeatTimeout)
			reclaimed, err := d.store.ReclaimStaleProcessing(ctx, cutoff)
			if err != nil {
				d.logger.Warn("stale job reclaim failed", logging.Error(err))
				continue
			}
			for _, id := range reclaimed {
				d.logger.Warn("reclaimed stale job",
					logging.String(logging.FieldJobID, id))
				if err := d.broker.Enqueue(ctx, id); err != nil {
					d.logger.Error("cannot re-enqueue reclaimed job",
						logging.String(logging.FieldJobID, id),
						logging.Error(err))
				}
			}
		}
	}
}
