package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"slidecast/internal/api"
	"slidecast/internal/artifacts"
	"slidecast/internal/config"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance
// execution via a lock file.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	workflow  *workflow.Manager
	apiServer *api.Server
	artifacts *artifacts.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, apiServer *api.Server, artifactMgr *artifacts.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "slidecastd.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		workflow:  wf,
		apiServer: apiServer,
		artifacts: artifactMgr,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, resolves jobs interrupted by the previous
// shutdown, and launches the workflow manager, API server, and artifact
// janitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another slidecast daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	interrupted, err := d.store.ResolveInterrupted(runCtx)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("resolve interrupted jobs: %w", err)
	}
	if interrupted > 0 {
		d.logger.Warn("resolved jobs interrupted by previous shutdown",
			logging.Int64("job_count", interrupted),
			logging.String(logging.FieldEventType, "interrupted_resolved"),
		)
	}

	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	if d.apiServer != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.apiServer.Start(runCtx); err != nil {
				d.logger.Error("api server exited", logging.Error(err))
				cancel()
			}
		}()
	}
	if d.artifacts != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.artifacts.RunJanitor(runCtx)
		}()
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("slidecast daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop winds down background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.wg.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("slidecast daemon stopped")
}

// Close stops the daemon and closes the job store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// LockPath returns the daemon lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
