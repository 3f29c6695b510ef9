package artifacts

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
)

// Manager owns artifact registration and retention cleanup. Purge is
// best-effort and idempotent: missing files are fine, and a crash between
// file removal and row removal just means the next pass finishes the job.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	retention     time.Duration
	purgeInterval time.Duration
}

// NewManager constructs an artifact lifecycle manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "artifacts"),
		retention:     time.Duration(cfg.Workflow.RetentionHours) * time.Hour,
		purgeInterval: time.Duration(cfg.Workflow.PurgeIntervalMins) * time.Minute,
	}
}

// Register records the storage location for one artifact role.
func (m *Manager) Register(ctx context.Context, jobID, role, path string) error {
	return m.store.SetArtifact(ctx, jobID, role, path)
}

// PurgeExpired removes artifact files and then the job record for every
// terminal job older than the retention window. It returns the number of
// jobs fully purged.
func (m *Manager) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if m.retention <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-m.retention)
	jobs, err := m.store.TerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if !m.removeFiles(job) {
			continue
		}
		// Paths leave the record before the row goes, so a partial purge
		// never leaves a job pointing at deleted files.
		if err := m.store.ClearArtifacts(ctx, job.ID); err != nil && !errors.Is(err, queue.ErrNotFound) {
			m.logger.Warn("failed to clear artifact paths",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
			continue
		}
		if _, err := m.store.Remove(ctx, job.ID); err != nil {
			m.logger.Warn("failed to remove purged job record",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
			continue
		}
		m.logger.Info("purged expired job",
			logging.String(logging.FieldEventType, "job_purged"),
			logging.String(logging.FieldJobID, job.ID),
		)
		purged++
	}
	return purged, nil
}

// removeFiles deletes the job's artifact files and working directory.
// Missing files count as removed.
func (m *Manager) removeFiles(job *queue.Job) bool {
	ok := true
	for role, path := range job.Artifacts {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("failed to remove artifact file",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("artifact_role", role),
				logging.Error(err),
			)
			ok = false
		}
	}
	if !ok {
		return false
	}
	if err := os.RemoveAll(m.cfg.JobDir(job.ID)); err != nil {
		m.logger.Warn("failed to remove job directory",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
		return false
	}
	return true
}

// RunJanitor purges on the configured interval until ctx is cancelled.
func (m *Manager) RunJanitor(ctx context.Context) {
	interval := m.purgeInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.PurgeExpired(ctx, time.Now()); err != nil && ctx.Err() == nil {
				m.logger.Error("retention purge failed", logging.Error(err))
			}
		}
	}
}
