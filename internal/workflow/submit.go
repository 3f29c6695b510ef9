package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
)

// ErrBacklogFull signals that admission was declined because too many jobs
// are already waiting. The submission is rejected, not queued.
var ErrBacklogFull = errors.New("job backlog full")

// Submit validates settings, enforces the backlog limit, and creates the
// queued job. The source file must already be staged at sourcePath; it is
// registered as the job's source artifact.
func (m *Manager) Submit(ctx context.Context, sourceName, sourcePath string, settings deck.Settings) (*queue.Job, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if limit := m.cfg.Workflow.BacklogLimit; limit > 0 {
		backlog, err := m.store.CountBacklog(ctx)
		if err != nil {
			return nil, fmt.Errorf("count backlog: %w", err)
		}
		if backlog >= limit {
			return nil, fmt.Errorf("%w: %d jobs waiting (limit %d)", ErrBacklogFull, backlog, limit)
		}
	}

	job, err := m.store.Create(ctx, sourceName, settings, sourcePath)
	if err != nil {
		return nil, err
	}

	m.logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source_file", sourceName),
	)
	return job, nil
}

// registerJobLog creates the job's working directory and pins the per-job log
// artifact path before the first stage runs, so every stage can mirror into it.
func (m *Manager) registerJobLog(ctx context.Context, jobID string) error {
	job, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Artifact(queue.RoleLog) != "" {
		return nil
	}
	dir := m.cfg.JobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}
	return m.store.SetArtifact(ctx, jobID, queue.RoleLog, filepath.Join(dir, "job.log"))
}

// PreviewNotes extracts a deck's speaker notes without creating a job.
func (m *Manager) PreviewNotes(ctx context.Context, sourcePath string) ([]deck.SlideNote, error) {
	handler, ok := m.handlers[queue.StateRendering].(*renderingHandler)
	if !ok {
		return nil, errors.New("rendering handler unavailable")
	}
	return handler.ExtractNotes(ctx, sourcePath)
}
