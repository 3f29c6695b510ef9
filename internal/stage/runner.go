package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services"
)

// Runner executes one pipeline stage with uniform behavior: deadline,
// telemetry capture, failure classification, and structured logging mirrored
// into the job's log artifact.
type Runner struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewRunner constructs a stage runner backed by the job store.
func NewRunner(store *queue.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{store: store, logger: logger}
}

// Run executes fn under the stage deadline and appends exactly one telemetry
// record for the attempt group. The returned error is always classified into
// the services taxonomy; the caller decides the job-level consequence.
func (r *Runner) Run(ctx context.Context, job *queue.Job, stageName string, timeout time.Duration, fn func(context.Context) (Outcome, error)) error {
	stageCtx := services.WithStage(services.WithJobID(ctx, job.ID), stageName)
	logger := logging.WithContext(stageCtx, r.logger)

	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, timeout)
		defer cancel()
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source_file", strings.TrimSpace(job.SourceName)),
	)
	r.appendJobLog(job, fmt.Sprintf("%s: started", stageName))

	startedWall := time.Now().UTC()
	start := time.Now()
	outcome, execErr := fn(stageCtx)
	elapsed := time.Since(start)
	endedWall := time.Now().UTC()

	execErr = r.classify(stageCtx, stageName, execErr)

	telemetry := queue.StageTelemetry{
		Name:       stageName,
		StartedAt:  startedWall,
		EndedAt:    endedWall,
		DurationMS: elapsed.Milliseconds(),
		Status:     queue.StageOK,
		Detail:     strings.TrimSpace(outcome.Detail),
		Attempts:   outcome.Attempts,
	}
	if execErr != nil {
		telemetry.Status = queue.StageFailed
		telemetry.Detail = services.Message(execErr)
	}
	if err := r.store.AppendStage(ctx, job.ID, telemetry); err != nil {
		logger.Error("failed to persist stage telemetry", logging.Error(err))
	}

	if execErr != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", string(services.KindOf(execErr))),
			logging.Duration("stage_duration", elapsed),
			logging.Error(execErr),
		)
		r.appendJobLog(job, fmt.Sprintf("%s: failed after %s: %s", stageName, elapsed.Round(time.Millisecond), services.Message(execErr)))
		return execErr
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
		logging.Int("attempts", outcome.Attempts),
	)
	r.appendJobLog(job, fmt.Sprintf("%s: completed in %s", stageName, elapsed.Round(time.Millisecond)))
	return nil
}

// classify guarantees the stable error vocabulary. A deadline hit becomes a
// timeout; the collaborator may not support cancellation, so note that its
// process could still be writing files when the deadline fires.
func (r *Runner) classify(ctx context.Context, stageName string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)):
		return services.Wrap(services.ErrTimeout, stageName, "deadline",
			"stage deadline exceeded; collaborator process may still be writing output", err)
	case errors.Is(err, context.Canceled):
		return err
	case services.KindOf(err) != services.KindInternal:
		return err
	default:
		return services.Wrap(services.ErrInternal, stageName, "execute", "unexpected failure", err)
	}
}

// appendJobLog mirrors a line into the job's log artifact. Best effort: the
// structured daemon log remains the authoritative trace.
func (r *Runner) appendJobLog(job *queue.Job, line string) {
	path := job.Artifact(queue.RoleLog)
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().UTC().Format(time.RFC3339), line)
}
