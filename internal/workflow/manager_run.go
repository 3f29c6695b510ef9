package workflow

import (
	"context"
	"errors"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/stage"
)

var errAlreadyRunning = errors.New("workflow already running")

func (m *Manager) runWorker(ctx context.Context, slot int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker_slot", slot))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextQueued(ctx)
		if errors.Is(err, queue.ErrNotFound) {
			m.waitOrShutdown(ctx, m.pollInterval)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to fetch next queued job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.waitOrShutdown(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}

		// Claim by advancing queued -> rendering; a lost race against
		// another slot surfaces as an invalid transition and is not an error.
		if err := m.store.Transition(ctx, job.ID, queue.StateRendering); err != nil {
			if errors.Is(err, queue.ErrInvalidTransition) || errors.Is(err, queue.ErrNotFound) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to claim queued job", logging.Error(err))
			m.waitOrShutdown(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}

		if err := m.processJob(ctx, job.ID); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// processJob drives one claimed job through the remaining stages strictly in
// order. Each stage sees the freshly persisted job record so handlers depend
// only on durable state, never on in-memory carryover.
func (m *Manager) processJob(ctx context.Context, jobID string) error {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, m.logger)

	if err := m.registerJobLog(ctx, jobID); err != nil {
		logger.Warn("failed to register job log artifact", logging.Error(err))
	}

	for {
		job, err := m.store.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.State.IsTerminal() {
			if job.State == queue.StateCompleted {
				logger.Info("conversion completed",
					logging.String(logging.FieldEventType, "job_complete"),
					logging.Int64("total_stage_duration_ms", job.TotalStageDurationMS()),
				)
			}
			return nil
		}

		handler, ok := m.handlers[job.State]
		if !ok {
			err := services.Wrap(services.ErrInternal, string(job.State), "dispatch", "no handler for state", nil)
			m.failJob(ctx, job.ID, err)
			return err
		}

		stageErr := m.runner.Run(ctx, job, string(job.State), m.stageTimeout(job.State), func(stageCtx context.Context) (stage.Outcome, error) {
			return handler.Execute(stageCtx, job)
		})
		if stageErr != nil {
			if errors.Is(stageErr, context.Canceled) {
				logger.Debug("stage interrupted by shutdown")
				return stageErr
			}
			m.failJob(ctx, job.ID, stageErr)
			return stageErr
		}

		next, ok := queue.Successor(job.State)
		if !ok {
			err := services.Wrap(services.ErrInternal, string(job.State), "advance", "no successor state", nil)
			m.failJob(ctx, job.ID, err)
			return err
		}
		if err := m.store.Transition(ctx, job.ID, next); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.failJob(ctx, job.ID, services.Wrap(services.ErrInternal, string(job.State), "advance", "persist transition", err))
			return err
		}
	}
}

func (m *Manager) failJob(ctx context.Context, jobID string, stageErr error) {
	kind := services.KindOf(stageErr)
	message := services.Message(stageErr)

	// Shutdown may have cancelled the worker context; the failure record
	// still needs to land.
	persistCtx := ctx
	if persistCtx.Err() != nil {
		var cancel context.CancelFunc
		persistCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := m.store.Fail(persistCtx, jobID, kind, message); err != nil {
		m.logger.Error("failed to persist job failure",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err),
		)
		return
	}
	logging.WithContext(ctx, m.logger).Error("conversion failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String("error_kind", string(kind)),
		logging.String("error_message", message),
	)
}

func (m *Manager) stageTimeout(state queue.State) time.Duration {
	seconds := 0
	switch state {
	case queue.StateRendering:
		seconds = m.cfg.Workflow.RenderTimeout
	case queue.StateNarrating:
		seconds = m.cfg.Workflow.NarrateTimeout
	case queue.StateSyncing:
		seconds = m.cfg.Workflow.SyncTimeout
	case queue.StateMuxing:
		seconds = m.cfg.Workflow.MuxTimeout
	}
	return time.Duration(seconds) * time.Second
}

func (m *Manager) waitOrShutdown(ctx context.Context, wait time.Duration) {
	if wait <= 0 {
		wait = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
