package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"slidecast/internal/deck"
	"slidecast/internal/services"
)

// Create validates settings, snapshots them, and inserts a queued job.
// Invalid settings fail fast with services.ErrValidation before any row exists.
func (s *Store) Create(ctx context.Context, sourceName string, settings deck.Settings, sourcePath string) (*Job, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settingsJSON, err := marshalSettings(settings)
	if err != nil {
		return nil, err
	}

	artifacts := map[string]string{}
	if sourcePath != "" {
		artifacts[RoleSource] = sourcePath
	}
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return nil, fmt.Errorf("marshal artifacts: %w", err)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, source_name, state, settings_json, artifacts_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		nullableString(sourceName),
		StateQueued,
		settingsJSON,
		string(artifactsJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Transition advances a job to the next state in the fixed pipeline order.
// Any other target, or a terminal current state, fails with
// ErrInvalidTransition; jobs never regress or skip stages.
func (s *Store) Transition(ctx context.Context, id string, next State) error {
	return s.withJob(ctx, id, func(tx *sql.Tx, job *Job) error {
		if job.State.IsTerminal() {
			return fmt.Errorf("%w: job %s is terminal (%s)", ErrInvalidTransition, id, job.State)
		}
		successor, ok := Successor(job.State)
		if !ok || successor != next {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.State, next)
		}

		now := time.Now().UTC()
		var finished any
		if next.IsTerminal() {
			finished = now.Format(time.RFC3339Nano)
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE jobs SET state = ?, updated_at = ?, finished_at = COALESCE(?, finished_at) WHERE id = ?`,
			next, now.Format(time.RFC3339Nano), finished, id)
		if err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		return nil
	})
}

// Fail moves a job to the failed terminal state from any non-terminal state,
// recording the error kind and message.
func (s *Store) Fail(ctx context.Context, id string, kind services.Kind, message string) error {
	return s.withJob(ctx, id, func(tx *sql.Tx, job *Job) error {
		if job.State.IsTerminal() {
			return fmt.Errorf("%w: job %s is terminal (%s)", ErrInvalidTransition, id, job.State)
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err := tx.ExecContext(ctx,
			`UPDATE jobs SET state = ?, error_kind = ?, error_message = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
			StateFailed, string(kind), message, now, now, id)
		if err != nil {
			return fmt.Errorf("record failure: %w", err)
		}
		return nil
	})
}

// AppendStage appends one telemetry record to the job's stage history.
// The history is append-only and closed once the job is terminal, except
// that the record for the failing stage lands before the terminal write.
func (s *Store) AppendStage(ctx context.Context, id string, telemetry StageTelemetry) error {
	return s.withJob(ctx, id, func(tx *sql.Tx, job *Job) error {
		if job.State.IsTerminal() {
			return fmt.Errorf("%w: job %s is terminal (%s)", ErrInvalidTransition, id, job.State)
		}
		stages := append(job.Stages, telemetry)
		encoded, err := json.Marshal(stages)
		if err != nil {
			return fmt.Errorf("marshal stages: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE jobs SET stages_json = ?, updated_at = ? WHERE id = ?`,
			string(encoded), time.Now().UTC().Format(time.RFC3339Nano), id)
		if err != nil {
			return fmt.Errorf("append stage: %w", err)
		}
		return nil
	})
}

// SetNotes stores the slide notes produced by the rendering stage. Notes are
// written once and never modified afterwards.
func (s *Store) SetNotes(ctx context.Context, id string, notes []deck.SlideNote) error {
	return s.withJob(ctx, id, func(tx *sql.Tx, job *Job) error {
		if job.State.IsTerminal() {
			return fmt.Errorf("%w: job %s is terminal (%s)", ErrInvalidTransition, id, job.State)
		}
		encoded, err := json.Marshal(notes)
		if err != nil {
			return fmt.Errorf("marshal notes: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE jobs SET notes_json = ?, updated_at = ? WHERE id = ?`,
			string(encoded), time.Now().UTC().Format(time.RFC3339Nano), id)
		if err != nil {
			return fmt.Errorf("set notes: %w", err)
		}
		return nil
	})
}

// SetArtifact records the storage location for an artifact role.
func (s *Store) SetArtifact(ctx context.Context, id, role, path string) error {
	return s.withJob(ctx, id, func(tx *sql.Tx, job *Job) error {
		if job.State.IsTerminal() {
			return fmt.Errorf("%w: job %s is terminal (%s)", ErrInvalidTransition, id, job.State)
		}
		return s.writeArtifacts(ctx, tx, job, func(artifacts map[string]string) {
			artifacts[role] = path
		})
	})
}

// ClearArtifacts removes all artifact paths from a job record. This is the
// only mutation permitted on terminal jobs: retention cleanup erases paths,
// not history.
func (s *Store) ClearArtifacts(ctx context.Context, id string) error {
	return s.withJob(ctx, id, func(tx *sql.Tx, job *Job) error {
		return s.writeArtifacts(ctx, tx, job, func(artifacts map[string]string) {
			for role := range artifacts {
				delete(artifacts, role)
			}
		})
	})
}

func (s *Store) writeArtifacts(ctx context.Context, tx *sql.Tx, job *Job, mutate func(map[string]string)) error {
	artifacts := job.Artifacts
	if artifacts == nil {
		artifacts = map[string]string{}
	}
	mutate(artifacts)
	encoded, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET artifacts_json = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().UTC().Format(time.RFC3339Nano), job.ID)
	if err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	return nil
}

// Remove deletes a job row. Used by retention cleanup after artifacts are gone.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResolveInterrupted fails every job found in a non-terminal state. Called
// once at daemon startup so a restart mid-job resolves the record loudly
// instead of leaving it hanging.
func (s *Store) ResolveInterrupted(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, error_kind = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE state NOT IN (?, ?)`,
		StateFailed,
		string(services.KindInterrupted),
		"conversion interrupted by daemon restart",
		now,
		now,
		StateCompleted,
		StateFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("resolve interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// withJob runs fn inside an immediate transaction (the store's DSN sets
// _txlock=immediate) with the job's current row loaded. Holding the write
// lock from BEGIN serializes read-modify-write sequences: concurrent writers
// wait on busy_timeout rather than failing, and readers keep seeing the last
// committed record.
func (s *Store) withJob(ctx context.Context, id string, fn func(*sql.Tx, *Job) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	if err := fn(tx, job); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
