package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/narration"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/services/muxer"
	"slidecast/internal/services/render"
	"slidecast/internal/stage"
	"slidecast/internal/timing"
)

// healthChecker is implemented by collaborators that can verify their own
// readiness (binary resolvable, credentials present).
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func collaboratorHealth(ctx context.Context, name string, collaborator any) stage.Health {
	checker, ok := collaborator.(healthChecker)
	if !ok {
		return stage.Healthy(name)
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// renderingHandler turns the uploaded deck into the base video and persists
// the extracted speaker notes. Rendering never retries.
type renderingHandler struct {
	cfg      *config.Config
	store    *queue.Store
	renderer render.Renderer
}

func (h *renderingHandler) Execute(ctx context.Context, job *queue.Job) (stage.Outcome, error) {
	source := job.Artifact(queue.RoleSource)
	if source == "" {
		return stage.Outcome{}, services.Wrap(services.ErrSourceInvalid, stage.NameRendering, "execute", "job has no source artifact", nil)
	}

	result, err := h.renderer.Render(ctx, source, h.cfg.JobDir(job.ID), job.Settings)
	if err != nil {
		return stage.Outcome{}, err
	}
	if len(result.Notes) == 0 {
		return stage.Outcome{}, services.Wrap(services.ErrSourceInvalid, stage.NameRendering, "execute", "presentation has no slides", nil)
	}

	if err := h.store.SetNotes(ctx, job.ID, result.Notes); err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameRendering, "execute", "persist notes", err)
	}
	if err := h.store.SetArtifact(ctx, job.ID, queue.RoleRenderedVideo, result.VideoPath); err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameRendering, "execute", "persist rendered video", err)
	}

	return stage.Outcome{
		Detail:   fmt.Sprintf("%d slides, %d narrated", len(result.Notes), deck.CountNarrated(result.Notes)),
		Attempts: 1,
	}, nil
}

func (h *renderingHandler) HealthCheck(ctx context.Context) stage.Health {
	return collaboratorHealth(ctx, stage.NameRendering, h.renderer)
}

// ExtractNotes supports the preview endpoint: notes only, no job, no video.
func (h *renderingHandler) ExtractNotes(ctx context.Context, sourcePath string) ([]deck.SlideNote, error) {
	extractor, ok := h.renderer.(render.NotesExtractor)
	if !ok {
		return nil, services.Wrap(services.ErrInternal, stage.NameRendering, "extract-notes", "renderer does not support notes extraction", nil)
	}
	destDir := filepath.Join(h.cfg.UploadDir(), "preview")
	return extractor.ExtractNotes(ctx, sourcePath, destDir)
}

// narratingHandler fans synthesis out over the narrated slides and registers
// each clip artifact in slide order.
type narratingHandler struct {
	cfg   *config.Config
	store *queue.Store
	pool  *narration.Pool
}

func (h *narratingHandler) Execute(ctx context.Context, job *queue.Job) (stage.Outcome, error) {
	clipsDir := filepath.Join(h.cfg.JobDir(job.ID), "clips")
	results, err := h.pool.Narrate(ctx, job.Notes, job.Settings, clipsDir)
	if err != nil {
		return stage.Outcome{}, err
	}

	attempts := 0
	for _, result := range results {
		attempts += result.Attempts
		if err := h.store.SetArtifact(ctx, job.ID, queue.NarrationClipRole(result.Index), result.Clip.Path); err != nil {
			return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameNarrating, "execute", "persist narration clip", err)
		}
	}
	return stage.Outcome{
		Detail:   fmt.Sprintf("%d of %d slides narrated", len(results), len(job.Notes)),
		Attempts: attempts,
	}, nil
}

func (h *narratingHandler) HealthCheck(ctx context.Context) stage.Health {
	if h.cfg.TTS.APIKey == "" || h.cfg.TTS.Region == "" {
		return stage.Unhealthy(stage.NameNarrating, "synthesis credentials not configured")
	}
	return stage.Healthy(stage.NameNarrating)
}

// syncingHandler computes the per-slide timeline from the persisted clips and
// has the renderer regenerate the video with those display durations.
type syncingHandler struct {
	cfg      *config.Config
	store    *queue.Store
	renderer render.Renderer
	prober   DurationProber
}

func (h *syncingHandler) Execute(ctx context.Context, job *queue.Job) (stage.Outcome, error) {
	timeline, err := buildTimeline(ctx, job, h.prober, timingPolicy(h.cfg))
	if err != nil {
		return stage.Outcome{}, err
	}

	base := job.Artifact(queue.RoleRenderedVideo)
	if base == "" {
		return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameSyncing, "execute", "job has no rendered video artifact", nil)
	}
	retimed, err := h.renderer.Retime(ctx, base, h.cfg.JobDir(job.ID), timeline)
	if err != nil {
		return stage.Outcome{}, err
	}
	if err := h.store.SetArtifact(ctx, job.ID, queue.RoleRetimedVideo, retimed); err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameSyncing, "execute", "persist retimed video", err)
	}

	return stage.Outcome{
		Detail:   fmt.Sprintf("total runtime %s across %d slides", timeline.Total.Round(time.Millisecond), len(timeline.Slots)),
		Attempts: 1,
	}, nil
}

func (h *syncingHandler) HealthCheck(ctx context.Context) stage.Health {
	return collaboratorHealth(ctx, stage.NameSyncing, h.renderer)
}

// muxingHandler joins the retimed video with the narration track.
type muxingHandler struct {
	cfg    *config.Config
	store  *queue.Store
	muxer  muxer.Muxer
	prober DurationProber
}

func (h *muxingHandler) Execute(ctx context.Context, job *queue.Job) (stage.Outcome, error) {
	timeline, err := buildTimeline(ctx, job, h.prober, timingPolicy(h.cfg))
	if err != nil {
		return stage.Outcome{}, err
	}

	video := job.Artifact(queue.RoleRetimedVideo)
	if video == "" {
		return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameMuxing, "execute", "job has no retimed video artifact", nil)
	}

	head := time.Duration(h.cfg.Workflow.NarrationHeadMS) * time.Millisecond
	segments := make([]muxer.Segment, 0, len(timeline.Slots))
	for _, slot := range timeline.Slots {
		if !slot.HasAudio {
			continue
		}
		clip := job.Artifact(queue.NarrationClipRole(slot.Index))
		if clip == "" {
			return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameMuxing, "execute",
				fmt.Sprintf("missing narration clip artifact for slide %d", slot.Index), nil)
		}
		segments = append(segments, muxer.Segment{Path: clip, Offset: slot.Offset + head})
	}

	outPath := filepath.Join(h.cfg.JobDir(job.ID), "final.mp4")
	if err := h.muxer.Mux(ctx, video, segments, outPath); err != nil {
		return stage.Outcome{}, err
	}
	if err := h.store.SetArtifact(ctx, job.ID, queue.RoleFinalVideo, outPath); err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrInternal, stage.NameMuxing, "execute", "persist final video", err)
	}

	return stage.Outcome{
		Detail:   fmt.Sprintf("%d narration segments muxed", len(segments)),
		Attempts: 1,
	}, nil
}

func (h *muxingHandler) HealthCheck(ctx context.Context) stage.Health {
	return collaboratorHealth(ctx, stage.NameMuxing, h.muxer)
}

func timingPolicy(cfg *config.Config) timing.Policy {
	return timing.Policy{
		SilentSlide: time.Duration(cfg.Workflow.SilentSlideMS) * time.Millisecond,
		Head:        time.Duration(cfg.Workflow.NarrationHeadMS) * time.Millisecond,
		Tail:        time.Duration(cfg.Workflow.NarrationTailMS) * time.Millisecond,
	}
}

// buildTimeline recomputes the slide schedule from durable state alone: the
// persisted notes plus the measured length of each registered clip. Syncing
// and muxing derive the identical timeline because the inputs are identical.
func buildTimeline(ctx context.Context, job *queue.Job, prober DurationProber, policy timing.Policy) (timing.Timeline, error) {
	clips := make(map[int]time.Duration)
	for _, note := range job.Notes {
		if !note.NarrationRequired() {
			continue
		}
		path := job.Artifact(queue.NarrationClipRole(note.Index))
		if path == "" {
			return timing.Timeline{}, services.Wrap(services.ErrInternal, stage.NameSyncing, "timeline",
				fmt.Sprintf("missing narration clip artifact for slide %d", note.Index), nil)
		}
		duration, err := prober.Duration(ctx, path)
		if err != nil {
			return timing.Timeline{}, services.Wrap(services.ErrInternal, stage.NameSyncing, "timeline", "measure clip duration", err)
		}
		clips[note.Index] = duration
	}
	return timing.Compute(job.Notes, clips, policy)
}
