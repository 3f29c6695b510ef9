package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/workflow"
)

const maxUploadBytes = 512 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: services.Message(err)}
	if kind := services.KindOf(err); kind != services.KindInternal || errors.Is(err, services.ErrInternal) {
		resp.Kind = string(kind)
	}
	s.writeJSON(w, status, resp)
}

// handleSubmit accepts a multipart upload (file plus optional settings form
// fields) and admits it as a queued job.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest,
			services.Wrap(services.ErrValidation, "api", "submit", "multipart form required", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest,
			services.Wrap(services.ErrValidation, "api", "submit", "file field required", err))
		return
	}
	defer file.Close()

	settings, err := s.settingsFromForm(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	sourceName := filepath.Base(header.Filename)
	sourcePath, err := s.stageUpload(file, sourceName)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	job, err := s.workflow.Submit(r.Context(), sourceName, sourcePath, settings)
	if err != nil {
		_ = os.Remove(sourcePath)
		switch {
		case errors.Is(err, workflow.ErrBacklogFull):
			s.writeError(w, http.StatusServiceUnavailable, err)
		case errors.Is(err, services.ErrValidation):
			s.writeError(w, http.StatusBadRequest, err)
		default:
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// settingsFromForm merges submitted fields over the configured defaults.
func (s *Server) settingsFromForm(r *http.Request) (deck.Settings, error) {
	defaults := s.cfg.Defaults
	settings := deck.Settings{
		Voice:        defaults.Voice,
		SpeakingRate: defaults.SpeakingRate,
		Resolution:   deck.Resolution(defaults.Resolution),
		FPS:          defaults.FPS,
		Quality:      deck.Quality(defaults.Quality),
	}

	if voice := strings.TrimSpace(r.FormValue("voice")); voice != "" {
		settings.Voice = voice
	}
	if raw := strings.TrimSpace(r.FormValue("speaking_rate")); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return settings, services.Wrap(services.ErrValidation, "api", "submit",
				fmt.Sprintf("speaking_rate %q is not a number", raw), err)
		}
		settings.SpeakingRate = rate
	}
	if res := strings.TrimSpace(r.FormValue("resolution")); res != "" {
		settings.Resolution = deck.Resolution(res)
	}
	if raw := strings.TrimSpace(r.FormValue("fps")); raw != "" {
		fps, err := strconv.Atoi(raw)
		if err != nil {
			return settings, services.Wrap(services.ErrValidation, "api", "submit",
				fmt.Sprintf("fps %q is not an integer", raw), err)
		}
		settings.FPS = fps
	}
	if quality := strings.TrimSpace(r.FormValue("quality")); quality != "" {
		settings.Quality = deck.Quality(quality)
	}
	return settings, nil
}

// stageUpload writes the submitted file into the upload directory under a
// unique name so concurrent submissions never collide.
func (s *Server) stageUpload(file multipart.File, sourceName string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir(), 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	dest := filepath.Join(s.cfg.UploadDir(), uuid.NewString()+"-"+sourceName)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	_, copyErr := io.Copy(out, file)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("store upload: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("flush upload: %w", closeErr)
	}
	return dest, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	jobs, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	summaries := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, summarize(job))
	}
	payload := map[string]any{"jobs": summaries}
	if active, err := s.store.CountActive(r.Context()); err == nil {
		payload["active"] = active
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, detail(job))
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	path := job.Artifact(queue.RoleLog)
	if path == "" {
		s.writeError(w, http.StatusNotFound, errors.New("no log recorded for this job"))
		return
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.writeError(w, http.StatusNotFound, errors.New("log no longer available"))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if job.State != queue.StateCompleted {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("job is %s; video not ready", job.State))
		return
	}
	path := job.Artifact(queue.RoleFinalVideo)
	if path == "" {
		s.writeError(w, http.StatusNotFound, errors.New("video artifact has been purged"))
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, errors.New("video artifact no longer on disk"))
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", strings.TrimSuffix(job.SourceName, filepath.Ext(job.SourceName))+".mp4"))
	http.ServeFile(w, r, path)
}

// handlePreviewNotes extracts a deck's speaker notes without creating a job.
func (s *Server) handlePreviewNotes(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest,
			services.Wrap(services.ErrValidation, "api", "preview", "multipart form required", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest,
			services.Wrap(services.ErrValidation, "api", "preview", "file field required", err))
		return
	}
	defer file.Close()

	sourcePath, err := s.stageUpload(file, filepath.Base(header.Filename))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer os.Remove(sourcePath)

	notes, err := s.workflow.PreviewNotes(r.Context(), sourcePath)
	if err != nil {
		if errors.Is(err, services.ErrSourceInvalid) {
			s.writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"slide_count":    len(notes),
		"narrated_count": deck.CountNarrated(notes),
		"notes":          notes,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stages := s.workflow.Health(r.Context())
	ready := true
	for _, h := range stages {
		if !h.Ready {
			ready = false
		}
	}
	status := "ok"
	code := http.StatusOK
	if !ready {
		status = "degraded"
	}
	payload := map[string]any{"status": status, "stages": stages}
	if stats, err := s.store.Stats(r.Context()); err == nil {
		counts := make(map[string]int, len(stats))
		for state, n := range stats {
			counts[string(state)] = n
		}
		payload["queue"] = counts
	}
	s.writeJSON(w, code, payload)
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (*queue.Job, bool) {
	id := chi.URLParam(r, "id")
	job, err := s.store.GetByID(r.Context(), id)
	if errors.Is(err, queue.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("job %s not found", id))
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return job, true
}
