package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/api"
	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/stage"
	"slidecast/internal/testsupport"
)

type fakeWorkflow struct {
	store     *queue.Store
	notes     []deck.SlideNote
	notesErr  error
	unhealthy bool
}

func (f *fakeWorkflow) Submit(ctx context.Context, sourceName, sourcePath string, settings deck.Settings) (*queue.Job, error) {
	return f.store.Create(ctx, sourceName, settings, sourcePath)
}

func (f *fakeWorkflow) PreviewNotes(ctx context.Context, sourcePath string) ([]deck.SlideNote, error) {
	if f.notesErr != nil {
		return nil, f.notesErr
	}
	return f.notes, nil
}

func (f *fakeWorkflow) Health(ctx context.Context) []stage.Health {
	if f.unhealthy {
		return []stage.Health{stage.Unhealthy(stage.NameRendering, "renderer binary not found")}
	}
	return []stage.Health{stage.Healthy(stage.NameRendering), stage.Healthy(stage.NameNarrating)}
}

func newTestServer(t *testing.T) (*httptest.Server, *queue.Store, *fakeWorkflow, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	wf := &fakeWorkflow{store: store}
	server := httptest.NewServer(api.NewServer(cfg, store, wf, logging.NewNop()).Router())
	t.Cleanup(server.Close)
	return server, store, wf, cfg
}

func multipartUpload(t *testing.T, filename string, contents []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(contents); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSubmitCreatesQueuedJob(t *testing.T) {
	server, store, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t, "quarterly.pptx", []byte("pptx-bytes"), map[string]string{
		"voice":         "en-GB-SoniaNeural",
		"speaking_rate": "1.25",
	})
	resp, err := http.Post(server.URL+"/api/jobs", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var created struct {
		JobID string `json:"job_id"`
	}
	decodeBody(t, resp, &created)
	if created.JobID == "" {
		t.Fatal("missing job_id")
	}

	job, err := store.GetByID(context.Background(), created.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.State != queue.StateQueued {
		t.Fatalf("state = %s, want queued", job.State)
	}
	if job.Settings.Voice != "en-GB-SoniaNeural" || job.Settings.SpeakingRate != 1.25 {
		t.Fatalf("form settings not applied: %+v", job.Settings)
	}
	// Omitted fields take configured defaults.
	if job.Settings.Resolution != deck.Resolution1080p {
		t.Fatalf("resolution default not applied: %q", job.Settings.Resolution)
	}
	if job.Artifact(queue.RoleSource) == "" {
		t.Fatal("source artifact not registered")
	}
}

func TestSubmitRejectsInvalidSettings(t *testing.T) {
	server, store, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t, "deck.pptx", []byte("x"), map[string]string{
		"speaking_rate": "3.5",
	})
	resp, err := http.Post(server.URL+"/api/jobs", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var payload struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	decodeBody(t, resp, &payload)
	if payload.Kind != "validation" {
		t.Fatalf("kind = %q, want validation", payload.Kind)
	}
	if jobs, _ := store.ListRecent(context.Background(), 10); len(jobs) != 0 {
		t.Fatal("invalid submission must not create a job")
	}
}

func TestSubmitWithoutFileIsBadRequest(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	resp, err := http.Post(server.URL+"/api/jobs", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStatusUnknownJobIs404(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/jobs/no-such-job")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStatusReportsPercentAndStages(t *testing.T) {
	server, store, _, _ := newTestServer(t)
	job := testsupport.MustCreateJob(t, store, "deck.pptx")
	ctx := context.Background()
	if err := store.Transition(ctx, job.ID, queue.StateRendering); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := store.Transition(ctx, job.ID, queue.StateNarrating); err != nil {
		t.Fatalf("transition: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/jobs/" + job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload struct {
		State           string `json:"state"`
		PercentComplete int    `json:"percent_complete"`
		VideoReady      bool   `json:"video_ready"`
	}
	decodeBody(t, resp, &payload)
	if payload.State != "narrating" || payload.PercentComplete != 40 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.VideoReady {
		t.Fatal("video must not be ready mid-pipeline")
	}
}

func TestVideoNotReadyThenDownloadable(t *testing.T) {
	server, store, _, cfg := newTestServer(t)
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "deck.pptx")

	resp, err := http.Get(server.URL + "/api/jobs/" + job.ID + "/video")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before completion", resp.StatusCode)
	}

	final := filepath.Join(cfg.JobDir(job.ID), "final.mp4")
	testsupport.WriteFile(t, final, []byte("mp4-bytes"))
	for _, next := range []queue.State{queue.StateRendering, queue.StateNarrating, queue.StateSyncing, queue.StateMuxing} {
		if err := store.Transition(ctx, job.ID, next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if err := store.SetArtifact(ctx, job.ID, queue.RoleFinalVideo, final); err != nil {
		t.Fatalf("set artifact: %v", err)
	}
	if err := store.Transition(ctx, job.ID, queue.StateCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	resp, err = http.Get(server.URL + "/api/jobs/" + job.ID + "/video")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "mp4-bytes" {
		t.Fatalf("body = %q", data)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "attachment") {
		t.Fatalf("missing attachment disposition: %q", resp.Header.Get("Content-Disposition"))
	}
}

func TestLogEndpointServesPlainText(t *testing.T) {
	server, store, _, cfg := newTestServer(t)
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "deck.pptx")

	logPath := filepath.Join(cfg.JobDir(job.ID), "job.log")
	testsupport.WriteFile(t, logPath, []byte("rendering: started\n"))
	if err := store.SetArtifact(ctx, job.ID, queue.RoleLog, logPath); err != nil {
		t.Fatalf("set artifact: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/jobs/" + job.ID + "/log")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "rendering: started") {
		t.Fatalf("log body = %q", data)
	}
}

func TestListReturnsRecentJobs(t *testing.T) {
	server, store, _, _ := newTestServer(t)
	testsupport.MustCreateJob(t, store, "first.pptx")
	testsupport.MustCreateJob(t, store, "second.pptx")

	resp, err := http.Get(server.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload struct {
		Jobs []struct {
			SourceName string `json:"source_name"`
			State      string `json:"state"`
		} `json:"jobs"`
	}
	decodeBody(t, resp, &payload)
	if len(payload.Jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(payload.Jobs))
	}
}

func TestPreviewNotesReturnsCounts(t *testing.T) {
	server, _, wf, _ := newTestServer(t)
	wf.notes = []deck.SlideNote{
		{Index: 1, Text: "Hello"},
		{Index: 2, Text: ""},
	}

	body, contentType := multipartUpload(t, "deck.pptx", []byte("x"), nil)
	resp, err := http.Post(server.URL+"/api/notes/preview", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var payload struct {
		SlideCount    int `json:"slide_count"`
		NarratedCount int `json:"narrated_count"`
	}
	decodeBody(t, resp, &payload)
	if payload.SlideCount != 2 || payload.NarratedCount != 1 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestHealthzReportsStageReadiness(t *testing.T) {
	server, _, wf, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &payload)
	if payload.Status != "ok" {
		t.Fatalf("status = %q", payload.Status)
	}

	wf.unhealthy = true
	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	decodeBody(t, resp, &payload)
	if payload.Status != "degraded" {
		t.Fatalf("status = %q", payload.Status)
	}
}
