package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func executeCommand(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if server != "" {
		args = append([]string{"--server", server}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestJobsRendersTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jobs": []map[string]any{
				{
					"id":               "j-1",
					"source_name":      "talk.pptx",
					"state":            "narrating",
					"percent_complete": 40,
					"created_at":       time.Now().Format(time.RFC3339),
				},
			},
		})
	}))
	defer server.Close()

	out, err := executeCommand(t, server.URL, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	for _, want := range []string{"j-1", "talk.pptx", "narrating", "40%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJobsEmptyQueue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"jobs": []any{}})
	}))
	defer server.Close()

	out, err := executeCommand(t, server.URL, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !strings.Contains(out, "No jobs") {
		t.Fatalf("expected empty-queue message, got:\n%s", out)
	}
}

func TestStatusJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/j-2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":               "j-2",
			"source_name":      "demo.pptx",
			"state":            "completed",
			"percent_complete": 100,
			"video_ready":      true,
			"stages":           []any{},
		})
	}))
	defer server.Close()

	out, err := executeCommand(t, server.URL, "status", "j-2", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var decoded jobDetail
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if decoded.ID != "j-2" || !decoded.VideoReady {
		t.Fatalf("unexpected decoded detail: %+v", decoded)
	}
}

func TestStatusRendersStages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":               "j-3",
			"source_name":      "talk.pptx",
			"state":            "failed",
			"percent_complete": 100,
			"error_kind":       "timeout",
			"error_message":    "rendering exceeded its deadline",
			"stages": []map[string]any{
				{
					"name":        "rendering",
					"status":      "failed",
					"duration_ms": 1500,
					"started_at":  time.Now().Format(time.RFC3339),
					"ended_at":    time.Now().Format(time.RFC3339),
				},
			},
		})
	}))
	defer server.Close()

	out, err := executeCommand(t, server.URL, "status", "j-3")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"rendering exceeded its deadline", "timeout", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSubmitSendsFileAndSettings(t *testing.T) {
	deck := filepath.Join(t.TempDir(), "talk.pptx")
	if err := os.WriteFile(deck, []byte("deck-bytes"), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}

	var gotVoice, gotRate, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotVoice = r.FormValue("voice")
		gotRate = r.FormValue("speaking_rate")
		if _, header, err := r.FormFile("file"); err == nil {
			gotFilename = header.Filename
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": "j-9"})
	}))
	defer server.Close()

	out, err := executeCommand(t, server.URL, "submit", deck, "--voice", "en-GB-SoniaNeural", "--rate", "1.2")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "j-9") {
		t.Fatalf("expected job id in output:\n%s", out)
	}
	if gotVoice != "en-GB-SoniaNeural" || gotRate != "1.2" || gotFilename != "talk.pptx" {
		t.Fatalf("form fields voice=%q rate=%q filename=%q", gotVoice, gotRate, gotFilename)
	}
}

func TestSubmitReportsAPIError(t *testing.T) {
	deck := filepath.Join(t.TempDir(), "talk.pptx")
	if err := os.WriteFile(deck, []byte("deck-bytes"), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "backlog is full", "kind": "validation"})
	}))
	defer server.Close()

	_, err := executeCommand(t, server.URL, "submit", deck)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "backlog is full") {
		t.Fatalf("error = %v, want backlog message", err)
	}
}

func TestLogsPrintsPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/j-4/log" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("stage rendering started\nstage rendering completed\n"))
	}))
	defer server.Close()

	out, err := executeCommand(t, server.URL, "logs", "j-4")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "stage rendering completed") {
		t.Fatalf("unexpected log output:\n%s", out)
	}
}

func TestDownloadSavesVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/j-5/video" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("mp4-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	out, err := executeCommand(t, server.URL, "download", "j-5", "--output", dest)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.Contains(out, dest) {
		t.Fatalf("expected destination in output:\n%s", out)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "mp4-bytes" {
		t.Fatalf("downloaded %q", data)
	}
}

func TestHealthReportsDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "degraded",
			"stages": []map[string]any{
				{"name": "rendering", "ready": true},
				{"name": "narrating", "ready": false, "detail": "credentials missing"},
			},
		})
	}))
	defer server.Close()

	out, err := executeCommand(t, server.URL, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	for _, want := range []string{"degraded", "narrating", "credentials missing", "unavailable"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := executeCommand(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output:\n%s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, err := executeCommand(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := executeCommand(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite init: %v", err)
	}
}
