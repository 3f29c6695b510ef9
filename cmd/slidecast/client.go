package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// apiClient is a thin wrapper over the daemon's HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: base,
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

type jobSummary struct {
	ID              string     `json:"id"`
	SourceName      string     `json:"source_name"`
	State           string     `json:"state"`
	PercentComplete int        `json:"percent_complete"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

type stageRecord struct {
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
}

type jobDetail struct {
	jobSummary
	Stages       []stageRecord `json:"stages"`
	ErrorMessage string        `json:"error_message,omitempty"`
	SlideCount   int           `json:"slide_count,omitempty"`
	VideoReady   bool          `json:"video_ready"`
}

type notesPreview struct {
	SlideCount    int `json:"slide_count"`
	NarratedCount int `json:"narrated_count"`
	Notes         []struct {
		Index int    `json:"index"`
		Text  string `json:"text"`
	} `json:"notes"`
}

type stageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type healthReport struct {
	Status string        `json:"status"`
	Stages []stageHealth `json:"stages"`
}

type submitOptions struct {
	Voice        string
	SpeakingRate float64
	Resolution   string
	FPS          int
	Quality      string
}

func (c *apiClient) Submit(ctx context.Context, sourcePath string, opts submitOptions) (string, error) {
	body, contentType, err := encodeUpload(sourcePath, opts)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/jobs", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

func (c *apiClient) Status(ctx context.Context, id string) (jobDetail, error) {
	var detail jobDetail
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(id), &detail)
	return detail, err
}

func (c *apiClient) List(ctx context.Context, limit int) ([]jobSummary, error) {
	var resp struct {
		Jobs []jobSummary `json:"jobs"`
	}
	path := "/api/jobs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *apiClient) Log(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/jobs/"+url.PathEscape(id)+"/log", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", wrapConnectError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	return string(data), nil
}

// Download streams the finished video to destPath.
func (c *apiClient) Download(ctx context.Context, id, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/jobs/"+url.PathEscape(id)+"/video", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapConnectError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("download video: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("flush video: %w", closeErr)
	}
	return nil
}

func (c *apiClient) PreviewNotes(ctx context.Context, sourcePath string) (notesPreview, error) {
	var preview notesPreview
	body, contentType, err := encodeUpload(sourcePath, submitOptions{})
	if err != nil {
		return preview, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/notes/preview", body)
	if err != nil {
		return preview, err
	}
	req.Header.Set("Content-Type", contentType)
	err = c.do(req, &preview)
	return preview, err
}

func (c *apiClient) Health(ctx context.Context) (healthReport, error) {
	var report healthReport
	err := c.get(ctx, "/healthz", &report)
	return report, err
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapConnectError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// encodeUpload builds the multipart body for a deck submission. The file is
// buffered in full; decks are small enough that streaming is not worth the
// pipe plumbing.
func encodeUpload(sourcePath string, opts submitOptions) (io.Reader, string, error) {
	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", sourcePath, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(sourcePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", sourcePath, err)
	}

	fields := map[string]string{}
	if opts.Voice != "" {
		fields["voice"] = opts.Voice
	}
	if opts.SpeakingRate != 0 {
		fields["speaking_rate"] = strconv.FormatFloat(opts.SpeakingRate, 'f', -1, 64)
	}
	if opts.Resolution != "" {
		fields["resolution"] = opts.Resolution
	}
	if opts.FPS != 0 {
		fields["fps"] = strconv.Itoa(opts.FPS)
	}
	if opts.Quality != "" {
		fields["quality"] = opts.Quality
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func decodeError(resp *http.Response) error {
	var apiErr struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		if apiErr.Kind != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Kind)
		}
		return errors.New(apiErr.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func wrapConnectError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `slidecastd`", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
