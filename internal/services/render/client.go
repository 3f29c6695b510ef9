package render

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"slidecast/internal/deck"
	"slidecast/internal/services"
	"slidecast/internal/timing"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the renderer CLI. The tool's contract: `render` writes the
// base video and a notes JSON sidecar; `retime` rewrites the video with
// per-slide durations given in milliseconds.
type Client struct {
	binary string
	exec   Executor
}

// New constructs a renderer client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("renderer binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Render executes the renderer, returning the base video path and the deck's
// speaker notes parsed from the sidecar the tool writes.
func (c *Client) Render(ctx context.Context, sourcePath, destDir string, settings deck.Settings) (Result, error) {
	var empty Result
	if strings.TrimSpace(sourcePath) == "" {
		return empty, services.Wrap(services.ErrValidation, "rendering", "render", "source path required", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return empty, services.Wrap(services.ErrInternal, "rendering", "render", "create destination", err)
	}

	videoPath := filepath.Join(destDir, "base.mp4")
	notesPath := filepath.Join(destDir, "notes.json")

	args := []string{
		"render",
		"--input", sourcePath,
		"--output", videoPath,
		"--notes", notesPath,
		"--resolution", string(settings.Resolution),
		"--fps", strconv.Itoa(settings.FPS),
		"--quality", string(settings.Quality),
	}
	if err := c.run(ctx, "render", args); err != nil {
		return empty, err
	}

	notes, err := readNotes(notesPath)
	if err != nil {
		return empty, services.Wrap(services.ErrSourceInvalid, "rendering", "render", "read extracted notes", err)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return empty, services.Wrap(services.ErrRenderUnavailable, "rendering", "render", "renderer produced no video", err)
	}
	return Result{VideoPath: videoPath, Notes: notes}, nil
}

// Retime regenerates the base video with the timeline's per-slide durations
// and returns the new video path.
func (c *Client) Retime(ctx context.Context, videoPath, destDir string, timeline timing.Timeline) (string, error) {
	if len(timeline.Slots) == 0 {
		return "", services.Wrap(services.ErrValidation, "syncing", "retime", "timeline has no slots", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrInternal, "syncing", "retime", "create destination", err)
	}

	outPath := filepath.Join(destDir, "retimed.mp4")
	durations := make([]string, 0, len(timeline.Slots))
	for _, d := range timeline.Durations() {
		durations = append(durations, strconv.FormatInt(d.Milliseconds(), 10))
	}

	args := []string{
		"retime",
		"--input", videoPath,
		"--output", outPath,
		"--durations", strings.Join(durations, ","),
	}
	if err := c.run(ctx, "retime", args); err != nil {
		return "", err
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", services.Wrap(services.ErrRenderUnavailable, "syncing", "retime", "renderer produced no video", err)
	}
	return outPath, nil
}

// ExtractNotes runs a notes-only pass, used by the preview endpoint so no job
// or video is produced.
func (c *Client) ExtractNotes(ctx context.Context, sourcePath, destDir string) ([]deck.SlideNote, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrInternal, "rendering", "extract-notes", "create destination", err)
	}
	notesPath := filepath.Join(destDir, "notes.json")
	args := []string{"notes", "--input", sourcePath, "--notes", notesPath}
	if err := c.run(ctx, "notes", args); err != nil {
		return nil, err
	}
	notes, err := readNotes(notesPath)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceInvalid, "rendering", "extract-notes", "read extracted notes", err)
	}
	return notes, nil
}

// HealthCheck verifies the renderer binary is resolvable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return services.Wrap(services.ErrRenderUnavailable, "rendering", "health", "renderer binary not found", err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, operation string, args []string) error {
	var tail outputTail
	err := c.exec.Run(ctx, c.binary, args, tail.record)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A clean non-zero exit means the tool rejected the deck; anything
		// else means the tool itself is unusable.
		return services.Wrap(services.ErrSourceInvalid, "rendering", operation, tail.String(), err)
	}
	return services.Wrap(services.ErrRenderUnavailable, "rendering", operation, "renderer execution failed", err)
}

func readNotes(path string) ([]deck.SlideNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var notes []deck.SlideNote
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("parse notes sidecar: %w", err)
	}
	for i := range notes {
		if notes[i].Index != i+1 {
			return nil, fmt.Errorf("notes sidecar index %d out of order", notes[i].Index)
		}
		notes[i].Text = strings.TrimSpace(notes[i].Text)
	}
	return notes, nil
}

// outputTail keeps the last few tool output lines for failure detail.
type outputTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *outputTail) record(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > 5 {
		t.lines = t.lines[len(t.lines)-5:]
	}
}

func (t *outputTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return "renderer rejected the presentation"
	}
	return strings.Join(t.lines, "; ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	return cmd.Wait()
}
