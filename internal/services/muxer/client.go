package muxer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"slidecast/internal/services"
)

// Executor abstracts command execution for testability. The returned string
// is the command's relevant output: stderr for mux runs, stdout for probes.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (output string, err error)
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

// Client wraps ffmpeg for the final mux.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg mux client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Mux overlays the narration segments onto the video's audio track at their
// timeline offsets and writes the result to outPath. The video stream is
// copied untouched; silence fills the gaps between segments.
func (c *Client) Mux(ctx context.Context, videoPath string, segments []Segment, outPath string) error {
	if strings.TrimSpace(videoPath) == "" {
		return services.Wrap(services.ErrValidation, "muxing", "mux", "video path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return services.Wrap(services.ErrInternal, "muxing", "mux", "create output directory", err)
	}

	args := buildMuxArgs(videoPath, segments, outPath)
	stderr, err := c.exec.Run(ctx, c.binary, args)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrMux, "muxing", "mux", tailOf(stderr), err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return services.Wrap(services.ErrMux, "muxing", "mux", "ffmpeg produced no output file", err)
	}
	return nil
}

// buildMuxArgs assembles the ffmpeg invocation. Each clip is delayed to its
// offset and the delayed streams are mixed into one track; with no clips an
// anullsrc generator provides a silent track so the container always carries
// audio.
func buildMuxArgs(videoPath string, segments []Segment, outPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", videoPath}

	if len(segments) == 0 {
		args = append(args,
			"-f", "lavfi", "-i", "anullsrc=channel_layout=mono:sample_rate=24000",
			"-map", "0:v", "-map", "1:a",
			"-c:v", "copy", "-c:a", "aac", "-shortest",
			outPath,
		)
		return args
	}

	for _, seg := range segments {
		args = append(args, "-i", seg.Path)
	}

	var filter strings.Builder
	labels := make([]string, 0, len(segments))
	for i, seg := range segments {
		ms := seg.Offset.Milliseconds()
		label := fmt.Sprintf("a%d", i)
		fmt.Fprintf(&filter, "[%d:a]adelay=%d|%d[%s];", i+1, ms, ms, label)
		labels = append(labels, "["+label+"]")
	}
	fmt.Fprintf(&filter, "%samix=inputs=%d:normalize=0[aout]", strings.Join(labels, ""), len(segments))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "0:v", "-map", "[aout]",
		"-c:v", "copy", "-c:a", "aac", "-shortest",
		outPath,
	)
	return args
}

func tailOf(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return "ffmpeg failed"
	}
	lines := strings.Split(stderr, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "; ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}
