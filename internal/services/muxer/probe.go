package muxer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober measures media durations with ffprobe.
type Prober struct {
	binary string
	exec   Executor
}

// NewProber constructs an ffprobe wrapper.
func NewProber(binary string, opts ...ProberOption) (*Prober, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffprobe binary required")
	}
	prober := &Prober{binary: binary, exec: probeExecutor{}}
	for _, opt := range opts {
		opt(prober)
	}
	return prober, nil
}

// ProberOption configures the prober.
type ProberOption func(*Prober)

// WithProbeExecutor injects a custom executor (primarily for tests).
func WithProbeExecutor(exec Executor) ProberOption {
	return func(p *Prober) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// Duration returns the playable length of the media file at path.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	out, err := p.exec.Run(ctx, p.binary, args)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration %q: %w", path, strings.TrimSpace(out), err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("ffprobe %s: negative duration %f", path, seconds)
	}
	// Millisecond precision is all the timeline keeps.
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond, nil
}

// probeExecutor captures stdout, unlike the mux executor which only needs
// stderr diagnostics.
type probeExecutor struct{}

func (probeExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w", msg, err)
		}
		return "", err
	}
	return stdout.String(), nil
}
