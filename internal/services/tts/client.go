package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidecast/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	outputFormat       = "audio-24khz-96kbitrate-mono-mp3"
	userAgent          = "slidecast"
)

// Clip is one synthesized narration segment on disk.
type Clip struct {
	Path     string
	Duration time.Duration
}

// Synthesizer defines the behaviour required by the narration pool.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Clip, error)
}

// Request describes one synthesis call.
type Request struct {
	Text         string
	Voice        string
	SpeakingRate float64
	DestPath     string
}

// DurationProber measures the playable length of an audio file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Option customizes the TTS client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the region-derived endpoint (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// Client wraps the Azure Cognitive Services text-to-speech REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	prober     DurationProber
}

// NewClient constructs a synthesis client for the given region. The prober
// measures each clip after download so timing never trusts an estimate.
func NewClient(apiKey, region string, prober DurationProber, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		prober:     prober,
	}
	region = strings.TrimSpace(region)
	if region != "" {
		client.baseURL = fmt.Sprintf("https://%s.tts.speech.microsoft.com", region)
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Synthesize renders req.Text as speech, writes the audio to req.DestPath,
// and returns the clip with its measured duration. Failures carry a stable
// kind so the narration pool can decide retry behaviour.
func (c *Client) Synthesize(ctx context.Context, req Request) (Clip, error) {
	var empty Clip
	if strings.TrimSpace(req.Text) == "" {
		return empty, services.Wrap(services.ErrValidation, "narrating", "synthesize", "text required", nil)
	}
	if c.apiKey == "" {
		return empty, services.Wrap(services.ErrAuth, "narrating", "synthesize", "synthesis api key not configured", nil)
	}
	if c.baseURL == "" {
		return empty, services.Wrap(services.ErrAuth, "narrating", "synthesize", "synthesis region not configured", nil)
	}

	body := BuildSSML(req.Text, req.Voice, req.SpeakingRate)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cognitiveservices/v1", strings.NewReader(body))
	if err != nil {
		return empty, services.Wrap(services.ErrInternal, "narrating", "synthesize", "build request", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return empty, ctx.Err()
		}
		return empty, services.Wrap(services.ErrTransient, "narrating", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return empty, classifyStatus(resp)
	}

	if err := os.MkdirAll(filepath.Dir(req.DestPath), 0o755); err != nil {
		return empty, services.Wrap(services.ErrInternal, "narrating", "synthesize", "create clip directory", err)
	}
	out, err := os.Create(req.DestPath)
	if err != nil {
		return empty, services.Wrap(services.ErrInternal, "narrating", "synthesize", "create clip file", err)
	}
	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(req.DestPath)
		return empty, services.Wrap(services.ErrTransient, "narrating", "synthesize", "download audio", copyErr)
	}
	if closeErr != nil {
		return empty, services.Wrap(services.ErrInternal, "narrating", "synthesize", "flush clip file", closeErr)
	}
	if written == 0 {
		_ = os.Remove(req.DestPath)
		return empty, services.Wrap(services.ErrTransient, "narrating", "synthesize", "service returned empty audio", nil)
	}

	duration, err := c.prober.Duration(ctx, req.DestPath)
	if err != nil {
		return empty, services.Wrap(services.ErrInternal, "narrating", "synthesize", "measure clip duration", err)
	}
	return Clip{Path: req.DestPath, Duration: duration}, nil
}

func classifyStatus(resp *http.Response) error {
	detail := readErrorDetail(resp.Body)
	msg := fmt.Sprintf("http %d", resp.StatusCode)
	if detail != "" {
		msg += ": " + detail
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrAuth, "narrating", "synthesize", msg, nil)
	case resp.StatusCode == http.StatusBadRequest:
		// Azure rejects unknown voices and malformed SSML with 400.
		return services.Wrap(services.ErrInvalidVoice, "narrating", "synthesize", msg, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrRateLimited, "narrating", "synthesize", msg, nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "narrating", "synthesize", msg, nil)
	default:
		return services.Wrap(services.ErrInternal, "narrating", "synthesize", msg, nil)
	}
}

func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
