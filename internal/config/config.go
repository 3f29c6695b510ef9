package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// TTS contains configuration for the narration synthesis service.
type TTS struct {
	Region         string `toml:"region"`
	APIKey         string `toml:"api_key"`
	Endpoint       string `toml:"endpoint"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Defaults contains per-job conversion settings applied when a submission
// omits a field. They are snapshotted onto the job at creation time, so
// editing them never affects jobs already in flight.
type Defaults struct {
	Voice        string  `toml:"voice"`
	SpeakingRate float64 `toml:"speaking_rate"`
	Resolution   string  `toml:"resolution"`
	FPS          int     `toml:"fps"`
	Quality      string  `toml:"quality"`
}

// Tools contains the external executables backing the collaborators.
type Tools struct {
	RendererBin string `toml:"renderer_bin"`
	FFmpegBin   string `toml:"ffmpeg_bin"`
	FFprobeBin  string `toml:"ffprobe_bin"`
}

// Workflow contains pipeline timing, concurrency, and retry configuration.
type Workflow struct {
	MaxActiveJobs      int `toml:"max_active_jobs"`
	MaxSynthesisCalls  int `toml:"max_synthesis_calls"`
	BacklogLimit       int `toml:"backlog_limit"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`

	RenderTimeout  int `toml:"render_timeout"`
	NarrateTimeout int `toml:"narrate_timeout"`
	SyncTimeout    int `toml:"sync_timeout"`
	MuxTimeout     int `toml:"mux_timeout"`

	RetryAttempts     int `toml:"retry_attempts"`
	RetryBackoffMS    int `toml:"retry_backoff_ms"`
	SilentSlideMS     int `toml:"silent_slide_ms"`
	NarrationHeadMS   int `toml:"narration_head_ms"`
	NarrationTailMS   int `toml:"narration_tail_ms"`
	RetentionHours    int `toml:"retention_hours"`
	PurgeIntervalMins int `toml:"purge_interval_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root slidecast configuration document.
type Config struct {
	Paths    Paths    `toml:"paths"`
	TTS      TTS      `toml:"tts"`
	Defaults Defaults `toml:"defaults"`
	Tools    Tools    `toml:"tools"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slidecast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Secrets may also arrive via environment
// variables (AZURE_TTS_KEY, AZURE_TTS_REGION), which take precedence over the file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnvOverrides() {
	if key := strings.TrimSpace(os.Getenv("AZURE_TTS_KEY")); key != "" {
		c.TTS.APIKey = key
	}
	if region := strings.TrimSpace(os.Getenv("AZURE_TTS_REGION")); region != "" {
		c.TTS.Region = region
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	candidate := strings.TrimSpace(path)
	if candidate == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidate = defaultPath
	}

	expanded, err := expandPath(candidate)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories slidecast needs to operate.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.UploadDir(), c.JobsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UploadDir returns the directory holding submitted source presentations.
func (c *Config) UploadDir() string {
	return filepath.Join(c.Paths.DataDir, "uploads")
}

// JobsDir returns the directory holding per-job working directories and artifacts.
func (c *Config) JobsDir() string {
	return filepath.Join(c.Paths.DataDir, "jobs")
}

// JobDir returns the working directory for one job.
func (c *Config) JobDir(jobID string) string {
	return filepath.Join(c.JobsDir(), jobID)
}

// ExpandPath resolves ~ and relative segments to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			return home, nil
		}
		return filepath.Join(home, pathValue[2:]), nil
	}
	abs, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", pathValue, err)
	}
	return abs, nil
}
