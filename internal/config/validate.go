package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/slidecast/config.toml"
		}
		return fmt.Errorf("tts.api_key is required. Set AZURE_TTS_KEY env var or edit %s (create with 'slidecast config init')", defaultPath)
	}
	if c.TTS.Region == "" && c.TTS.Endpoint == "" {
		return errors.New("tts.region or tts.endpoint must be set (AZURE_TTS_REGION env var also works)")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if c.Defaults.Voice == "" {
		return errors.New("defaults.voice must be set")
	}
	if c.Defaults.SpeakingRate <= 0 {
		return errors.New("defaults.speaking_rate must be positive")
	}
	switch c.Defaults.Resolution {
	case "720p", "1080p":
	default:
		return fmt.Errorf("defaults.resolution must be 720p or 1080p, got %q", c.Defaults.Resolution)
	}
	if c.Defaults.FPS <= 0 || c.Defaults.FPS > 60 {
		return fmt.Errorf("defaults.fps must be between 1 and 60, got %d", c.Defaults.FPS)
	}
	switch c.Defaults.Quality {
	case "draft", "standard", "high":
	default:
		return fmt.Errorf("defaults.quality must be draft, standard, or high, got %q", c.Defaults.Quality)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
