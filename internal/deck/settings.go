package deck

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"slidecast/internal/services"
)

// Resolution enumerates supported output resolutions.
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

// Height returns the vertical pixel count for the resolution.
func (r Resolution) Height() int {
	switch r {
	case Resolution720p:
		return 720
	case Resolution1080p:
		return 1080
	default:
		return 0
	}
}

// Quality enumerates output quality tiers.
type Quality string

const (
	QualityDraft    Quality = "draft"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// Settings is the immutable conversion configuration snapshotted onto a job
// at submission time. Later changes to daemon defaults never affect a job in
// flight because the job row stores its own copy.
type Settings struct {
	Voice        string     `json:"voice"`
	SpeakingRate float64    `json:"speaking_rate"`
	Resolution   Resolution `json:"resolution"`
	FPS          int        `json:"fps"`
	Quality      Quality    `json:"quality"`
}

const (
	minSpeakingRate = 0.5
	maxSpeakingRate = 2.0
	maxFPS          = 60
)

// Validate checks the settings and returns a services.ErrValidation-tagged
// error on the first problem. Submissions with invalid settings never create
// a job.
func (s Settings) Validate() error {
	voice := strings.TrimSpace(s.Voice)
	if voice == "" {
		return services.Wrap(services.ErrValidation, "settings", "voice", "must not be empty", nil)
	}
	if err := validateVoiceLocale(voice); err != nil {
		return err
	}
	if s.SpeakingRate < minSpeakingRate || s.SpeakingRate > maxSpeakingRate {
		return services.Wrap(services.ErrValidation, "settings", "speaking_rate",
			fmt.Sprintf("must be between %.1f and %.1f, got %g", minSpeakingRate, maxSpeakingRate, s.SpeakingRate), nil)
	}
	switch s.Resolution {
	case Resolution720p, Resolution1080p:
	default:
		return services.Wrap(services.ErrValidation, "settings", "resolution",
			fmt.Sprintf("must be 720p or 1080p, got %q", s.Resolution), nil)
	}
	if s.FPS <= 0 || s.FPS > maxFPS {
		return services.Wrap(services.ErrValidation, "settings", "fps",
			fmt.Sprintf("must be between 1 and %d, got %d", maxFPS, s.FPS), nil)
	}
	switch s.Quality {
	case QualityDraft, QualityStandard, QualityHigh:
	default:
		return services.Wrap(services.ErrValidation, "settings", "quality",
			fmt.Sprintf("must be draft, standard, or high, got %q", s.Quality), nil)
	}
	return nil
}

// Neural voice names are locale-prefixed, e.g. en-US-JennyNeural. The locale
// part must parse as a BCP-47 tag; the voice short name itself is validated
// by the synthesis service.
func validateVoiceLocale(voice string) error {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return services.Wrap(services.ErrValidation, "settings", "voice",
			fmt.Sprintf("expected <locale>-<name> form like en-US-JennyNeural, got %q", voice), nil)
	}
	locale := parts[0] + "-" + parts[1]
	if _, err := language.Parse(locale); err != nil {
		return services.Wrap(services.ErrValidation, "settings", "voice",
			fmt.Sprintf("locale prefix %q is not a valid BCP-47 tag", locale), err)
	}
	return nil
}
