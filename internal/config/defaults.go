package config

const (
	defaultDataDir = "~/.local/share/slidecast"
	defaultLogDir  = "~/.local/share/slidecast/logs"
	defaultAPIBind = "127.0.0.1:8873"

	defaultVoice        = "en-US-JennyNeural"
	defaultSpeakingRate = 1.0
	defaultResolution   = "1080p"
	defaultFPS          = 30
	defaultQuality      = "standard"

	defaultTTSRequestTimeout = 30

	defaultRendererBin = "deckrender"
	defaultFFmpegBin   = "ffmpeg"
	defaultFFprobeBin  = "ffprobe"

	defaultMaxActiveJobs      = 1
	defaultMaxSynthesisCalls  = 4
	defaultBacklogLimit       = 32
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 5

	defaultRenderTimeout  = 900
	defaultNarrateTimeout = 600
	defaultSyncTimeout    = 900
	defaultMuxTimeout     = 300

	defaultRetryAttempts  = 3
	defaultRetryBackoffMS = 500

	// Slides without notes display for a fixed duration.
	defaultSilentSlideMS = 2000

	defaultNarrationHeadMS = 0
	defaultNarrationTailMS = 0

	defaultRetentionHours    = 72
	defaultPurgeIntervalMins = 30

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		TTS: TTS{
			RequestTimeout: defaultTTSRequestTimeout,
		},
		Defaults: Defaults{
			Voice:        defaultVoice,
			SpeakingRate: defaultSpeakingRate,
			Resolution:   defaultResolution,
			FPS:          defaultFPS,
			Quality:      defaultQuality,
		},
		Tools: Tools{
			RendererBin: defaultRendererBin,
			FFmpegBin:   defaultFFmpegBin,
			FFprobeBin:  defaultFFprobeBin,
		},
		Workflow: Workflow{
			MaxActiveJobs:      defaultMaxActiveJobs,
			MaxSynthesisCalls:  defaultMaxSynthesisCalls,
			BacklogLimit:       defaultBacklogLimit,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			RenderTimeout:      defaultRenderTimeout,
			NarrateTimeout:     defaultNarrateTimeout,
			SyncTimeout:        defaultSyncTimeout,
			MuxTimeout:         defaultMuxTimeout,
			RetryAttempts:      defaultRetryAttempts,
			RetryBackoffMS:     defaultRetryBackoffMS,
			SilentSlideMS:      defaultSilentSlideMS,
			NarrationHeadMS:    defaultNarrationHeadMS,
			NarrationTailMS:    defaultNarrationTailMS,
			RetentionHours:     defaultRetentionHours,
			PurgeIntervalMins:  defaultPurgeIntervalMins,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
