package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.TTS.Region = strings.TrimSpace(c.TTS.Region)
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	c.TTS.Endpoint = strings.TrimRight(strings.TrimSpace(c.TTS.Endpoint), "/")
	c.Defaults.Voice = strings.TrimSpace(c.Defaults.Voice)
	c.Defaults.Resolution = strings.ToLower(strings.TrimSpace(c.Defaults.Resolution))
	c.Defaults.Quality = strings.ToLower(strings.TrimSpace(c.Defaults.Quality))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.TTS.RequestTimeout <= 0 {
		c.TTS.RequestTimeout = defaultTTSRequestTimeout
	}
	if c.Workflow.MaxActiveJobs <= 0 {
		c.Workflow.MaxActiveJobs = defaultMaxActiveJobs
	}
	if c.Workflow.MaxSynthesisCalls <= 0 {
		c.Workflow.MaxSynthesisCalls = defaultMaxSynthesisCalls
	}
	if c.Workflow.BacklogLimit <= 0 {
		c.Workflow.BacklogLimit = defaultBacklogLimit
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.RetryAttempts <= 0 {
		c.Workflow.RetryAttempts = defaultRetryAttempts
	}
	if c.Workflow.RetryBackoffMS <= 0 {
		c.Workflow.RetryBackoffMS = defaultRetryBackoffMS
	}
	if c.Workflow.SilentSlideMS <= 0 {
		c.Workflow.SilentSlideMS = defaultSilentSlideMS
	}
	if c.Workflow.NarrationHeadMS < 0 {
		c.Workflow.NarrationHeadMS = defaultNarrationHeadMS
	}
	if c.Workflow.NarrationTailMS < 0 {
		c.Workflow.NarrationTailMS = defaultNarrationTailMS
	}
	if c.Workflow.RetentionHours <= 0 {
		c.Workflow.RetentionHours = defaultRetentionHours
	}
	if c.Workflow.PurgeIntervalMins <= 0 {
		c.Workflow.PurgeIntervalMins = defaultPurgeIntervalMins
	}
	if c.Workflow.RenderTimeout <= 0 {
		c.Workflow.RenderTimeout = defaultRenderTimeout
	}
	if c.Workflow.NarrateTimeout <= 0 {
		c.Workflow.NarrateTimeout = defaultNarrateTimeout
	}
	if c.Workflow.SyncTimeout <= 0 {
		c.Workflow.SyncTimeout = defaultSyncTimeout
	}
	if c.Workflow.MuxTimeout <= 0 {
		c.Workflow.MuxTimeout = defaultMuxTimeout
	}
	return nil
}
