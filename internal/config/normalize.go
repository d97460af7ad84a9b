package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeWorkers()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LexiconCSV = strings.TrimSpace(c.Paths.LexiconCSV); c.Paths.LexiconCSV != "" {
		if c.Paths.LexiconCSV, err = expandPath(c.Paths.LexiconCSV); err != nil {
			return fmt.Errorf("paths.lexicon_csv: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultBackend
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultModel
	}
	c.Transcription.FFmpegBinary = strings.TrimSpace(c.Transcription.FFmpegBinary)
	if c.Transcription.FFmpegBinary == "" {
		c.Transcription.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount
	}
	if c.Workers.ClaimAttempts <= 0 {
		c.Workers.ClaimAttempts = defaultClaimAttempts
	}
	if c.Workers.StartupWaitSeconds <= 0 {
		c.Workers.StartupWaitSeconds = defaultStartupWaitSeconds
	}
	if c.Workers.PollIntervalSeconds <= 0 {
		c.Workers.PollIntervalSeconds = defaultPollInterval
	}
	if c.Workers.LeaseTimeoutSeconds <= 0 {
		c.Workers.LeaseTimeoutSeconds = defaultLeaseTimeout
	}
	if c.Workers.ClaimRetryDelaySeconds <= 0 {
		c.Workers.ClaimRetryDelaySeconds = defaultClaimRetryDelay
	}
	if c.Workers.HeartbeatIntervalSeconds <= 0 {
		c.Workers.HeartbeatIntervalSeconds = defaultHeartbeatInterval
	}
	if c.Workers.HeartbeatTimeoutSeconds <= 0 {
		c.Workers.HeartbeatTimeoutSeconds = defaultHeartbeatTimeout
	}
	c.Workers.PollInterval = time.Duration(c.Workers.PollIntervalSeconds) * time.Second
	c.Workers.LeaseTimeout = time.Duration(c.Workers.LeaseTimeoutSeconds) * time.Second
	c.Workers.ClaimRetryDelay = time.Duration(c.Workers.ClaimRetryDelaySeconds) * time.Second
	c.Workers.HeartbeatInterval = time.Duration(c.Workers.HeartbeatIntervalSeconds) * time.Second
	c.Workers.HeartbeatTimeout = time.Duration(c.Workers.HeartbeatTimeoutSeconds) * time.Second
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
