package config

import (
	"errors"
	"fmt"
)

var knownBackends = map[string]struct{}{
	"whisperx": {},
	"sidecar":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageDir == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if _, ok := knownBackends[c.Transcription.Backend]; !ok {
		return fmt.Errorf("transcription.backend: unknown backend %q (expected whisperx or sidecar)", c.Transcription.Backend)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count > 64 {
		return fmt.Errorf("workers.count %d is unreasonably large", c.Workers.Count)
	}
	if c.Workers.HeartbeatTimeout <= c.Workers.HeartbeatInterval {
		return errors.New("workers.heartbeat_timeout must exceed workers.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
