package config

import "time"

const (
	defaultStorageDir         = "~/.local/share/scribe/storage"
	defaultLogDir             = "~/.local/share/scribe/logs"
	defaultAPIBind            = "127.0.0.1:7511"
	defaultBackend            = "whisperx"
	defaultModel              = "small"
	defaultFFmpegBinary       = "ffmpeg"
	defaultWorkerCount        = 2
	defaultPollInterval       = 2
	defaultLeaseTimeout       = 600
	defaultClaimAttempts      = 5
	defaultClaimRetryDelay    = 1
	defaultStartupWaitSeconds = 30
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 900
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Transcription: Transcription{
			Backend:      defaultBackend,
			Model:        defaultModel,
			FFmpegBinary: defaultFFmpegBinary,
		},
		Workers: Workers{
			Count:              defaultWorkerCount,
			ClaimAttempts:      defaultClaimAttempts,
			StartupWaitSeconds: defaultStartupWaitSeconds,

			PollIntervalSeconds:      defaultPollInterval,
			LeaseTimeoutSeconds:      defaultLeaseTimeout,
			ClaimRetryDelaySeconds:   defaultClaimRetryDelay,
			HeartbeatIntervalSeconds: defaultHeartbeatInterval,
			HeartbeatTimeoutSeconds:  defaultHeartbeatTimeout,

			PollInterval:      defaultPollInterval * time.Second,
			LeaseTimeout:      defaultLeaseTimeout * time.Second,
			ClaimRetryDelay:   defaultClaimRetryDelay * time.Second,
			HeartbeatInterval: defaultHeartbeatInterval * time.Second,
			HeartbeatTimeout:  defaultHeartbeatTimeout * time.Second,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
