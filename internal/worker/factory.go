package worker

import (
	"fmt"

	"scribe/internal/asr"
	"scribe/internal/config"
	"scribe/internal/services"
	"scribe/internal/services/sidecar"
	"scribe/internal/services/whisperx"
)

// BackendFactory constructs one backend handle for a worker slot.
type BackendFactory func() (asr.Backend, error)

// NewBackendFactory resolves the configured backend name to a constructor.
// The set of backends is closed; unknown names are a configuration error.
func NewBackendFactory(cfg *config.Config) (BackendFactory, error) {
	switch cfg.Transcription.Backend {
	case whisperx.BackendName:
		transcription := cfg.Transcription
		return func() (asr.Backend, error) {
			return whisperx.New(transcription), nil
		}, nil
	case sidecar.BackendName:
		return func() (asr.Backend, error) {
			return sidecar.New(), nil
		}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "worker", "backend factory",
			fmt.Sprintf("unknown transcription backend %q", cfg.Transcription.Backend), nil)
	}
}
