package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/asr"
	"scribe/internal/services"
)

// BackendName identifies this backend in configuration.
const BackendName = "sidecar"

// fallbackConfidence is used for filename-derived guesses.
const fallbackConfidence = 0.5

// Service reads sidecar transcripts or synthesizes a filename-based guess.
type Service struct{}

// New returns a sidecar backend.
func New() *Service {
	return &Service{}
}

// Name identifies the backend.
func (s *Service) Name() string {
	return BackendName
}

// Close releases nothing; the sidecar backend is stateless.
func (s *Service) Close() error {
	return nil
}

type sidecarSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	// Pointer so an explicit zero survives; only an absent key defaults.
	Confidence *float64 `json:"confidence"`
	Language   string   `json:"language,omitempty"`
}

type sidecarPayload struct {
	Segments []sidecarSegment `json:"segments"`
}

// Transcribe returns the sidecar transcript when one exists next to the
// source media file, else a single segment guessed from the filename stem.
// The original input path is consulted when set; the prepared waveform has
// a canonical name that never matches a submitted transcript.
func (s *Service) Transcribe(ctx context.Context, req asr.Request) ([]asr.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := req.InputPath
	if source == "" {
		source = req.AudioPath
	}
	sidecarPath := strings.TrimSuffix(source, filepath.Ext(source)) + ".json"
	data, err := os.ReadFile(sidecarPath)
	if os.IsNotExist(err) {
		return s.guessFromFilename(source), nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrBackend, "transcribe", "sidecar",
			fmt.Sprintf("cannot read sidecar %s", sidecarPath), err)
	}

	var payload sidecarPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, services.Wrap(services.ErrBackend, "transcribe", "sidecar",
			fmt.Sprintf("malformed sidecar %s", sidecarPath), err)
	}

	segments := make([]asr.Segment, 0, len(payload.Segments))
	for _, raw := range payload.Segments {
		confidence := asr.DefaultConfidence
		if raw.Confidence != nil {
			confidence = asr.NormalizeConfidence(*raw.Confidence)
		}
		segments = append(segments, asr.Segment{
			Start:      raw.Start,
			End:        raw.End,
			Text:       raw.Text,
			Confidence: confidence,
			Language:   raw.Language,
		})
	}
	return segments, nil
}

func (s *Service) guessFromFilename(audioPath string) []asr.Segment {
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	guessed := strings.ReplaceAll(stem, "_", " ")
	return []asr.Segment{
		{Start: 0, End: 5, Text: guessed, Confidence: fallbackConfidence},
	}
}
