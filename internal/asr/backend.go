package asr

import (
	"context"
	"math"

	"scribe/internal/queue"
)

// Request carries everything a backend needs for one transcription run.
type Request struct {
	// AudioPath points at the prepared mono 16kHz waveform.
	AudioPath string
	// InputPath is the originally submitted media file. Backends that
	// resolve companion files by stem consult it; the prepared waveform
	// carries a canonical name that says nothing about the source.
	InputPath string
	// WorkDir is where the backend may write intermediate output.
	WorkDir string
	// ModelName selects the engine model.
	ModelName string
	// Options is the immutable submission-time configuration.
	Options queue.Options
}

// Segment is one timed span of raw backend output.
type Segment struct {
	Start      float64
	End        float64
	Text       string
	Confidence float64
	Language   string
}

// Backend produces timed text segments from a prepared audio file. A handle
// is not safe for concurrent transcriptions; each worker slot owns one and
// runs jobs through it sequentially.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, req Request) ([]Segment, error)
	Close() error
}

// DefaultConfidence is assumed when a backend reports no usable score.
const DefaultConfidence = 0.9

// NormalizeConfidence maps a raw backend score into [0, 1]. Negative values
// are treated as log probabilities and exponentiated; anything else clamps.
func NormalizeConfidence(raw float64) float64 {
	if math.IsNaN(raw) {
		return DefaultConfidence
	}
	if raw < 0 {
		raw = math.Exp(raw)
	}
	if raw > 1 {
		return 1
	}
	if raw < 0 {
		return 0
	}
	return raw
}
