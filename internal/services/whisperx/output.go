package whisperx

import (
	"encoding/json"
	"fmt"
	"os"

	"scribe/internal/asr"
)

// Word is a single word with timing and score from WhisperX output.
type Word struct {
	Word  string   `json:"word"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Score *float64 `json:"score,omitempty"`
}

// rawSegment mirrors one segment in the WhisperX JSON payload.
type rawSegment struct {
	Text       string   `json:"text"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Language   string   `json:"language,omitempty"`
	AvgLogProb *float64 `json:"avg_logprob,omitempty"`
	Words      []Word   `json:"words,omitempty"`
}

type whisperXPayload struct {
	Segments []rawSegment `json:"segments"`
	Language string       `json:"language,omitempty"`
}

// LoadSegments parses a WhisperX JSON file into backend segments,
// normalizing scores into confidences.
func LoadSegments(jsonPath string) ([]asr.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}

	segments := make([]asr.Segment, 0, len(payload.Segments))
	for _, raw := range payload.Segments {
		language := raw.Language
		if language == "" {
			language = payload.Language
		}
		segments = append(segments, asr.Segment{
			Start:      raw.Start,
			End:        raw.End,
			Text:       raw.Text,
			Confidence: segmentConfidence(raw),
			Language:   language,
		})
	}
	return segments, nil
}

// segmentConfidence derives a [0,1] confidence: average log probability when
// present, else the mean word score, else the shared default.
func segmentConfidence(raw rawSegment) float64 {
	if raw.AvgLogProb != nil {
		return asr.NormalizeConfidence(*raw.AvgLogProb)
	}
	sum, count := 0.0, 0
	for _, word := range raw.Words {
		if word.Score != nil {
			sum += *word.Score
			count++
		}
	}
	if count > 0 {
		return asr.NormalizeConfidence(sum / float64(count))
	}
	return asr.DefaultConfidence
}
