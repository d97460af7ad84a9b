package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func newJobID() string {
	return uuid.NewString()
}

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusFinished   Status = "finished"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusFinished,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transition is possible. Only finished
// is terminal; failed jobs can be reclaimed for another attempt.
func (s Status) IsTerminal() bool {
	return s == StatusFinished
}

// Artifact format keys registered in a job's artifact map.
const (
	FormatText  = "txt"
	FormatJSONL = "jsonl"
	FormatSRT   = "srt"
	FormatVTT   = "vtt"
)

// MandatoryFormats are the artifact formats a job must produce to finish.
var MandatoryFormats = []string{FormatText, FormatJSONL}

// Segment is a timed span of transcribed text.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// Options is the immutable submission-time configuration snapshot carried
// unchanged through the pipeline. Derived values (resolved language, dialect
// text) live on the Job, never here.
type Options struct {
	LanguageHint     string   `json:"language_hint,omitempty"`
	Diarize          bool     `json:"diarize"`
	Punctuate        bool     `json:"punctuate"`
	InverseNormalize bool     `json:"inverse_normalize"`
	DialectMap       bool     `json:"dialect_map"`
	DialectRegion    string   `json:"dialect_region,omitempty"`
	Lexicon          []string `json:"lexicon,omitempty"`
	ContextPrompt    string   `json:"context_prompt,omitempty"`
}

// DefaultOptions mirrors the submission defaults: postprocessing on, dialect
// mapping off.
func DefaultOptions() Options {
	return Options{
		Diarize:          true,
		Punctuate:        true,
		InverseNormalize: true,
	}
}

// Job represents a transcription job persisted in SQLite.
type Job struct {
	ID            string
	InputPath     string
	ModelName     string
	Options       Options
	Status        Status
	Text          string
	DialectText   string
	Segments      []Segment
	Artifacts     map[string]string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// NewJobRecord builds a pending job with a fresh identifier, not yet
// persisted.
func NewJobRecord(inputPath, modelName string, opts Options) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        newJobID(),
		InputPath: inputPath,
		ModelName: modelName,
		Options:   opts,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.LastHeartbeat = nil
}

// SetFinished marks the job finished with its final transcript fields.
func (j *Job) SetFinished(text, dialectText string) {
	j.Status = StatusFinished
	j.Text = text
	j.DialectText = dialectText
	j.ErrorMessage = ""
	j.LastHeartbeat = nil
}

// RegisterArtifact upserts an artifact path by format key.
func (j *Job) RegisterArtifact(format, path string) {
	if j.Artifacts == nil {
		j.Artifacts = make(map[string]string, 4)
	}
	j.Artifacts[format] = path
}

// HasMandatoryArtifacts reports whether every mandatory format is registered.
func (j *Job) HasMandatoryArtifacts() bool {
	for _, format := range MandatoryFormats {
		if _, ok := j.Artifacts[format]; !ok {
			return false
		}
	}
	return true
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Finished   int
	Failed     int
}
