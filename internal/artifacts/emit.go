package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"scribe/internal/queue"
)

// Filenames for the per-job output directory.
const (
	FileText  = "transcript.txt"
	FileJSONL = "segments.jsonl"
	FileSRT   = "transcript.srt"
	FileVTT   = "transcript.vtt"
)

// Result reports which formats were written and which failed.
type Result struct {
	Paths    map[string]string
	Failures map[string]error
}

// MandatoryOK reports whether every mandatory format was written.
func (r Result) MandatoryOK() bool {
	for _, format := range queue.MandatoryFormats {
		if _, ok := r.Paths[format]; !ok {
			return false
		}
	}
	return true
}

type encoderFunc func(io.Writer, []queue.Segment) error

var formatEncoders = []struct {
	format   string
	filename string
	encode   encoderFunc
}{
	{queue.FormatText, FileText, WriteText},
	{queue.FormatJSONL, FileJSONL, WriteJSONL},
	{queue.FormatSRT, FileSRT, WriteSRT},
	{queue.FormatVTT, FileVTT, WriteVTT},
}

// Emit writes every output format into dir. A failure in one format does not
// stop the remaining formats from being attempted. A non-empty textOverride
// replaces the plain-text body while leaving the segment-derived formats
// untouched; the pipeline uses it to substitute the sentinel for a
// degenerate transcript without rewriting the segments themselves.
func Emit(dir string, segments []queue.Segment, textOverride string) (Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}

	result := Result{
		Paths:    make(map[string]string, len(formatEncoders)),
		Failures: make(map[string]error),
	}
	for _, entry := range formatEncoders {
		encode := entry.encode
		if entry.format == queue.FormatText && textOverride != "" {
			encode = func(w io.Writer, _ []queue.Segment) error {
				return writeTextBody(w, textOverride)
			}
		}
		path := filepath.Join(dir, entry.filename)
		if err := writeArtifact(path, segments, encode); err != nil {
			result.Failures[entry.format] = err
			continue
		}
		result.Paths[entry.format] = path
	}
	return result, nil
}

func writeArtifact(path string, segments []queue.Segment, encode encoderFunc) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encode(file, segments); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
