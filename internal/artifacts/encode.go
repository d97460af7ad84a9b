package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"scribe/internal/queue"
)

// SentinelNoSpeech replaces empty or degenerate transcripts so consumers
// never see a blank result.
const SentinelNoSpeech = "no speech detected"

// WriteText writes the newline-joined non-empty segment texts. When every
// segment is empty the sentinel replaces the transcript.
func WriteText(w io.Writer, segments []queue.Segment) error {
	var lines []string
	for _, segment := range segments {
		if strings.TrimSpace(segment.Text) != "" {
			lines = append(lines, segment.Text)
		}
	}
	return writeTextBody(w, strings.Join(lines, "\n"))
}

func writeTextBody(w io.Writer, body string) error {
	if body == "" {
		body = SentinelNoSpeech
	}
	if _, err := io.WriteString(w, body+"\n"); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

// WriteJSONL writes one JSON object per segment in order. Zero segments
// produce a valid empty file.
func WriteJSONL(w io.Writer, segments []queue.Segment) error {
	encoder := json.NewEncoder(w)
	for i, segment := range segments {
		if err := encoder.Encode(segment); err != nil {
			return fmt.Errorf("encode segment %d: %w", i, err)
		}
	}
	return nil
}

// WriteSRT writes 1-indexed SubRip blocks with comma millisecond
// separators. Blocks are separated by a blank line.
func WriteSRT(w io.Writer, segments []queue.Segment) error {
	for i, segment := range segments {
		separator := ""
		if i > 0 {
			separator = "\n"
		}
		block := fmt.Sprintf(
			"%s%d\n%s --> %s\n%s%s\n",
			separator,
			i+1,
			FormatTimestamp(segment.Start, ','),
			FormatTimestamp(segment.End, ','),
			speakerPrefix(segment.Speaker),
			segment.Text,
		)
		if _, err := io.WriteString(w, block); err != nil {
			return fmt.Errorf("write srt block %d: %w", i+1, err)
		}
	}
	return nil
}

// WriteVTT writes a WebVTT document: header, blank line, then unindexed cue
// blocks with dot millisecond separators.
func WriteVTT(w io.Writer, segments []queue.Segment) error {
	if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
		return fmt.Errorf("write vtt header: %w", err)
	}
	for i, segment := range segments {
		separator := ""
		if i > 0 {
			separator = "\n"
		}
		block := fmt.Sprintf(
			"%s%s --> %s\n%s%s\n",
			separator,
			FormatTimestamp(segment.Start, '.'),
			FormatTimestamp(segment.End, '.'),
			speakerPrefix(segment.Speaker),
			segment.Text,
		)
		if _, err := io.WriteString(w, block); err != nil {
			return fmt.Errorf("write vtt block %d: %w", i+1, err)
		}
	}
	return nil
}

func speakerPrefix(speaker string) string {
	if speaker == "" {
		return ""
	}
	return speaker + ": "
}
