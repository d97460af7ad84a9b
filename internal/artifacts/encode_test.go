package artifacts_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/artifacts"
	"scribe/internal/queue"
)

func segmentsFixture() []queue.Segment {
	return []queue.Segment{
		{Start: 0.0, End: 1.5, Text: "hello", Confidence: 0.9},
		{Start: 1.5, End: 3.0, Text: "world", Confidence: 0.8},
	}
}

func TestWriteSRT(t *testing.T) {
	var buf bytes.Buffer
	if err := artifacts.WriteSRT(&buf, segmentsFixture()); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n2\n00:00:01,500 --> 00:00:03,000\nworld\n"
	if buf.String() != want {
		t.Fatalf("srt output mismatch:\ngot:  %q\nwant: %q", buf.String(), want)
	}
}

func TestWriteSRTSpeakerPrefix(t *testing.T) {
	var buf bytes.Buffer
	segments := []queue.Segment{
		{Start: 0, End: 1, Text: "hello", Speaker: "SPEAKER_00"},
	}
	if err := artifacts.WriteSRT(&buf, segments); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	if !strings.Contains(buf.String(), "SPEAKER_00: hello") {
		t.Fatalf("expected speaker prefix, got %q", buf.String())
	}
}

func TestWriteVTT(t *testing.T) {
	var buf bytes.Buffer
	if err := artifacts.WriteVTT(&buf, segmentsFixture()); err != nil {
		t.Fatalf("write vtt: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Fatalf("expected WEBVTT header, got %q", out)
	}
	if !strings.Contains(out, "00:00:00.000 --> 00:00:01.500\nhello") {
		t.Fatalf("expected dot-separated cue, got %q", out)
	}
	if strings.Contains(out, "\n1\n") {
		t.Fatalf("vtt blocks must not carry indices: %q", out)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	segments := []queue.Segment{
		{Text: "hello"},
		{Text: ""},
		{Text: "world"},
	}
	if err := artifacts.WriteText(&buf, segments); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if buf.String() != "hello\nworld\n" {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestWriteTextSentinelWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := artifacts.WriteText(&buf, nil); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if buf.String() != artifacts.SentinelNoSpeech+"\n" {
		t.Fatalf("expected sentinel, got %q", buf.String())
	}
}

func TestWriteJSONLEmptyIsValid(t *testing.T) {
	var buf bytes.Buffer
	if err := artifacts.WriteJSONL(&buf, nil); err != nil {
		t.Fatalf("write jsonl: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty file for zero segments, got %q", buf.String())
	}
}

func TestWriteJSONLFields(t *testing.T) {
	var buf bytes.Buffer
	segments := []queue.Segment{
		{Start: 0.5, End: 2.25, Text: "สวัสดี", Confidence: 0.95, Speaker: "SPEAKER_00", Language: "th"},
	}
	if err := artifacts.WriteJSONL(&buf, segments); err != nil {
		t.Fatalf("write jsonl: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	for _, field := range []string{`"start":0.5`, `"end":2.25`, `"text":"สวัสดี"`, `"confidence":0.95`, `"speaker":"SPEAKER_00"`, `"language":"th"`} {
		if !strings.Contains(line, field) {
			t.Fatalf("expected %s in %q", field, line)
		}
	}
}

func TestFormatTimestampOverOneHour(t *testing.T) {
	got := artifacts.FormatTimestamp(3723.456, ',')
	if got != "01:02:03,456" {
		t.Fatalf("expected 01:02:03,456, got %s", got)
	}
}

func TestFormatTimestampRoundsFractionalMillis(t *testing.T) {
	got := artifacts.FormatTimestamp(0.9996, '.')
	if got != "00:00:01.000" {
		t.Fatalf("expected rounding carry into seconds, got %s", got)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	for _, seconds := range []float64{0, 0.001, 1.5, 59.999, 61.25, 3599.5, 3600, 7322.048, 86399.999} {
		for _, sep := range []byte{',', '.'} {
			formatted := artifacts.FormatTimestamp(seconds, sep)
			parsed, err := artifacts.ParseTimestamp(formatted)
			if err != nil {
				t.Fatalf("parse %q: %v", formatted, err)
			}
			if math.Abs(parsed-seconds) > 0.001 {
				t.Fatalf("round trip drift: %f -> %q -> %f", seconds, formatted, parsed)
			}
		}
	}
}

func TestEmitWritesAllFormats(t *testing.T) {
	dir := t.TempDir()
	result, err := artifacts.Emit(dir, segmentsFixture(), "")
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}
	if !result.MandatoryOK() {
		t.Fatal("expected mandatory formats present")
	}
	for _, format := range []string{queue.FormatText, queue.FormatJSONL, queue.FormatSRT, queue.FormatVTT} {
		path, ok := result.Paths[format]
		if !ok {
			t.Fatalf("missing path for %s", format)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("artifact %s not on disk: %v", format, err)
		}
	}
}

func TestEmitZeroSegments(t *testing.T) {
	dir := t.TempDir()
	result, err := artifacts.Emit(dir, nil, "")
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !result.MandatoryOK() {
		t.Fatal("expected mandatory formats even with zero segments")
	}
	data, err := os.ReadFile(filepath.Join(dir, artifacts.FileJSONL))
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty jsonl, got %q", data)
	}
	text, err := os.ReadFile(filepath.Join(dir, artifacts.FileText))
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	if strings.TrimSpace(string(text)) != artifacts.SentinelNoSpeech {
		t.Fatalf("expected sentinel transcript, got %q", text)
	}
}

func TestEmitTextOverrideLeavesSegmentFormatsIntact(t *testing.T) {
	dir := t.TempDir()
	segments := []queue.Segment{
		{Start: 0, End: 1, Text: "123", Confidence: 0.5},
	}
	result, err := artifacts.Emit(dir, segments, artifacts.SentinelNoSpeech)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}

	text, err := os.ReadFile(filepath.Join(dir, artifacts.FileText))
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	if strings.TrimSpace(string(text)) != artifacts.SentinelNoSpeech {
		t.Fatalf("expected override in transcript, got %q", text)
	}

	jsonl, err := os.ReadFile(filepath.Join(dir, artifacts.FileJSONL))
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	if !strings.Contains(string(jsonl), `"text":"123"`) {
		t.Fatalf("expected raw segment text preserved in jsonl, got %q", jsonl)
	}
}
