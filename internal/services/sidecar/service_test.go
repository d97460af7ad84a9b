package sidecar_test

import (
	"context"
	"path/filepath"
	"testing"

	"scribe/internal/asr"
	"scribe/internal/services/sidecar"
	"scribe/internal/testsupport"
)

func TestTranscribeReadsSidecarTranscript(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))
	testsupport.WriteFile(t, filepath.Join(dir, "clip.json"), []byte(`{
        "segments": [
            {"start": 0, "end": 1.5, "text": "สวัสดีครับ", "confidence": 0.95, "language": "th"},
            {"start": 1.5, "end": 3.0, "text": "ยินดีต้อนรับ", "confidence": 0.9}
        ]
    }`))

	segments, err := sidecar.New().Transcribe(context.Background(), asr.Request{AudioPath: audio})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Text != "สวัสดีครับ" || segments[0].Language != "th" {
		t.Fatalf("unexpected first segment %+v", segments[0])
	}
}

func TestTranscribeConsultsOriginalInputPath(t *testing.T) {
	sourceDir := t.TempDir()
	workDir := t.TempDir()
	input := filepath.Join(sourceDir, "clip.wav")
	testsupport.WriteFile(t, input, []byte("wav"))
	testsupport.WriteFile(t, filepath.Join(sourceDir, "clip.json"), []byte(`{
        "segments": [
            {"start": 0, "end": 1, "text": "one", "confidence": 0.9},
            {"start": 1, "end": 2, "text": "two", "confidence": 0.9},
            {"start": 2, "end": 3, "text": "three", "confidence": 0.9}
        ]
    }`))
	prepared := filepath.Join(workDir, "audio.wav")
	testsupport.WriteFile(t, prepared, []byte("wav"))

	segments, err := sidecar.New().Transcribe(context.Background(), asr.Request{
		AudioPath: prepared,
		InputPath: input,
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected transcript next to the input file, got %d segment(s)", len(segments))
	}
	if segments[0].Text != "one" {
		t.Fatalf("unexpected first segment %+v", segments[0])
	}
}

func TestTranscribeConfidenceDefaultsOnlyWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))
	testsupport.WriteFile(t, filepath.Join(dir, "clip.json"), []byte(`{
        "segments": [
            {"start": 0, "end": 1, "text": "scored zero", "confidence": 0},
            {"start": 1, "end": 2, "text": "unscored"}
        ]
    }`))

	segments, err := sidecar.New().Transcribe(context.Background(), asr.Request{AudioPath: audio})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Confidence != 0 {
		t.Fatalf("explicit zero confidence must survive, got %f", segments[0].Confidence)
	}
	if segments[1].Confidence != asr.DefaultConfidence {
		t.Fatalf("missing confidence should default, got %f", segments[1].Confidence)
	}
}

func TestTranscribeGuessesFromFilename(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "morning_news.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))

	segments, err := sidecar.New().Transcribe(context.Background(), asr.Request{AudioPath: audio})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected single guessed segment, got %d", len(segments))
	}
	if segments[0].Text != "morning news" {
		t.Fatalf("unexpected guess %q", segments[0].Text)
	}
	if segments[0].Confidence != 0.5 {
		t.Fatalf("expected low confidence guess, got %f", segments[0].Confidence)
	}
}

func TestTranscribeMalformedSidecar(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))
	testsupport.WriteFile(t, filepath.Join(dir, "clip.json"), []byte(`{not json`))

	if _, err := sidecar.New().Transcribe(context.Background(), asr.Request{AudioPath: audio}); err == nil {
		t.Fatal("expected error for malformed sidecar")
	}
}
