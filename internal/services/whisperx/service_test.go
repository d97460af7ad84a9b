package whisperx_test

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/asr"
	"scribe/internal/config"
	"scribe/internal/queue"
	"scribe/internal/services/whisperx"
	"scribe/internal/testsupport"
)

func TestTranscribeParsesEngineOutput(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))

	svc := whisperx.New(config.Transcription{Model: "small"})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		// Pretend the engine ran and wrote its JSON output.
		payload := `{"language":"th","segments":[
            {"text":"สวัสดี","start":0,"end":1.2,"avg_logprob":-0.1},
            {"text":"ครับ","start":1.2,"end":2.0,"words":[{"word":"ครับ","start":1.2,"end":2.0,"score":0.8}]}
        ]}`
		testsupport.WriteFile(t, filepath.Join(dir, "audio.json"), []byte(payload))
		return nil
	})

	segments, err := svc.Transcribe(context.Background(), asr.Request{
		AudioPath: audio,
		WorkDir:   dir,
		ModelName: "small",
		Options:   queue.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Language != "th" {
		t.Fatalf("expected payload language inherited, got %q", segments[0].Language)
	}
	if want := math.Exp(-0.1); math.Abs(segments[0].Confidence-want) > 1e-9 {
		t.Fatalf("expected logprob confidence %f, got %f", want, segments[0].Confidence)
	}
	if math.Abs(segments[1].Confidence-0.8) > 1e-9 {
		t.Fatalf("expected word score confidence, got %f", segments[1].Confidence)
	}
}

func TestBuildArgsCarrySubmissionOptions(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))

	var captured []string
	svc := whisperx.New(config.Transcription{Model: "large-v3", HFToken: "hf_test"})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		captured = append([]string{name}, args...)
		testsupport.WriteFile(t, filepath.Join(dir, "audio.json"), []byte(`{"segments":[]}`))
		return nil
	})

	opts := queue.DefaultOptions()
	opts.LanguageHint = "th"
	opts.Lexicon = []string{"ศัพท์เฉพาะ"}
	opts.ContextPrompt = "รายการข่าวเช้า"

	if _, err := svc.Transcribe(context.Background(), asr.Request{
		AudioPath: audio,
		WorkDir:   dir,
		Options:   opts,
	}); err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	joined := strings.Join(captured, " ")
	if captured[0] != whisperx.UVXCommand {
		t.Fatalf("expected uvx invocation, got %s", captured[0])
	}
	for _, fragment := range []string{"--model large-v3", "--language th", "--diarize", "--hf_token hf_test", "--initial_prompt"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in args: %s", fragment, joined)
		}
	}
}

func TestTranscribeEngineFailure(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))

	svc := whisperx.New(config.Transcription{})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return context.DeadlineExceeded
	})

	if _, err := svc.Transcribe(context.Background(), asr.Request{AudioPath: audio, WorkDir: dir}); err == nil {
		t.Fatal("expected backend failure to surface")
	}
}
