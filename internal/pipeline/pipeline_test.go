package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/services/sidecar"
	"scribe/internal/testsupport"
)

func newPipeline(t *testing.T) (*pipeline.Pipeline, *queue.Store, *testsupportConfig) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workers.ClaimAttempts = 5
	cfg.Workers.ClaimRetryDelay = 20 * time.Millisecond
	store := testsupport.MustOpenStore(t, cfg)
	p, err := pipeline.New(cfg, store, nil, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, store, &testsupportConfig{cfg.JobsDir()}
}

type testsupportConfig struct {
	jobsDir string
}

func (c *testsupportConfig) jobDir(id string) string {
	return filepath.Join(c.jobsDir, id)
}

func seedAudioWithTranscript(t *testing.T, segments string) string {
	t.Helper()
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))
	testsupport.WriteFile(t, filepath.Join(dir, "clip.json"),
		[]byte(fmt.Sprintf(`{"segments": %s}`, segments)))
	return audio
}

func TestProcessFinishesJobWithArtifacts(t *testing.T) {
	p, store, paths := newPipeline(t)
	ctx := context.Background()

	audio := seedAudioWithTranscript(t, `[
        {"start": 0, "end": 1.5, "text": "hello there friends", "confidence": 0.9},
        {"start": 1.5, "end": 3.0, "text": "welcome back", "confidence": 0.85}
    ]`)
	job, err := store.NewJob(ctx, audio, "small", queue.DefaultOptions())
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != queue.StatusFinished {
		t.Fatalf("expected finished, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if !strings.Contains(final.Text, "hello there friends") {
		t.Fatalf("expected transcript from sidecar, got %q", final.Text)
	}
	if !final.HasMandatoryArtifacts() {
		t.Fatalf("expected mandatory artifacts, got %v", final.Artifacts)
	}
	for _, format := range []string{queue.FormatText, queue.FormatJSONL, queue.FormatSRT, queue.FormatVTT} {
		path, ok := final.Artifacts[format]
		if !ok {
			t.Fatalf("missing %s artifact", format)
		}
		if !strings.HasPrefix(path, paths.jobDir(job.ID)) {
			t.Fatalf("artifact %s outside job dir: %s", format, path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("artifact %s not written: %v", format, err)
		}
	}
}

func TestProcessMissingInputFailsPermanently(t *testing.T) {
	p, store, _ := newPipeline(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/nonexistent/clip.wav", "small", queue.DefaultOptions())
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("expected permanent failure swallowed, got %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if !strings.Contains(final.ErrorMessage, "not found") {
		t.Fatalf("expected descriptive message, got %q", final.ErrorMessage)
	}
	if len(final.Artifacts) != 0 {
		t.Fatalf("expected no artifacts, got %v", final.Artifacts)
	}
}

func TestProcessRetriesAbsentRecordThenSucceeds(t *testing.T) {
	p, store, _ := newPipeline(t)
	ctx := context.Background()

	audio := seedAudioWithTranscript(t, `[{"start":0,"end":1,"text":"delayed record","confidence":0.9}]`)

	// The task arrives before the record is durably visible; the record shows
	// up while the acquire step is still inside its retry budget.
	job := queue.NewJobRecord(audio, "small", queue.DefaultOptions())
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = store.Insert(context.Background(), job)
	}()

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final == nil {
		t.Fatal("expected job record")
	}
	if final.Status != queue.StatusFinished {
		t.Fatalf("expected finished after retried claim, got %s (%s)", final.Status, final.ErrorMessage)
	}
}

func TestProcessAbandonsUnknownJobWithoutError(t *testing.T) {
	p, _, _ := newPipeline(t)

	if err := p.Process(context.Background(), sidecar.New(), "never-created"); err != nil {
		t.Fatalf("expected abandoned task to ack cleanly, got %v", err)
	}
}

func TestProcessAbandonsAlreadyClaimedJob(t *testing.T) {
	p, store, _ := newPipeline(t)
	ctx := context.Background()

	audio := seedAudioWithTranscript(t, `[{"start":0,"end":1,"text":"claimed","confidence":0.9}]`)
	job, err := store.NewJob(ctx, audio, "small", queue.DefaultOptions())
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("expected duplicate delivery to ack cleanly, got %v", err)
	}
}

func TestProcessAssignsDiarizationSpeakers(t *testing.T) {
	p, store, _ := newPipeline(t)
	ctx := context.Background()

	audio := seedAudioWithTranscript(t, `[
        {"start": 0, "end": 1, "text": "first speaker line", "confidence": 0.9},
        {"start": 1, "end": 2, "text": "second speaker line", "confidence": 0.9},
        {"start": 2, "end": 3, "text": "third speaker line", "confidence": 0.9}
    ]`)
	opts := queue.DefaultOptions()
	opts.Diarize = true
	job, err := store.NewJob(ctx, audio, "small", opts)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := []string{"SPEAKER_00", "SPEAKER_01", "SPEAKER_02"}
	if len(final.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(final.Segments))
	}
	for i, speaker := range want {
		if final.Segments[i].Speaker != speaker {
			t.Fatalf("segment %d speaker = %q, want %q", i, final.Segments[i].Speaker, speaker)
		}
	}
}

func TestProcessEmptyTranscriptionStillFinishes(t *testing.T) {
	p, store, paths := newPipeline(t)
	ctx := context.Background()

	audio := seedAudioWithTranscript(t, `[]`)
	job, err := store.NewJob(ctx, audio, "small", queue.DefaultOptions())
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != queue.StatusFinished {
		t.Fatalf("expected finished, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if final.Text != "no speech detected" {
		t.Fatalf("expected sentinel text, got %q", final.Text)
	}
	jsonl, err := os.ReadFile(filepath.Join(paths.jobDir(job.ID), "segments.jsonl"))
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	if len(jsonl) != 0 {
		t.Fatalf("expected empty jsonl, got %q", jsonl)
	}
}

func TestProcessDialectMapping(t *testing.T) {
	p, store, _ := newPipeline(t)
	ctx := context.Background()

	audio := seedAudioWithTranscript(t, `[
        {"start": 0, "end": 1, "text": "เฮ็ด งาน ทุกวัน", "confidence": 0.9, "language": "th"}
    ]`)
	opts := queue.DefaultOptions()
	opts.Punctuate = false
	opts.InverseNormalize = false
	opts.DialectMap = true
	opts.DialectRegion = "isan"
	job, err := store.NewJob(ctx, audio, "small", opts)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.HasPrefix(final.DialectText, "ทำ") {
		t.Fatalf("expected dialect-mapped text, got %q", final.DialectText)
	}
	if strings.HasPrefix(final.Text, "ทำ") {
		t.Fatalf("canonical transcript must stay unmapped, got %q", final.Text)
	}
}

func TestReprocessAfterFailureRegistersArtifactsOnce(t *testing.T) {
	p, store, _ := newPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	transcript := filepath.Join(dir, "clip.json")
	testsupport.WriteFile(t, audio, []byte("wav"))
	testsupport.WriteFile(t, transcript, []byte(`{broken`))

	job, err := store.NewJob(ctx, audio, "small", queue.DefaultOptions())
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("expected permanent failure swallowed, got %v", err)
	}
	failed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if failed.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}

	testsupport.WriteFile(t, transcript,
		[]byte(`{"segments":[{"start":0,"end":1,"text":"recovered line","confidence":0.9}]}`))
	if _, err := store.RetryFailed(ctx, job.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("reprocess: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != queue.StatusFinished {
		t.Fatalf("expected finished after retry, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if len(final.Artifacts) != 4 {
		t.Fatalf("expected exactly 4 artifacts after reprocessing, got %v", final.Artifacts)
	}
	for _, format := range []string{queue.FormatText, queue.FormatJSONL, queue.FormatSRT, queue.FormatVTT} {
		if _, ok := final.Artifacts[format]; !ok {
			t.Fatalf("missing %s artifact after reprocessing", format)
		}
	}
	if !strings.Contains(final.Text, "recovered line") {
		t.Fatalf("expected retried transcript, got %q", final.Text)
	}
}

func TestProcessPlaceholderTranscriptGetsSentinel(t *testing.T) {
	p, store, paths := newPipeline(t)
	ctx := context.Background()

	// Filename-derived guess with no letters and under 8 characters.
	dir := t.TempDir()
	audio := filepath.Join(dir, "123.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))

	job, err := store.NewJob(ctx, audio, "small", queue.DefaultOptions())
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := p.Process(ctx, sidecar.New(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != queue.StatusFinished {
		t.Fatalf("expected finished, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if final.Text != "no speech detected" {
		t.Fatalf("expected sentinel, got %q", final.Text)
	}
	txt, err := os.ReadFile(filepath.Join(paths.jobDir(job.ID), "transcript.txt"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if strings.TrimSpace(string(txt)) != "no speech detected" {
		t.Fatalf("expected sentinel transcript file, got %q", txt)
	}
	// The raw recognizer output stays on the record even when the plain
	// text artifact carries the sentinel.
	if len(final.Segments) != 1 || final.Segments[0].Text == "no speech detected" {
		t.Fatalf("expected original segment text preserved, got %+v", final.Segments)
	}
}
