package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"scribe/internal/artifacts"
	"scribe/internal/asr"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/textproc"
)

// preparedAudioName is the canonical waveform filename inside a job dir.
const preparedAudioName = "audio.wav"

func (p *Pipeline) runSteps(ctx context.Context, backend asr.Backend, job *queue.Job, logger *slog.Logger) error {
	jobDir := p.cfg.JobDir(job.ID)

	audioPath, err := p.prepare(ctx, job, jobDir, logger)
	if err != nil {
		return err
	}

	rawSegments, err := p.transcribe(ctx, backend, job, audioPath, jobDir, logger)
	if err != nil {
		return err
	}

	job.Segments = convertSegments(rawSegments)
	flattened := flattenText(job.Segments)
	textOverride := ""
	if isDegenerateText(flattened) {
		logger.Info("degenerate transcript, substituting sentinel",
			logging.String("raw_text", flattened))
		flattened = artifacts.SentinelNoSpeech
		textOverride = artifacts.SentinelNoSpeech
	} else {
		p.postprocess(ctx, job)
		flattened = flattenText(job.Segments)
	}

	dialectText := ""
	if job.Options.DialectMap {
		dialectText = p.dialect.MapText(flattened, job.Options.DialectRegion)
	}

	if err := p.emitArtifacts(ctx, job, jobDir, textOverride, logger); err != nil {
		return err
	}

	job.SetFinished(flattened, dialectText)
	if err := p.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "persist",
			fmt.Sprintf("cannot persist finished job %s", job.ID), err)
	}
	return nil
}

func (p *Pipeline) prepare(ctx context.Context, job *queue.Job, jobDir string, logger *slog.Logger) (string, error) {
	ctx = services.WithStep(ctx, "prepare")
	audioPath := filepath.Join(jobDir, preparedAudioName)
	if err := p.preparer.Prepare(ctx, job.InputPath, audioPath); err != nil {
		return "", err
	}
	logger.Debug("audio prepared", logging.String("audio_path", audioPath))
	return audioPath, nil
}

func (p *Pipeline) transcribe(ctx context.Context, backend asr.Backend, job *queue.Job, audioPath, jobDir string, logger *slog.Logger) ([]asr.Segment, error) {
	ctx = services.WithStep(ctx, "transcribe")
	segments, err := backend.Transcribe(ctx, asr.Request{
		AudioPath: audioPath,
		InputPath: job.InputPath,
		WorkDir:   jobDir,
		ModelName: job.ModelName,
		Options:   job.Options,
	})
	if err != nil {
		if services.IsTransient(err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrBackend, "transcribe", backend.Name(),
			"transcription failed", err)
	}
	logger.Debug("transcription complete",
		logging.String("backend", backend.Name()),
		logging.Int("segments", len(segments)))
	return segments, nil
}

// postprocess applies diarization labels and then per-segment language
// resolution, inverse normalization, normalization, and punctuation in that
// fixed order.
func (p *Pipeline) postprocess(_ context.Context, job *queue.Job) {
	if job.Options.Diarize {
		for i := range job.Segments {
			job.Segments[i].Speaker = fmt.Sprintf("SPEAKER_%02d", i)
		}
	}
	for i := range job.Segments {
		segment := &job.Segments[i]
		lang := segment.Language
		if lang == "" {
			lang = textproc.DetectLanguage(segment.Text, job.Options.LanguageHint)
		}
		text := segment.Text
		if job.Options.InverseNormalize {
			text = textproc.InverseNormalize(text, lang)
		}
		text = textproc.Normalize(text, lang)
		if job.Options.Punctuate {
			text = textproc.RestorePunctuation(text, lang)
		}
		segment.Text = text
		segment.Language = lang
	}
}

func (p *Pipeline) emitArtifacts(ctx context.Context, job *queue.Job, jobDir, textOverride string, logger *slog.Logger) error {
	result, err := artifacts.Emit(jobDir, job.Segments, textOverride)
	if err != nil {
		return services.Wrap(services.ErrTransient, "artifacts", "emit",
			"cannot write artifact directory", err)
	}
	for format, writeErr := range result.Failures {
		logger.Warn("artifact format failed",
			logging.String("format", format),
			logging.Error(writeErr))
	}
	for format, path := range result.Paths {
		job.RegisterArtifact(format, path)
	}
	if !result.MandatoryOK() {
		missing := make([]string, 0, len(queue.MandatoryFormats))
		for _, format := range queue.MandatoryFormats {
			if _, ok := result.Paths[format]; !ok {
				missing = append(missing, format)
			}
		}
		return services.Wrap(services.ErrBackend, "artifacts", "emit",
			fmt.Sprintf("mandatory artifact formats failed: %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

func convertSegments(raw []asr.Segment) []queue.Segment {
	segments := make([]queue.Segment, len(raw))
	for i, seg := range raw {
		segments[i] = queue.Segment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Confidence: asr.NormalizeConfidence(seg.Confidence),
			Language:   seg.Language,
		}
	}
	return segments
}

func flattenText(segments []queue.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// isDegenerateText reports whether a flattened transcript is empty or a
// filename-derived placeholder: a short string with no letters at all.
func isDegenerateText(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	if utf8.RuneCountInString(text) >= 8 {
		return false
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
