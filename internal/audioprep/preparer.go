package audioprep

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services"
)

const (
	targetChannels   = "1"
	targetSampleRate = "16000"
)

// Preparer converts arbitrary input media into mono 16kHz WAV files.
type Preparer struct {
	ffmpegBinary string
	logger       *slog.Logger
}

// New returns a preparer using the given ffmpeg binary name or path. An
// empty binary defaults to "ffmpeg" resolved from PATH.
func New(ffmpegBinary string, logger *slog.Logger) *Preparer {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Preparer{
		ffmpegBinary: ffmpegBinary,
		logger:       logger.With(logging.String(logging.FieldComponent, "audioprep")),
	}
}

// Prepare writes the canonical waveform for inputPath into outputPath. A
// missing source is a permanent input error. When ffmpeg cannot be resolved
// the input passes through as a byte copy so transcription can still be
// attempted.
func (p *Preparer) Prepare(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrInput, "prepare", "stat input",
				fmt.Sprintf("input file not found: %s", inputPath), err)
		}
		return services.Wrap(services.ErrTransient, "prepare", "stat input",
			fmt.Sprintf("cannot access input file: %s", inputPath), err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "prepare", "create output dir",
			"cannot create job output directory", err)
	}

	binary, err := exec.LookPath(p.ffmpegBinary)
	if err != nil {
		p.logger.Warn("ffmpeg unavailable, copying input through unconverted",
			logging.String("binary", p.ffmpegBinary),
			logging.Error(err))
		return p.copyThrough(inputPath, outputPath)
	}

	cmd := exec.CommandContext(ctx, binary,
		"-y",
		"-i", inputPath,
		"-ac", targetChannels,
		"-ar", targetSampleRate,
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if len(detail) > 400 {
			detail = detail[len(detail)-400:]
		}
		return services.Wrap(services.ErrExternalTool, "prepare", "ffmpeg",
			fmt.Sprintf("audio conversion failed: %s", detail), err)
	}

	p.logger.Debug("audio prepared",
		logging.String("input", inputPath),
		logging.String("output", outputPath))
	return nil
}

func (p *Preparer) copyThrough(inputPath, outputPath string) error {
	if err := fileutil.CopyFileVerified(inputPath, outputPath); err != nil {
		return services.Wrap(services.ErrTransient, "prepare", "copy",
			"cannot copy input to output", err)
	}
	return nil
}
