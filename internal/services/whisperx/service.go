package whisperx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scribe/internal/asr"
	"scribe/internal/config"
	"scribe/internal/services"
	"scribe/internal/textproc"
)

// WhisperX invocation constants.
const (
	BackendName  = "whisperx"
	DefaultModel = "small"

	UVXCommand   = "uvx"
	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"

	batchSize         = "4"
	chunkSize         = "15"
	segmentResolution = "sentence"
	outputFormat      = "json"
	cpuDevice         = "cpu"
	cudaDevice        = "cuda"
	cpuComputeType    = "float32"
)

// Service runs WhisperX through uvx and parses its JSON output.
type Service struct {
	model         string
	cudaEnabled   bool
	hfToken       string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// New creates a WhisperX backend from the transcription configuration.
func New(cfg config.Transcription) *Service {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Service{
		model:       model,
		cudaEnabled: cfg.CUDAEnabled,
		hfToken:     cfg.HFToken,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Name identifies the backend.
func (s *Service) Name() string {
	return BackendName
}

// Close releases engine resources. The uvx invocation holds no process-local
// state between runs.
func (s *Service) Close() error {
	return nil
}

// Transcribe runs WhisperX against the prepared audio and returns its timed
// segments.
func (s *Service) Transcribe(ctx context.Context, req asr.Request) ([]asr.Segment, error) {
	if req.AudioPath == "" {
		return nil, services.Wrap(services.ErrBackend, "transcribe", "whisperx", "audio path required", nil)
	}
	outputDir := req.WorkDir
	if outputDir == "" {
		outputDir = filepath.Dir(req.AudioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "whisperx",
			"cannot create output directory", err)
	}

	args := s.buildArgs(req, outputDir)
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return nil, services.Wrap(services.ErrBackend, "transcribe", "whisperx",
			"engine invocation failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrBackend, "transcribe", "whisperx",
			fmt.Sprintf("cannot read engine output %s", jsonPath), err)
	}
	return segments, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	// Force legacy behavior so bundled WhisperX binaries can load checkpoints safely.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(req asr.Request, outputDir string) []string {
	args := make([]string, 0, 32)

	if s.cudaEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	model := req.ModelName
	if model == "" {
		model = s.model
	}

	args = append(args,
		"whisperx",
		req.AudioPath,
		"--model", model,
		"--batch_size", batchSize,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
		"--segment_resolution", segmentResolution,
		"--chunk_size", chunkSize,
	)

	if hint := req.Options.LanguageHint; hint != "" && hint != "auto" {
		args = append(args, "--language", textproc.DetectLanguage("", hint))
	}
	if req.Options.Diarize && s.hfToken != "" {
		args = append(args, "--diarize", "--hf_token", s.hfToken)
	}
	if prompt := buildPromptBias(req.Options.Lexicon, req.Options.ContextPrompt); prompt != "" {
		args = append(args, "--initial_prompt", prompt)
	}

	if s.cudaEnabled {
		args = append(args, "--device", cudaDevice)
	} else {
		args = append(args, "--device", cpuDevice, "--compute_type", cpuComputeType)
	}

	return args
}

// buildPromptBias joins the custom lexicon and context prompt into the
// engine's initial prompt.
func buildPromptBias(lexicon []string, contextPrompt string) string {
	parts := make([]string, 0, len(lexicon)+1)
	for _, entry := range lexicon {
		if entry = strings.TrimSpace(entry); entry != "" {
			parts = append(parts, entry)
		}
	}
	if contextPrompt = strings.TrimSpace(contextPrompt); contextPrompt != "" {
		parts = append(parts, contextPrompt)
	}
	return strings.Join(parts, "\n")
}
