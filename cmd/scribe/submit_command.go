package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"scribe/internal/daemon"
	"scribe/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		model         string
		language      string
		noDiarize     bool
		noPunctuate   bool
		noITN         bool
		dialectMap    bool
		dialectRegion string
		lexicon       []string
		prompt        string
	)

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Submit a media file for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			inputPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}

			opts := queue.DefaultOptions()
			opts.LanguageHint = language
			opts.Diarize = !noDiarize
			opts.Punctuate = !noPunctuate
			opts.InverseNormalize = !noITN
			opts.DialectMap = dialectMap
			opts.DialectRegion = dialectRegion
			opts.Lexicon = lexicon
			opts.ContextPrompt = prompt

			job, err := client.Submit(daemon.SubmitRequest{
				InputPath: inputPath,
				ModelName: model,
				Options:   opts,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "submitted job %s (%s)\n", job.ID, job.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to the configured model)")
	cmd.Flags().StringVar(&language, "language", "", "Language hint (e.g. th, en, lo)")
	cmd.Flags().BoolVar(&noDiarize, "no-diarize", false, "Disable speaker diarization")
	cmd.Flags().BoolVar(&noPunctuate, "no-punct", false, "Disable punctuation restoration")
	cmd.Flags().BoolVar(&noITN, "no-itn", false, "Disable inverse text normalization")
	cmd.Flags().BoolVar(&dialectMap, "dialect-map", false, "Produce a dialect-mapped transcript")
	cmd.Flags().StringVar(&dialectRegion, "dialect-region", "", "Dialect region (north, isan, south)")
	cmd.Flags().StringSliceVar(&lexicon, "lexicon", nil, "Custom lexicon entries to bias the engine")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Context prompt to bias the engine")

	return cmd
}
