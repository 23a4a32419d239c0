package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"condense/internal/chunk"
	"condense/internal/transcript"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath   string
		outputDir   string
		maxTokens   int
		chunkConfig string
		singleShot  bool
		raw         bool
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a transcript into numbered chunk files",
		Long: `Split a transcript into chunk files of at most --max-tokens words, each
wrapped in the configured header and footer.

With --single-shot the whole document becomes one chunk wrapped in the final
pass header and footer. A --chunk-config JSON file ({"header","footer"})
replaces the configured wrapping text in either mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, err := ctx.ensureLogger(); err != nil {
				return err
			}
			input, err := expandArg(inputPath, "--input")
			if err != nil {
				return err
			}
			outDir, err := expandArg(outputDir, "--output")
			if err != nil {
				return err
			}

			split := chunk.Config{
				Header:     cfg.Splitter.Header,
				Footer:     cfg.Splitter.Footer,
				MaxTokens:  cfg.Splitter.MaxTokens,
				SingleShot: singleShot,
			}
			if singleShot {
				split.Header, split.Footer = cfg.Splitter.FinalHeader, cfg.Splitter.FinalFooter
			}
			if cmd.Flags().Changed("max-tokens") {
				split.MaxTokens = maxTokens
			}
			if path := strings.TrimSpace(chunkConfig); path != "" {
				loaded, err := chunk.LoadConfig(path)
				if err != nil {
					return err
				}
				split.Header, split.Footer = loaded.Header, loaded.Footer
			}
			if err := split.Validate(); err != nil {
				return err
			}

			document, err := transcript.ExtractFile(input)
			if err != nil {
				return err
			}
			if !raw {
				document = transcript.Normalize(document)
			}
			base := filepath.Base(input)
			split.Stem = strings.TrimSuffix(base, filepath.Ext(base)) + "_part"

			paths, err := chunk.Split(document, split, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunk(s) to %s\n", len(paths), outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Transcript to split (.txt, .srt, .html)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for chunk files")
	cmd.Flags().IntVarP(&maxTokens, "max-tokens", "s", 0, "Maximum words per chunk (overrides splitter.max_tokens)")
	cmd.Flags().StringVar(&chunkConfig, "chunk-config", "", "JSON file with header and footer text")
	cmd.Flags().BoolVar(&singleShot, "single-shot", false, "Emit the whole document as one chunk")
	cmd.Flags().BoolVar(&raw, "raw", false, "Skip transcript normalization")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
