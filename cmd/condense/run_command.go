package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"condense/internal/inference"
	"condense/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		outputPath string
		maxTokens  int
		raw        bool
		flags      backendFlags
	)

	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Summarize a transcript end to end",
		Long: `Run both passes: split the transcript under the token budget, summarize
each chunk, merge the partial summaries, then summarize the merged text once
more. The output is written only when every stage succeeds.

Scratch files live in a per-run directory under paths.scratch_dir and are
removed when the run ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			input, err := expandArg(args[0], "input")
			if err != nil {
				return err
			}
			output := defaultSummaryPath(input)
			if outputPath != "" {
				if output, err = expandArg(outputPath, "--output"); err != nil {
					return err
				}
			}

			opts, err := pipeline.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-tokens") {
				opts.FirstPass.MaxTokens = maxTokens
			}
			if raw {
				opts.Normalize = false
			}
			client, err := flags.client(cfg, logger)
			if err != nil {
				return err
			}

			orch := pipeline.New(client, opts,
				pipeline.WithLogger(logger),
				pipeline.WithReporter(inference.NewReporter(os.Stderr, logger)),
			)
			report, err := orch.Run(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s (%d words from %d, %d chunk(s))\n",
				report.Output, report.OutputWords, report.InputWords, report.FirstChunks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Summary path (default <input>.summary.txt)")
	cmd.Flags().IntVarP(&maxTokens, "max-tokens", "s", 0, "Maximum words per first-pass chunk")
	cmd.Flags().BoolVar(&raw, "raw", false, "Skip transcript normalization")
	flags.bind(cmd)
	return cmd
}
