package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"condense/internal/inference"
)

func newInferCommand(ctx *commandContext) *cobra.Command {
	var (
		chunkDir   string
		outputPath string
		raw        bool
		flags      backendFlags
	)

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Generate a summary for every chunk in a directory",
		Long: `Send each .txt chunk in --dir to the backend, one request at a time, and
write a JSON results artifact mapping chunk file name to generated text.

Failed requests are retried with exponential backoff. When a chunk still
fails, no artifact is written. With --raw the artifact stores the full
backend response objects; merge them with "condense merge --tag <kind>".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			dir, err := expandArg(chunkDir, "--dir")
			if err != nil {
				return err
			}
			output, err := expandArg(outputPath, "--output")
			if err != nil {
				return err
			}
			client, err := flags.client(cfg, logger)
			if err != nil {
				return err
			}

			runner := inference.NewRunner(client,
				inference.WithLogger(logger),
				inference.WithReporter(inference.NewReporter(os.Stderr, logger)),
				inference.WithRawResponses(raw),
			)
			summary, err := runner.Run(cmd.Context(), dir, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d result(s) to %s in %s\n", summary.Chunks, summary.Output, summary.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&chunkDir, "dir", "d", "", "Directory of chunk files")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Results artifact path (JSON)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Store raw backend responses instead of generated text")
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
