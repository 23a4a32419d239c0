package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"condense/internal/inference"
	"condense/internal/logging"
	"condense/internal/pipeline"
	"condense/internal/preflight"
	"condense/internal/services"
	"condense/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir  string
		archiveDir string
		existing   bool
		settle     time.Duration
		flags      backendFlags
	)

	cmd := &cobra.Command{
		Use:   "watch <inbox>",
		Short: "Summarize transcripts as they arrive in a directory",
		Long: `Watch a directory and run the full pipeline for every transcript written
into it, one at a time. Each summary is written as <name>.summary.txt into
the output directory (the inbox by default). Failures are logged and the
watcher keeps going. Stop with Ctrl-C.`,
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
			inbox, err := expandArg(args[0], "inbox")
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.Watch.OutputDir = outputDir
			}
			if cmd.Flags().Changed("archive-dir") {
				cfg.Watch.ArchiveDir = archiveDir
			}
			for _, dir := range []*string{&cfg.Watch.OutputDir, &cfg.Watch.ArchiveDir} {
				if *dir == "" {
					continue
				}
				if *dir, err = expandArg(*dir, "watch directory"); err != nil {
					return err
				}
				if err := os.MkdirAll(*dir, 0o755); err != nil {
					return services.Wrap(services.ErrIO, "watch", "create directory", *dir, err)
				}
			}

			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				if !result.Passed {
					logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
						logging.String("check", result.Name),
						logging.String("detail", result.Detail),
						logging.String(logging.FieldImpact, "inbox transcripts may fail until this is fixed"),
					)
				}
			}

			opts, err := pipeline.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			client, err := flags.client(cfg, logger)
			if err != nil {
				return err
			}
			processor := &watch.Processor{
				Summarizer: pipeline.New(client, opts,
					pipeline.WithLogger(logger),
					pipeline.WithReporter(inference.NewLogReporter(logger)),
				),
				OutputDir:  cfg.Watch.OutputDir,
				ArchiveDir: cfg.Watch.ArchiveDir,
				Logger:     logger,
			}

			if !cmd.Flags().Changed("settle") {
				settle = time.Duration(cfg.Watch.SettleMillis) * time.Millisecond
			}
			watcher, err := watch.New(watch.Options{
				Dir:             inbox,
				Extensions:      cfg.Watch.Extensions,
				Settle:          settle,
				ProcessExisting: existing,
				Logger:          logger,
			}, processor.Handle)
			if err != nil {
				return services.Wrap(services.ErrIO, "watch", "start", inbox, err)
			}
			defer watcher.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", inbox)
			if err := watcher.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return services.Wrap(services.ErrIO, "watch", "run", inbox, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for summaries (overrides watch.output_dir)")
	cmd.Flags().StringVar(&archiveDir, "archive-dir", "", "Move processed transcripts here (overrides watch.archive_dir)")
	cmd.Flags().BoolVar(&existing, "existing", false, "Also process transcripts already in the inbox")
	cmd.Flags().DurationVar(&settle, "settle", 0, "Quiet period before a new file is processed")
	flags.bind(cmd)
	return cmd
}
