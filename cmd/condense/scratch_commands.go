package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"condense/internal/pipeline"
	"condense/internal/services"
	"condense/internal/staging"
)

func newScratchCommand(ctx *commandContext) *cobra.Command {
	scratchCmd := &cobra.Command{
		Use:   "scratch",
		Short: "Inspect and clean per-run scratch directories",
	}

	scratchCmd.AddCommand(newScratchListCommand(ctx))
	scratchCmd.AddCommand(newScratchCleanCommand(ctx))

	return scratchCmd
}

func newScratchListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scratch run directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			scratchDir := strings.TrimSpace(cfg.Paths.ScratchDir)
			dirs, err := staging.ListDirectories(scratchDir)
			if err != nil {
				return services.Wrap(services.ErrIO, "scratch", "list", scratchDir, err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if jsonOutput {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"scratch_dir":      scratchDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No scratch directories found")
				return nil
			}

			fmt.Fprintf(out, "Scratch directory: %s\n\n", scratchDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				rows = append(rows, []string{dir.Name, humanize.Time(dir.ModTime), humanize.Comma(int64(dir.Files)), formatBytes(dir.Size)})
			}
			fmt.Fprint(out, renderTable(tableSpec{
				Headers: []string{"Run", "Modified", "Files", "Size"},
				Rows:    rows,
				Footer:  []string{fmt.Sprintf("%d run(s)", len(dirs)), "", "", formatBytes(totalSize)},
				Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print directories as JSON")
	return cmd
}

func newScratchCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch directories left by interrupted runs",
		Long: `Remove run directories older than pipeline.stale_scratch_hours.

Use --all to remove every run directory regardless of age. Cleaning takes
the scratch lock, so it refuses to run while a summarization is in progress.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			scratchDir := cfg.Paths.ScratchDir
			lock := flock.New(filepath.Join(scratchDir, pipeline.LockFileName))
			ok, err := lock.TryLock()
			if err != nil {
				return services.Wrap(services.ErrIO, "scratch", "lock", lock.Path(), err)
			}
			if !ok {
				return services.Wrap(services.ErrIO, "scratch", "lock", lock.Path(), pipeline.ErrWorkspaceBusy)
			}
			defer lock.Unlock()

			maxAge := cfg.StaleScratchAge()
			scope := "stale"
			if cleanAll {
				maxAge = 0
				scope = "scratch"
			}
			result := staging.CleanStale(cmd.Context(), scratchDir, maxAge, logger)
			return printCleanResult(cmd, result, scope)
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all run directories regardless of age")
	return cmd
}

func printCleanResult(cmd *cobra.Command, result staging.CleanStaleResult, label string) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return nil
	}
	for _, path := range result.Removed {
		fmt.Fprintf(out, "Removed %s\n", path)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "Failed to remove %s: %v\n", e.Path, e.Error)
	}
	if len(result.Errors) > 0 {
		return services.Wrap(services.ErrIO, "scratch", "clean", fmt.Sprintf("%d director(ies) could not be removed", len(result.Errors)), nil)
	}
	return nil
}
