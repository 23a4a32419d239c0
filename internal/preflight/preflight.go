package preflight

import (
	"context"
	"fmt"
	"strings"

	"condense/internal/config"
	"condense/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Optional paths are only checked when configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Scratch directory (always checked)
	results = append(results, CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckBackend(ctx, cfg.GetBackend()))

	if cfg.Backend.ParamsFile != "" {
		results = append(results, CheckParamsFile(cfg.Backend.ParamsFile))
	}
	if cfg.Splitter.ChunkConfig != "" {
		results = append(results, CheckChunkConfig("Chunk config", cfg.Splitter.ChunkConfig))
	}
	if cfg.Splitter.FinalChunkConfig != "" {
		results = append(results, CheckChunkConfig("Final chunk config", cfg.Splitter.FinalChunkConfig))
	}

	if cfg.Watch.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Watch output directory", cfg.Watch.OutputDir))
	}
	if cfg.Watch.ArchiveDir != "" {
		results = append(results, CheckDirectoryAccess("Watch archive directory", cfg.Watch.ArchiveDir))
	}

	return results
}

// Err summarizes failed checks as one ErrConfig error, or nil when all passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfig, "preflight", "checks",
		fmt.Sprintf("%d check(s) failed: %s", len(failed), strings.Join(failed, "; ")), nil)
}
