package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"condense/internal/fileutil"
	"condense/internal/logging"
	"condense/internal/pipeline"
)

// Summarizer runs one transcript through the pipeline.
type Summarizer interface {
	Run(ctx context.Context, input, output string) (pipeline.Report, error)
}

// Processor writes a summary beside (or away from) each inbox transcript and
// optionally archives the transcript afterwards.
type Processor struct {
	Summarizer Summarizer
	// OutputDir receives summaries. Empty means the transcript's own directory.
	OutputDir string
	// ArchiveDir receives processed transcripts. Empty leaves them in place.
	ArchiveDir string
	Logger     *slog.Logger
}

// SummaryPath returns where the summary of input is written.
func (p *Processor) SummaryPath(input string) string {
	dir := p.OutputDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+SummarySuffix)
}

// Handle summarizes input. It satisfies Handler.
func (p *Processor) Handle(ctx context.Context, input string) error {
	output := p.SummaryPath(input)
	report, err := p.Summarizer.Run(ctx, input, output)
	if err != nil {
		return err
	}

	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger.Info("summary written",
		logging.String(logging.FieldEventType, "watch_summary"),
		logging.String("input", input),
		logging.String("output", output),
		logging.String(logging.FieldRunID, report.RunID),
		logging.Duration("run_duration", report.Duration),
	)

	if strings.TrimSpace(p.ArchiveDir) == "" {
		return nil
	}
	target := filepath.Join(p.ArchiveDir, filepath.Base(input))
	if err := fileutil.MoveFile(input, target); err != nil {
		return fmt.Errorf("archive %s: %w", input, err)
	}
	logger.Info("transcript archived",
		logging.String(logging.FieldEventType, "watch_archive"),
		logging.String("path", target),
	)
	return nil
}
