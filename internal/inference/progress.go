package inference

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"condense/internal/logging"
)

// Reporter receives progress events from a Runner.
type Reporter interface {
	Start(ctx context.Context, total int)
	Advance(ctx context.Context, sourceID string)
	Finish()
	Abort()
}

// NewReporter returns a progress bar reporter when out is a terminal and a
// log-based reporter otherwise.
func NewReporter(out *os.File, logger *slog.Logger) Reporter {
	if out != nil && isTerminal(out.Fd()) {
		return &barReporter{out: out}
	}
	return NewLogReporter(logger)
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type barReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func (b *barReporter) Start(_ context.Context, total int) {
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription("summarizing chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *barReporter) Advance(_ context.Context, _ string) {
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *barReporter) Finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

func (b *barReporter) Abort() {
	if b.bar != nil {
		_, _ = io.WriteString(b.out, "\n")
	}
}

// LogReporter emits sampled "chunk processed" log lines.
type LogReporter struct {
	logger    *slog.Logger
	sampler   *logging.ProgressSampler
	total     int
	processed int
}

// NewLogReporter logs progress every 10% of the run.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogReporter{logger: logger, sampler: logging.NewProgressSampler(10)}
}

func (l *LogReporter) Start(_ context.Context, total int) {
	l.total = total
	l.processed = 0
	l.sampler.Reset()
}

func (l *LogReporter) Advance(ctx context.Context, sourceID string) {
	l.processed++
	if !l.sampler.ShouldLog(l.processed, l.total) {
		return
	}
	percent := 100.0
	if l.total > 0 {
		percent = float64(l.processed) * 100 / float64(l.total)
	}
	logging.WithContext(ctx, l.logger).Info("chunk processed",
		logging.String(logging.FieldEventType, "inference_progress"),
		logging.String("last_chunk", sourceID),
		logging.Int("processed", l.processed),
		logging.Int("chunks", l.total),
		logging.Float64("percent", percent),
	)
}

// Processed reports how many chunks have completed.
func (l *LogReporter) Processed() int { return l.processed }

func (l *LogReporter) Finish() {}

func (l *LogReporter) Abort() {}
