package inference

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"condense/internal/chunk"
	"condense/internal/logging"
	"condense/internal/results"
	"condense/internal/services"
	"condense/internal/services/backend"
)

// Generator produces text for one prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (backend.Generation, error)
}

// ChunkError identifies the chunk whose generation failed.
type ChunkError struct {
	SourceID string
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %s: %v", e.SourceID, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Summary describes a completed run.
type Summary struct {
	Chunks   int
	Output   string
	Duration time.Duration
}

// Runner drives sequential inference over a chunk directory.
type Runner struct {
	generator Generator
	logger    *slog.Logger
	reporter  Reporter
	raw       bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithReporter overrides progress reporting.
func WithReporter(reporter Reporter) Option {
	return func(r *Runner) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}

// WithRawResponses stores backend response objects instead of generated text.
func WithRawResponses(raw bool) Option {
	return func(r *Runner) {
		r.raw = raw
	}
}

// NewRunner constructs a Runner around generator.
func NewRunner(generator Generator, opts ...Option) *Runner {
	r := &Runner{generator: generator}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "inference")
	if r.reporter == nil {
		r.reporter = NewReporter(os.Stderr, r.logger)
	}
	return r
}

// ListChunks returns the chunk files in dir, sorted by name. Subdirectories and
// files without the chunk extension are ignored.
func ListChunks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "inference", "list chunks", fmt.Sprintf("Read %s", dir), err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != chunk.Extension {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Run generates one result per chunk in chunkDir and writes the artifact to outPath.
func (r *Runner) Run(ctx context.Context, chunkDir, outPath string) (Summary, error) {
	started := time.Now()
	logger := logging.WithContext(ctx, r.logger)

	names, err := ListChunks(chunkDir)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("inference started",
		logging.String(logging.FieldEventType, "inference_start"),
		logging.String("input", chunkDir),
		logging.Int("chunk_count", len(names)),
	)

	r.reporter.Start(ctx, len(names))
	items := make([]results.Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			r.reporter.Abort()
			return Summary{}, fmt.Errorf("inference: %w", err)
		}
		path := filepath.Join(chunkDir, name)
		prompt, err := os.ReadFile(path)
		if err != nil {
			r.reporter.Abort()
			return Summary{}, &ChunkError{
				SourceID: name,
				Err:      services.Wrap(services.ErrIO, "inference", "read chunk", fmt.Sprintf("Read %s", path), err),
			}
		}

		chunkCtx := services.WithSourceID(ctx, name)
		generation, err := r.generator.Generate(chunkCtx, string(prompt))
		if err != nil {
			r.reporter.Abort()
			logging.ErrorWithContext(logging.WithContext(chunkCtx, r.logger), "chunk generation failed", "chunk_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.String(logging.FieldErrorHint, "check backend availability; no results artifact was written"),
			)
			return Summary{}, &ChunkError{SourceID: name, Err: err}
		}
		items = append(items, results.Result{
			SourceID: name,
			Text:     generation.Text,
			Raw:      generation.Raw,
			Status:   results.StatusOK,
		})
		r.reporter.Advance(chunkCtx, name)
	}
	r.reporter.Finish()

	if err := results.Write(outPath, items, r.raw); err != nil {
		return Summary{}, err
	}

	summary := Summary{Chunks: len(items), Output: outPath, Duration: time.Since(started)}
	logger.Info("inference completed",
		logging.String(logging.FieldEventType, "inference_complete"),
		logging.String("output", outPath),
		logging.Int("chunk_count", summary.Chunks),
		logging.Duration("stage_duration", summary.Duration),
	)
	return summary, nil
}
