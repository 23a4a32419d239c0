package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"condense/internal/chunk"
	"condense/internal/inference"
	"condense/internal/logging"
	"condense/internal/merge"
	"condense/internal/services"
	"condense/internal/transcript"
)

// StageError names the stage a run failed in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options configures an Orchestrator.
type Options struct {
	ScratchDir      string
	StaleScratchAge time.Duration
	// FirstPass wraps the budgeted chunks of the transcript.
	FirstPass chunk.Config
	// FinalPass wraps the merged partial summaries. It is always split single-shot.
	FinalPass chunk.Config
	Separator string
	// Normalize drops timing lines and Script prefixes before splitting.
	Normalize bool
}

// Report describes a finished run.
type Report struct {
	RunID       string
	Input       string
	Output      string
	States      []State
	InputWords  int
	FirstChunks int
	MergedWords int
	OutputWords int
	Duration    time.Duration
}

// Orchestrator runs the split, infer, merge cycle twice per input.
type Orchestrator struct {
	generator inference.Generator
	opts      Options
	logger    *slog.Logger
	reporter  inference.Reporter
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithReporter overrides inference progress reporting for both passes.
func WithReporter(reporter inference.Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// New constructs an Orchestrator.
func New(generator inference.Generator, opts Options, options ...Option) *Orchestrator {
	o := &Orchestrator{generator: generator, opts: opts}
	for _, opt := range options {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	o.opts.FinalPass.SingleShot = true
	if o.opts.Separator == "" {
		o.opts.Separator = merge.DefaultSeparator
	}
	return o
}

type run struct {
	ctx     context.Context
	machine *Machine
	logger  *slog.Logger
}

// step transitions into state, runs fn, and converts a failure into a StageError
// after moving the machine to Aborted.
func (r *run) step(state State, fn func(ctx context.Context) error) error {
	if err := r.ctx.Err(); err != nil {
		return r.fail(state, fmt.Errorf("run cancelled: %w", err))
	}
	if err := r.machine.Transition(state); err != nil {
		return err
	}
	stageCtx := services.WithStage(r.ctx, string(state))
	logger := logging.WithContext(stageCtx, r.logger)
	started := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(stageCtx); err != nil {
		return r.fail(state, err)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

func (r *run) fail(state State, err error) error {
	logger := logging.WithContext(services.WithStage(r.ctx, string(state)), r.logger)
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
	if !r.machine.State().Terminal() {
		_ = r.machine.Transition(StateAborted)
	}
	return &StageError{Stage: state, Err: err}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "run was cancelled; no output was written"
	case errors.Is(err, ErrWorkspaceBusy):
		return "wait for the other run to finish or point paths.scratch_dir elsewhere"
	case errors.Is(err, services.ErrBackend):
		return "check backend availability with condense doctor"
	case errors.Is(err, services.ErrConfig):
		return "check the configuration with condense config validate"
	case errors.Is(err, services.ErrData):
		return "inspect the input transcript"
	default:
		return "check file permissions and free space"
	}
}

// Run summarizes input into output. The output file is written only when both
// passes succeed; the scratch workspace is removed in every case.
func (o *Orchestrator) Run(ctx context.Context, input, output string) (report Report, err error) {
	started := time.Now()
	report = Report{Input: input, Output: output}

	r := &run{ctx: ctx, machine: NewMachine(), logger: o.logger}
	defer func() {
		report.States = r.machine.History()
		report.Duration = time.Since(started)
	}()

	if strings.TrimSpace(output) == "" {
		return report, r.fail(StateStart, services.Wrap(services.ErrConfig, "pipeline", "validate", "output path is required", nil))
	}
	if err := o.opts.FirstPass.Validate(); err != nil {
		return report, r.fail(StateStart, err)
	}

	ws, err := Acquire(ctx, o.opts.ScratchDir, input, o.opts.StaleScratchAge, o.logger)
	if err != nil {
		return report, r.fail(StateStart, err)
	}
	defer func() {
		if releaseErr := ws.Release(); releaseErr != nil && err == nil {
			err = services.Wrap(services.ErrIO, "pipeline", "release scratch", ws.Dir, releaseErr)
		}
	}()

	report.RunID = ws.RunID
	r.ctx = services.WithRunID(ctx, ws.RunID)
	r.logger = logging.NewComponentLogger(o.logger, "pipeline")
	logging.WithContext(r.ctx, r.logger).Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("input", input),
		logging.String("output", output),
		logging.String("scratch", ws.Dir),
	)

	first, err := ws.Pass(1)
	if err != nil {
		return report, r.fail(StateStart, err)
	}
	final, err := ws.Pass(2)
	if err != nil {
		return report, r.fail(StateStart, err)
	}

	if err := r.step(StateStage1Split, func(context.Context) error {
		document, err := o.loadDocument(input)
		if err != nil {
			return err
		}
		report.InputWords = chunk.WordCount(document)
		paths, err := chunk.Split(document, o.opts.FirstPass, first.SplitDir)
		if err != nil {
			return err
		}
		report.FirstChunks = len(paths)
		return nil
	}); err != nil {
		return report, err
	}

	if err := r.step(StateStage1Infer, func(ctx context.Context) error {
		_, err := o.runner().Run(ctx, first.SplitDir, first.Results)
		return err
	}); err != nil {
		return report, err
	}

	if err := r.step(StateStage1Merge, func(context.Context) error {
		return merge.Merge(first.Results, first.Merged, merge.Options{Separator: o.opts.Separator})
	}); err != nil {
		return report, err
	}

	if err := r.step(StateStage2Split, func(context.Context) error {
		data, err := os.ReadFile(first.Merged)
		if err != nil {
			return services.Wrap(services.ErrIO, "pipeline", "read merged", first.Merged, err)
		}
		report.MergedWords = chunk.WordCount(string(data))
		_, err = chunk.Split(string(data), o.opts.FinalPass, final.SplitDir)
		return err
	}); err != nil {
		return report, err
	}

	if err := r.step(StateStage2Infer, func(ctx context.Context) error {
		_, err := o.runner().Run(ctx, final.SplitDir, final.Results)
		return err
	}); err != nil {
		return report, err
	}

	if err := r.step(StateStage2Merge, func(context.Context) error {
		if err := merge.Merge(final.Results, output, merge.Options{Separator: o.opts.Separator}); err != nil {
			return err
		}
		if data, err := os.ReadFile(output); err == nil {
			report.OutputWords = chunk.WordCount(string(data))
		}
		return nil
	}); err != nil {
		return report, err
	}

	if err := r.machine.Transition(StateDone); err != nil {
		return report, err
	}
	logging.WithContext(r.ctx, r.logger).Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", output),
		logging.Int("input_words", report.InputWords),
		logging.Int("first_pass_chunks", report.FirstChunks),
		logging.Int("output_words", report.OutputWords),
		logging.Duration("run_duration", time.Since(started)),
	)
	return report, nil
}

func (o *Orchestrator) runner() *inference.Runner {
	opts := []inference.Option{inference.WithLogger(o.logger)}
	if o.reporter != nil {
		opts = append(opts, inference.WithReporter(o.reporter))
	}
	return inference.NewRunner(o.generator, opts...)
}

func (o *Orchestrator) loadDocument(input string) (string, error) {
	text, err := transcript.ExtractFile(input)
	if err != nil {
		return "", err
	}
	if o.opts.Normalize {
		text = transcript.Normalize(text)
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrData, "pipeline", "load transcript", fmt.Sprintf("%s is empty", input), nil)
	}
	return text, nil
}
