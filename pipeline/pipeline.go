// Package pipeline simulates the post-intake processing chain a document
// passes through: scanning, OCR, conversion, indexing. Stages are timed
// placeholders for the real work, so the package is useful for exercising
// intake flows, demos, and load tests without heavy document tooling.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

// Status is a document's lifecycle status.
type Status string

const (
	// StatusUploaded means the document is staged and awaiting processing.
	StatusUploaded Status = "uploaded"

	// StatusProcessing means the pipeline is currently running.
	StatusProcessing Status = "processing"

	// StatusReady means every stage completed and the document is archived.
	StatusReady Status = "ready"

	// StatusFailed means a stage failed or the run was cancelled.
	StatusFailed Status = "failed"
)

// Stage is one step of the pipeline. Delay is how long the stage takes;
// Jitter, when positive, adds a uniformly random extra delay in [0, Jitter).
type Stage struct {
	Name   string
	Delay  time.Duration
	Jitter time.Duration
}

// StageResult reports one executed stage. Err is non-nil when the stage
// failed and terminated the run.
type StageResult struct {
	Stage    string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// DefaultStages returns the standard document processing chain.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "scan", Delay: 200 * time.Millisecond, Jitter: 50 * time.Millisecond},
		{Name: "ocr", Delay: 400 * time.Millisecond, Jitter: 100 * time.Millisecond},
		{Name: "convert", Delay: 500 * time.Millisecond, Jitter: 100 * time.Millisecond},
		{Name: "index", Delay: 100 * time.Millisecond, Jitter: 25 * time.Millisecond},
	}
}

// ParseStages parses a stage list of the form "scan:200ms,convert:500ms".
// Each entry is name:duration; whitespace around entries is ignored. An
// empty input returns nil stages, letting callers fall back to defaults.
func ParseStages(s string) ([]Stage, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	stages := make([]Stage, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, delay, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid stage %q: want name:duration", part)
		}

		d, err := time.ParseDuration(strings.TrimSpace(delay))
		if err != nil {
			return nil, fmt.Errorf("invalid stage %q: %w", part, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid stage %q: negative duration", part)
		}

		stages = append(stages, Stage{Name: name, Delay: d})
	}

	if len(stages) == 0 {
		return nil, nil
	}
	return stages, nil
}

// Runner executes a fixed stage sequence per document. It is immutable
// after construction and safe for concurrent use; runs are independent.
type Runner struct {
	stages  []Stage
	logger  *slog.Logger
	metrics *Metrics
	failure func(stage string) error
}

// RunnerOption is a functional option for configuring a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger for stage transitions. Defaults to a
// discarding logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMetrics attaches a metrics collector to the runner.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithFailure installs a failure injector. It is consulted after each
// stage's simulated work; a non-nil return fails that stage and ends the
// run. Useful for tests and demos.
func WithFailure(failure func(stage string) error) RunnerOption {
	return func(r *Runner) {
		r.failure = failure
	}
}

// NewRunner creates a runner for the given stages. An empty stage list
// selects DefaultStages.
func NewRunner(stages []Stage, opts ...RunnerOption) *Runner {
	r := &Runner{stages: stages}
	if len(r.stages) == 0 {
		r.stages = DefaultStages()
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Stages returns a copy of the runner's stage sequence.
func (r *Runner) Stages() []Stage {
	stages := make([]Stage, len(r.stages))
	copy(stages, r.stages)
	return stages
}

// Run executes every stage in order and returns the per-stage results. A
// nil error means all stages completed (the document is ready); a non-nil
// error names the failed stage and wraps its cause, including
// context.Canceled when the run was cancelled mid-stage. The failing
// stage's result carries the same error.
func (r *Runner) Run(ctx context.Context, jobID, name string) ([]StageResult, error) {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.StartJob()
	}

	r.logger.Info("processing started",
		"job_id", jobID,
		"name", name,
		"stages", len(r.stages),
	)

	results := make([]StageResult, 0, len(r.stages))
	for _, stage := range r.stages {
		res := StageResult{Stage: stage.Name, Started: time.Now().UTC()}
		err := r.runStage(ctx, stage)
		res.Duration = time.Since(res.Started)
		res.Err = err
		results = append(results, res)

		if r.metrics != nil {
			r.metrics.ObserveStage(stage.Name, res.Duration)
		}

		if err != nil {
			r.logger.Error("stage failed",
				"job_id", jobID,
				"stage", stage.Name,
				"error", err,
			)
			if r.metrics != nil {
				r.metrics.FinishJob(StatusFailed, time.Since(start))
			}
			return results, fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		r.logger.Info("stage completed",
			"job_id", jobID,
			"stage", stage.Name,
			"duration", res.Duration,
		)
	}

	r.logger.Info("processing completed",
		"job_id", jobID,
		"name", name,
		"duration", time.Since(start),
	)
	if r.metrics != nil {
		r.metrics.FinishJob(StatusReady, time.Since(start))
	}
	return results, nil
}

// runStage waits out the stage's delay, honoring cancellation, then
// consults the failure injector.
func (r *Runner) runStage(ctx context.Context, stage Stage) error {
	delay := stage.Delay
	if stage.Jitter > 0 {
		delay += rand.N(stage.Jitter)
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if r.failure != nil {
		if err := r.failure(stage.Name); err != nil {
			return err
		}
	}
	return nil
}
