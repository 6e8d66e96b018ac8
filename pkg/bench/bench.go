package bench

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/dishwash-pipeline/internal/bottleneck"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
	"github.com/askiada/dishwash-pipeline/pkg/workload"
)

type runner interface {
	Run(ctx context.Context, items []*pipeline.WorkItem) (*pipeline.RunRecord, error)
}

// Trial is the outcome of one run of one mode.
type Trial struct {
	Index     int           `json:"index" yaml:"index"`
	Mode      pipeline.Mode `json:"mode" yaml:"mode"`
	RunID     string        `json:"run_id" yaml:"run_id"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	ItemCount int           `json:"item_count" yaml:"item_count"`
	Completed int           `json:"completed" yaml:"completed"`
	Failed    int           `json:"failed" yaml:"failed"`
	Err       error         `json:"-" yaml:"-"`
	Reason    string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Harness runs paired sequential and pipelined trials.
type Harness struct {
	cfg       Config
	logger    *zap.Logger
	hooks     func(trial int, mode pipeline.Mode) []model.PipelineOption
	observers []func(Trial)
	newRunner func(mode pipeline.Mode, opts []pipeline.Option) (runner, error)
}

// New validates cfg and creates a harness.
func New(cfg Config, opts ...Option) (*Harness, error) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}
	err := cfg.validate()
	if err != nil {
		return nil, err
	}
	// Fail early on stages a runner would reject.
	_, err = pipeline.New(cfg.Stages, cfg.Capacity, pipeline.WithConcurrency(cfg.Concurrency))
	if err != nil {
		return nil, errors.Wrap(err, "invalid pipeline")
	}

	h := &Harness{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.newRunner = h.defaultRunner

	return h, nil
}

func (h *Harness) defaultRunner(mode pipeline.Mode, opts []pipeline.Option) (runner, error) {
	if mode == pipeline.ModeSequential {
		return pipeline.NewSequentialRunner(h.cfg.Stages, opts...)
	}
	opts = append(opts, pipeline.WithConcurrency(h.cfg.Concurrency))

	return pipeline.New(h.cfg.Stages, h.cfg.Capacity, opts...)
}

// WorkerCount is the number of workers of a pipelined trial.
func (h *Harness) WorkerCount() int {
	return len(h.cfg.Stages) * h.cfg.Concurrency
}

// Run executes every trial and summarises the successful ones. It fails on
// a workload mismatch, on cancellation, or when a mode has no successful
// trial at all.
func (h *Harness) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		ID:          uuid.New().String(),
		ItemCount:   h.cfg.Items,
		TrialCount:  h.cfg.Repetitions,
		WorkerCount: h.WorkerCount(),
	}

	prediction, err := bottleneck.Analyze(h.cfg.Stages, h.cfg.Items, h.cfg.Concurrency)
	if err != nil {
		h.logger.Warn("unable to predict pipeline behaviour", zap.Error(err))
	}
	summary.Prediction = prediction

	var seqDurations, parDurations []time.Duration
	for idx := 0; idx < h.cfg.Repetitions; idx++ {
		seq, err := h.runTrial(ctx, idx, pipeline.ModeSequential)
		if err != nil {
			return nil, err
		}
		par, err := h.runTrial(ctx, idx, pipeline.ModePipeline)
		if err != nil {
			return nil, err
		}

		for _, trial := range []Trial{seq, par} {
			summary.Trials = append(summary.Trials, trial)
			if trial.Err != nil {
				summary.Failures = append(summary.Failures, trial)
			}
		}

		if seq.Err == nil && par.Err == nil && seq.Completed != par.Completed {
			mismatch := &WorkloadMismatchError{Trial: idx, Sequential: seq.Completed, Pipelined: par.Completed}
			h.logger.Error("workload mismatch", zap.Error(mismatch))

			return nil, mismatch
		}
		if seq.Err == nil {
			seqDurations = append(seqDurations, seq.Duration)
		}
		if par.Err == nil {
			parDurations = append(parDurations, par.Duration)
		}
	}

	if len(seqDurations) == 0 {
		return nil, errors.Wrap(ErrNoSuccessfulTrials, string(pipeline.ModeSequential))
	}
	if len(parDurations) == 0 {
		return nil, errors.Wrap(ErrNoSuccessfulTrials, string(pipeline.ModePipeline))
	}

	summary.SequentialDurations = seqDurations
	summary.PipelinedDurations = parDurations
	summary.Sequential = computeStats(seqDurations, h.cfg.Items)
	summary.Pipelined = computeStats(parDurations, h.cfg.Items)
	summary.AverageDurationSeq = summary.Sequential.Mean
	summary.AverageDurationPar = summary.Pipelined.Mean
	summary.Speedup, summary.Efficiency = speedup(summary.AverageDurationSeq, summary.AverageDurationPar, summary.WorkerCount)

	h.logger.Info("benchmark completed",
		zap.Duration("avg_sequential", summary.AverageDurationSeq),
		zap.Duration("avg_pipeline", summary.AverageDurationPar),
		zap.Float64("speedup", summary.Speedup),
		zap.Float64("efficiency", summary.Efficiency),
		zap.Int("failed_trials", len(summary.Failures)),
	)

	return summary, nil
}

// runTrial runs one mode over a fresh workload. A failed run is reported in
// the trial; the returned error is reserved for conditions that end the
// benchmark.
func (h *Harness) runTrial(ctx context.Context, idx int, mode pipeline.Mode) (Trial, error) {
	trial := Trial{Index: idx, Mode: mode, ItemCount: h.cfg.Items}

	items, err := workload.Generator{Seed: h.cfg.Seed, Count: h.cfg.Items}.Generate()
	if err != nil {
		return trial, errors.Wrap(err, "unable to generate workload")
	}

	opts := h.cfg.runnerOptions(h.logger)
	if h.hooks != nil {
		if hooks := h.hooks(idx, mode); len(hooks) > 0 {
			opts = append(opts, pipeline.WithHooks(hooks...))
		}
	}
	run, err := h.newRunner(mode, opts)
	if err != nil {
		return trial, errors.Wrapf(err, "unable to create %s runner", mode)
	}

	record, runErr := run.Run(ctx, items)
	if record != nil {
		trial.RunID = record.ID.String()
		trial.Duration = record.Duration()
		trial.Completed = record.CompletedCount()
		trial.Failed = len(record.Failures)
	}
	if runErr != nil {
		trial.Err = &TrialError{Trial: idx, Mode: mode, Err: runErr}
		trial.Reason = trial.Err.Error()
		h.logger.Error("trial failed",
			zap.Int("trial", idx),
			zap.String("mode", string(mode)),
			zap.Error(runErr),
		)
	} else {
		h.logger.Info("trial completed",
			zap.Int("trial", idx),
			zap.String("mode", string(mode)),
			zap.Duration("duration", trial.Duration),
			zap.Int("completed", trial.Completed),
		)
	}

	for _, observe := range h.observers {
		observe(trial)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return trial, errors.Wrapf(ctxErr, "benchmark interrupted at trial %d (%s)", idx, mode)
	}

	return trial, nil
}
