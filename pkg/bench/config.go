package bench

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

// Config is everything a benchmark depends on.
type Config struct {
	Items       int
	Repetitions int
	Capacity    int
	Seed        int64
	Stages      []pipeline.Stage
	// Concurrency is the number of workers per stage in pipelined trials.
	Concurrency int
	// ArrivalRate paces the workload in both modes, in items per second.
	// Zero disables pacing.
	ArrivalRate float64
}

func (c Config) validate() error {
	switch {
	case c.Items <= 0:
		return errors.Wrapf(ErrInvalidConfig, "items must be greater than 0, got %d", c.Items)
	case c.Repetitions <= 0:
		return errors.Wrapf(ErrInvalidConfig, "repetitions must be greater than 0, got %d", c.Repetitions)
	case c.Capacity <= 0:
		return errors.Wrapf(pipeline.ErrInvalidCapacity, "got %d", c.Capacity)
	case c.Concurrency < 0:
		return errors.Wrapf(pipeline.ErrInvalidConcurrency, "got %d", c.Concurrency)
	case c.ArrivalRate < 0:
		return errors.Wrapf(ErrInvalidConfig, "arrival rate must not be negative, got %f", c.ArrivalRate)
	}

	return nil
}

func (c Config) runnerOptions(logger *zap.Logger) []pipeline.Option {
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if c.ArrivalRate > 0 {
		opts = append(opts, pipeline.WithArrivalRate(rate.Limit(c.ArrivalRate), 1))
	}

	return opts
}

// Option configures a Harness.
type Option func(h *Harness)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHooks sets the pipeline options attached to each trial. hooks is called
// once per trial and mode, and may return nil.
func WithHooks(hooks func(trial int, mode pipeline.Mode) []model.PipelineOption) Option {
	return func(h *Harness) {
		h.hooks = hooks
	}
}

// WithTrialObserver registers a function called after every trial.
func WithTrialObserver(observe func(Trial)) Option {
	return func(h *Harness) {
		h.observers = append(h.observers, observe)
	}
}
