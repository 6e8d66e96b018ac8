package pipeline

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

type settings struct {
	logger      *zap.Logger
	concurrent  int
	arrival     rate.Limit
	burst       int
	hooks       []model.PipelineOption
	intakeLimit int
}

func defaultSettings() *settings {
	return &settings{
		logger:     zap.NewNop(),
		concurrent: 1,
		arrival:    rate.Inf,
		burst:      1,
	}
}

// Option configures a Pipeline or a SequentialRunner.
type Option func(s *settings)

// WithLogger sets the logger. Per item events are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency runs n workers per stage, all sharing the stage input.
// Items may then leave a stage out of order. Ignored by the sequential runner.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		s.concurrent = n
	}
}

// WithArrivalRate paces the workload: at most limit items per second enter
// the first stage, with the given burst. rate.Inf disables pacing.
func WithArrivalRate(limit rate.Limit, burst int) Option {
	return func(s *settings) {
		s.arrival = limit
		if burst > 0 {
			s.burst = burst
		}
	}
}

// WithHooks registers pipeline options observing the run.
func WithHooks(hooks ...model.PipelineOption) Option {
	return func(s *settings) {
		s.hooks = append(s.hooks, hooks...)
	}
}

// WithIntakeCapacity sets the capacity of the channel feeding the first
// stage. It defaults to the hand-off capacity.
func WithIntakeCapacity(capacity int) Option {
	return func(s *settings) {
		s.intakeLimit = capacity
	}
}

func (s *settings) limiter() *rate.Limiter {
	if s.arrival == rate.Inf {
		return nil
	}

	return rate.NewLimiter(s.arrival, s.burst)
}
