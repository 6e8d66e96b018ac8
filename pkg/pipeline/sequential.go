package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

// SequentialRunner applies every stage to one item before starting the next
// one, on the calling goroutine. It is the baseline the pipeline is compared to.
type SequentialRunner struct {
	stages []Stage
	infos  []*model.StageInfo
	opts   *settings
}

// NewSequentialRunner creates a runner over the ordered stages.
func NewSequentialRunner(stages []Stage, opts ...Option) (*SequentialRunner, error) {
	err := validateStages(stages)
	if err != nil {
		return nil, err
	}

	runner := &SequentialRunner{
		stages: append([]Stage(nil), stages...),
		opts:   defaultSettings(),
	}
	for _, opt := range opts {
		opt(runner.opts)
	}

	runner.infos = make([]*model.StageInfo, len(stages))
	for i, s := range runner.stages {
		runner.infos[i] = &model.StageInfo{
			Type:       model.WorkerStageType,
			Name:       s.Name,
			Index:      i,
			Concurrent: 1,
		}
	}

	err = prepareHooks(runner.opts.hooks, runner.infos)
	if err != nil {
		return nil, err
	}

	return runner, nil
}

// WorkerCount is always 1.
func (r *SequentialRunner) WorkerCount() int { return 1 }

// Run processes items in order. A stage fault stops the run: the faulted item
// is reported lost and the remaining ones aborted.
func (r *SequentialRunner) Run(ctx context.Context, items []*WorkItem) (*RunRecord, error) {
	record := &RunRecord{
		ID:        uuid.New(),
		Mode:      ModeSequential,
		ItemCount: len(items),
	}
	done := newCompletionLog(len(items))
	limiter := r.opts.limiter()
	logger := r.opts.logger.With(zap.Stringer("run", record.ID), zap.String("mode", string(ModeSequential)))

	record.StartedAt = time.Now()
	runErr := r.process(ctx, items, done, limiter, logger)
	record.FinishedAt = time.Now()

	return finishRun(logger, r.opts.hooks, r.infos[len(r.infos)-1], record, done, items, runErr)
}

func (r *SequentialRunner) process(ctx context.Context, items []*WorkItem, done *completionLog,
	limiter *rate.Limiter, logger *zap.Logger,
) error {
	for _, item := range items {
		if limiter != nil {
			err := limiter.Wait(ctx)
			if err != nil {
				return errors.Wrapf(err, "unable to wait for item %d arrival", item.ID)
			}
		}
		for i, stage := range r.stages {
			start := time.Now()
			err := stage.Process(ctx, item)
			if err != nil {
				if ctx.Err() != nil {
					return errors.Wrapf(err, "%s: item %d", stage.Name, item.ID)
				}
				lost := &ItemLostError{ItemID: item.ID, Stage: stage.Name, Err: err}
				done.fail(newFailure(item.ID, stage.Name, lost))

				return errors.Wrap(lost, stage.Name)
			}
			elapsed := time.Since(start)

			logger.Debug("item processed",
				zap.String("stage", stage.Name),
				zap.Int("item", item.ID),
				zap.String("kind", item.Kind),
				zap.Duration("service", elapsed),
			)

			parent := model.StartStage
			if i > 0 {
				parent = r.infos[i-1]
			}
			for _, opt := range r.opts.hooks {
				err := opt.OnStageOutput(parent, r.infos[i], model.StageOutput{
					ItemID:      item.ID,
					Iteration:   elapsed,
					Computation: elapsed,
				})
				if err != nil {
					return errors.Wrap(err, "unable to run on stage output function")
				}
			}
		}
		done.add(item, item.Stamps[len(item.Stamps)-1].At)
	}

	return nil
}
