package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

// worker is bound to one stage for the duration of a run.
type worker struct {
	goIdx  int
	stage  Stage
	parent *model.StageInfo
	info   *model.StageInfo
	input  *BoundedChannel[*WorkItem]
	// output is nil for the last stage: completed items go to done.
	output *BoundedChannel[*WorkItem]
	done   *completionLog
	hooks  []model.PipelineOption
	logger *zap.Logger
}

// run processes items until the input reports the end of the stream.
// Closing the output is left to the caller, once every worker of the stage
// has returned.
func (w *worker) run(ctx context.Context) error {
	for {
		startIter := time.Now()
		item, ok, err := w.input.Get(ctx)
		if err != nil {
			return errors.Wrapf(err, "go routine %d", w.goIdx)
		}
		if !ok {
			return nil
		}

		startFn := time.Now()
		err = w.stage.Process(ctx, item)
		if err != nil {
			return w.lost(ctx, item, err)
		}
		computation := time.Since(startFn)

		out := model.StageOutput{ItemID: item.ID, Computation: computation}
		if w.output != nil {
			err = w.output.Put(ctx, item)
			if err != nil {
				return w.lost(ctx, item, err)
			}
			out.Backlog = w.output.Len()
		} else {
			w.done.add(item, item.Stamps[len(item.Stamps)-1].At)
		}
		out.Iteration = time.Since(startIter)

		w.logger.Debug("item processed",
			zap.String("stage", w.stage.Name),
			zap.Int("item", item.ID),
			zap.String("kind", item.Kind),
			zap.Duration("service", computation),
			zap.Int("backlog", out.Backlog),
		)

		for _, opt := range w.hooks {
			err := opt.OnStageOutput(w.parent, w.info, out)
			if err != nil {
				return errors.Wrap(err, "unable to run on stage output function")
			}
		}
	}
}

// lost reports the item held by the worker. An item dropped because the run
// is being cancelled is not a fault of this stage: reconciliation reports it
// as aborted.
func (w *worker) lost(ctx context.Context, item *WorkItem, err error) error {
	if ctx.Err() != nil {
		return errors.Wrapf(err, "go routine %d: item %d", w.goIdx, item.ID)
	}
	lost := &ItemLostError{ItemID: item.ID, Stage: w.stage.Name, Err: err}
	w.done.fail(newFailure(item.ID, w.stage.Name, lost))
	w.logger.Error("item lost",
		zap.String("stage", w.stage.Name),
		zap.Int("item", item.ID),
		zap.Error(err),
	)

	return lost
}

// runStage runs every worker of a stage and returns once all of them are done.
func runStage(ctx context.Context, workers []*worker) error {
	if len(workers) == 1 {
		return workers[0].run(ctx)
	}
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(len(workers))
	for _, w := range workers {
		errGrp.Go(func() error {
			return w.run(dCtx)
		})
	}

	return errGrp.Wait()
}
