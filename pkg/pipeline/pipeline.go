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

// Pipeline runs every stage as its own worker, connected by bounded channels.
type Pipeline struct {
	stages   []Stage
	infos    []*model.StageInfo
	capacity int
	opts     *settings
}

// New creates a pipeline over the ordered stages. capacity bounds every
// hand-off channel between two adjacent stages.
func New(stages []Stage, capacity int, opts ...Option) (*Pipeline, error) {
	err := validateStages(stages)
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d", capacity)
	}

	pipe := &Pipeline{
		stages:   append([]Stage(nil), stages...),
		capacity: capacity,
		opts:     defaultSettings(),
	}
	for _, opt := range opts {
		opt(pipe.opts)
	}
	if pipe.opts.concurrent <= 0 {
		return nil, errors.Wrapf(ErrInvalidConcurrency, "got %d", pipe.opts.concurrent)
	}
	if pipe.opts.intakeLimit < 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "intake got %d", pipe.opts.intakeLimit)
	}
	if pipe.opts.intakeLimit == 0 {
		pipe.opts.intakeLimit = capacity
	}

	pipe.infos = make([]*model.StageInfo, len(stages))
	for i, s := range pipe.stages {
		info := &model.StageInfo{
			Type:       model.WorkerStageType,
			Name:       s.Name,
			Index:      i,
			Concurrent: pipe.opts.concurrent,
			Capacity:   capacity,
		}
		if i == 0 {
			info.Capacity = pipe.opts.intakeLimit
		}
		pipe.infos[i] = info
	}

	err = prepareHooks(pipe.opts.hooks, pipe.infos)
	if err != nil {
		return nil, err
	}

	return pipe, nil
}

// WorkerCount is the number of workers a run starts.
func (p *Pipeline) WorkerCount() int {
	return len(p.stages) * p.opts.concurrent
}

// Stages returns a copy of the stages.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// waitForPipeline drains every error channel. The first error cancels the
// run and is returned once all workers are gone.
func waitForPipeline(cancel context.CancelFunc, errs ...*errorChan) error {
	var first error
	for err := range mergeErrors(errs...) {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}

	return first
}

// Run feeds items to the first stage and blocks until the last stage has
// drained or the run failed. The record is returned in both cases: every
// item is either completed or listed as a failure.
func (p *Pipeline) Run(ctx context.Context, items []*WorkItem) (*RunRecord, error) {
	dCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	channels := make([]*BoundedChannel[*WorkItem], len(p.stages))
	for i, info := range p.infos {
		ch, err := NewBoundedChannel[*WorkItem](info.Capacity)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create input of stage %s", info.Name)
		}
		channels[i] = ch
	}

	record := &RunRecord{
		ID:        uuid.New(),
		Mode:      ModePipeline,
		ItemCount: len(items),
	}
	done := newCompletionLog(len(items))
	errcList := &errorChans{}
	logger := p.opts.logger.With(zap.Stringer("run", record.ID), zap.String("mode", string(ModePipeline)))

	record.StartedAt = time.Now()
	for i := range p.stages {
		errC := make(chan error, 1)
		errcList.add(newErrorChan(p.stages[i].Name, errC))
		workers := p.workers(i, channels, done, logger)
		go func() {
			defer func() {
				// Nothing will ever be put on the next channel again.
				if i+1 < len(channels) {
					channels[i+1].Close()
				}
				close(errC)
			}()
			err := runStage(dCtx, workers)
			if err != nil {
				errC <- err
			}
		}()
	}

	errC := make(chan error, 1)
	errcList.add(newErrorChan(model.StartStage.Name, errC))
	go func() {
		defer func() {
			channels[0].Close()
			close(errC)
		}()
		err := feed(dCtx, channels[0], items, p.opts.limiter())
		if err != nil {
			errC <- err
		}
	}()

	runErr := waitForPipeline(cancel, errcList.list...)
	record.FinishedAt = time.Now()
	for i, ch := range channels {
		record.Channels = append(record.Channels, ChannelStat{
			Stage:     p.stages[i].Name,
			Capacity:  ch.Cap(),
			HighWater: ch.HighWater(),
		})
	}

	return finishRun(logger, p.opts.hooks, p.infos[len(p.infos)-1], record, done, items, runErr)
}

func (p *Pipeline) workers(idx int, channels []*BoundedChannel[*WorkItem], done *completionLog, logger *zap.Logger) []*worker {
	parent := model.StartStage
	if idx > 0 {
		parent = p.infos[idx-1]
	}
	var output *BoundedChannel[*WorkItem]
	if idx+1 < len(channels) {
		output = channels[idx+1]
	}

	workers := make([]*worker, p.opts.concurrent)
	for goIdx := range workers {
		workers[goIdx] = &worker{
			goIdx:  goIdx,
			stage:  p.stages[idx],
			parent: parent,
			info:   p.infos[idx],
			input:  channels[idx],
			output: output,
			done:   done,
			hooks:  p.opts.hooks,
			logger: logger,
		}
	}

	return workers
}

// feed puts the workload on the intake channel, in order.
func feed(ctx context.Context, intake *BoundedChannel[*WorkItem], items []*WorkItem, limiter *rate.Limiter) error {
	for _, item := range items {
		if limiter != nil {
			err := limiter.Wait(ctx)
			if err != nil {
				return errors.Wrapf(err, "unable to wait for item %d arrival", item.ID)
			}
		}
		err := intake.Put(ctx, item)
		if err != nil {
			return errors.Wrapf(err, "unable to feed item %d", item.ID)
		}
	}

	return nil
}

func prepareHooks(hooks []model.PipelineOption, infos []*model.StageInfo) error {
	for _, opt := range hooks {
		err := opt.New()
		if err != nil {
			return errors.Wrap(err, "unable to apply pipeline option")
		}
	}
	for i, info := range infos {
		parent := model.StartStage
		if i > 0 {
			parent = infos[i-1]
		}
		for _, opt := range hooks {
			err := opt.PrepareStage(parent, info)
			if err != nil {
				return errors.Wrap(err, "unable to run prepare stage function")
			}
		}
	}

	return nil
}

// finishRun closes a run for both runners: hooks are notified and every
// submitted item is accounted for.
func finishRun(logger *zap.Logger, hooks []model.PipelineOption, last *model.StageInfo, record *RunRecord,
	done *completionLog, items []*WorkItem, runErr error,
) (*RunRecord, error) {
	for _, opt := range hooks {
		err := opt.AfterRun(last, record.Duration())
		if err != nil && runErr == nil {
			runErr = errors.Wrap(err, "unable to run after run function")
		}
	}
	for _, opt := range hooks {
		err := opt.Finish()
		if err != nil && runErr == nil {
			runErr = errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	err := done.reconcile(record, items, ErrRunAborted)
	if err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		logger.Error("run failed",
			zap.Int("completed", record.CompletedCount()),
			zap.Int("failed", len(record.Failures)),
			zap.Error(runErr),
		)

		return record, runErr
	}
	logger.Info("run completed",
		zap.Int("items", record.ItemCount),
		zap.Duration("duration", record.Duration()),
		zap.Float64("throughput", record.Throughput()),
	)

	return record, nil
}
