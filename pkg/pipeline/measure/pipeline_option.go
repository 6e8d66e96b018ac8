package measure

import (
	"time"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStage.Name, 1)
	pm.AddMetric(model.EndStage.Name, 1)

	return nil
}

func (pm *pipelineMeasure) PrepareStage(_, stage *model.StageInfo) error {
	pm.AddMetric(stage.Name, stage.Concurrent)

	return nil
}

func (pm *pipelineMeasure) OnStageOutput(parentStage, stage *model.StageInfo, out model.StageOutput) error {
	mt := pm.GetMetric(stage.Name)
	if mt == nil {
		mt = pm.AddMetric(stage.Name, stage.Concurrent)
	}
	mt.AddDuration(out.Computation)
	mt.AddTransportDuration(parentStage.Name, out.Iteration-out.Computation)
	mt.AddBacklog(out.Backlog)

	return nil
}

func (pm *pipelineMeasure) AfterRun(stage *model.StageInfo, totalDuration time.Duration) error {
	pm.GetMetric(model.EndStage.Name).SetTotalDuration(totalDuration)
	if mt := pm.GetMetric(stage.Name); mt != nil {
		mt.SetTotalDuration(totalDuration)
	}

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

// PipelineMeasure records every stage output into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}
