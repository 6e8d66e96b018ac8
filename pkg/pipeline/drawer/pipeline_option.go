package drawer

import (
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline/measure"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m measure.Measure
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStep(model.StartStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}
	err = pd.AddStep(model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStage(parentStage, stage *model.StageInfo) error {
	err := pd.AddStep(stage.Name)
	if err != nil {
		return err
	}

	return pd.AddLink(parentStage.Name, stage.Name)
}

func (pd *pipelineDrawer) OnStageOutput(_, _ *model.StageInfo, _ model.StageOutput) error {
	return nil
}

func (pd *pipelineDrawer) AfterRun(stage *model.StageInfo, totalDuration time.Duration) error {
	err := pd.AddLink(stage.Name, model.EndStage.Name)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}

	return pd.SetTotalTime(model.EndStage.Name, totalDuration)
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the stages once a run finishes. When measure is not
// nil, the drawing is annotated with the measured durations.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{drawer, measure}
}
