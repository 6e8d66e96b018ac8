package model

import "time"

// PipelineOption defines the interface for pipeline options.
// Both the pipelined and the sequential runner drive these hooks.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStageOption

	// Finish runs after every run, successful or not.
	Finish() error
}

// pipelineStageOption defines the interface for stage options at the pipeline level.
type pipelineStageOption interface {
	// PrepareStage runs once per stage, in stage order, when the runner is built.
	PrepareStage(parentStage, stage *StageInfo) error
	// OnStageOutput runs everytime a stage hands an item to the next one.
	OnStageOutput(parentStage, stage *StageInfo, out StageOutput) error
	// AfterRun runs once the last stage has drained.
	AfterRun(stage *StageInfo, totalDuration time.Duration) error
}
