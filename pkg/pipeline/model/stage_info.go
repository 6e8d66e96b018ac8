package model

import "time"

type stageType string

const (
	IntakeStageType stageType = "intake"
	WorkerStageType stageType = "worker"
	SinkStageType   stageType = "sink"
)

// StageInfo describes a stage as seen by pipeline options.
type StageInfo struct {
	Type       stageType
	Name       string
	Index      int
	Concurrent int
	Capacity   int
}

// StageOutput is reported every time a stage hands an item on.
type StageOutput struct {
	ItemID int
	// Iteration covers waiting for the item, processing it and handing it over.
	Iteration time.Duration
	// Computation is the simulated service time only.
	Computation time.Duration
	// Backlog is the length of the output channel right after the hand-off.
	Backlog int
}

var (
	StartStage = &StageInfo{Type: IntakeStageType, Name: "start", Index: -1, Concurrent: 1}
	EndStage   = &StageInfo{Type: SinkStageType, Name: "end", Concurrent: 1}
)
