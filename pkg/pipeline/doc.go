// Package pipeline runs simulated work items through an ordered list of stages, either
// pipelined or sequentially, and records how long it took.
//
// In pipelined mode every stage is served by its own worker goroutine. Adjacent stages are
// connected by a BoundedChannel: a fixed-capacity FIFO that blocks a fast producer while its
// consumer lags behind, so the whole pipeline settles at the pace of its slowest stage.
//
// Termination cascades through the channels. Once the workload has been fed, the intake
// channel is closed. A worker that finds its input closed and drained exits, and the stage
// closes its own output once all of its workers are gone, so every downstream worker
// eventually sees the end of the stream. The last stage records completions instead of
// forwarding items.
//
// A stage that faults while holding an item reports it lost and the run is cancelled. The
// returned RunRecord always accounts for every submitted item: it is either completed or
// listed as a failure.
//
// The SequentialRunner applies every stage to one item before starting the next one and is
// the baseline the pipeline is measured against.
package pipeline
