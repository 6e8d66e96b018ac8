// Package bench compares the sequential runner with the pipeline.
//
// A Harness runs both modes Repetitions times over a freshly generated, seeded workload
// and derives average durations, speedup and efficiency from the successful trials. Paired
// trials must complete the same number of items: a mismatch means an item was lost or
// duplicated and fails the whole benchmark.
package bench
