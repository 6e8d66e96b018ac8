// Package workload generates the dishes fed to the runners and the four dishwashing
// stages they go through: pre-rinse, wash, dry and store.
//
// Generation is deterministic for a given seed, so that a sequential and a pipelined trial
// built from the same generator process items of identical kinds and costs.
package workload
