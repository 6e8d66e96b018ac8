// Package model provides the data structures shared by the pipeline package and its options.
// It defines the stage descriptions handed to pipeline options and the hooks an option
// implements to observe a run.
package model
