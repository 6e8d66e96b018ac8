package bench

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
)

var (
	ErrWorkloadMismatch   = errors.New("paired trials completed a different number of items")
	ErrNoSuccessfulTrials = errors.New("no successful trial")
	ErrInvalidConfig      = errors.New("invalid benchmark configuration")
)

// WorkloadMismatchError reports a pair of trials that disagree on the number
// of completed items.
type WorkloadMismatchError struct {
	Trial      int
	Sequential int
	Pipelined  int
}

func (e *WorkloadMismatchError) Error() string {
	return fmt.Sprintf("trial %d: sequential completed %d items, pipeline completed %d",
		e.Trial, e.Sequential, e.Pipelined)
}

func (e *WorkloadMismatchError) Is(target error) bool { return target == ErrWorkloadMismatch }

// TrialError is a failed trial.
type TrialError struct {
	Trial int
	Mode  pipeline.Mode
	Err   error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d (%s): %v", e.Trial, e.Mode, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }
