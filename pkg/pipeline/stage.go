package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

// Cost gives the simulated service time of a stage for an item.
// Implementations must be pure: the same item always costs the same.
type Cost interface {
	Duration(item *WorkItem) time.Duration
	// Mean is the expected service time, used for predictions.
	Mean() time.Duration
}

// FixedCost costs the same for every item.
type FixedCost time.Duration

func (f FixedCost) Duration(*WorkItem) time.Duration { return time.Duration(f) }

func (f FixedCost) Mean() time.Duration { return time.Duration(f) }

// UniformCost draws a cost in [Min, Max] from the item ID and Seed.
type UniformCost struct {
	Min, Max time.Duration
	Seed     int64
}

func (u UniformCost) Duration(item *WorkItem) time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	// 53 random bits give a float in [0, 1).
	frac := float64(splitmix(uint64(u.Seed)+uint64(item.ID)*0x9E3779B97F4A7C15)>>11) / (1 << 53)

	return u.Min + time.Duration(frac*float64(u.Max-u.Min))
}

func (u UniformCost) Mean() time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}

	return u.Min + (u.Max-u.Min)/2
}

func splitmix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB

	return z ^ (z >> 31)
}

// Stage is one processing step. It holds no mutable state and is shared
// read-only by every worker bound to it.
type Stage struct {
	Name string
	// Status is set on the item once the stage is done with it.
	Status string
	// Cost is the simulated service time. A nil Cost takes no time.
	Cost Cost
	// Fault, when set, is called before the simulated work. A non nil error
	// means the stage faulted while holding the item.
	Fault func(item *WorkItem) error
}

// Process applies the stage to item and stamps it.
func (s Stage) Process(ctx context.Context, item *WorkItem) error {
	if s.Fault != nil {
		if err := s.Fault(item); err != nil {
			return err
		}
	}
	if s.Cost != nil {
		if d := s.Cost.Duration(item); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Wrap(ctx.Err(), "interrupted")
			case <-timer.C:
			}
		}
	}
	item.stamp(s.Name, s.Status)

	return nil
}

func validateStages(stages []Stage) error {
	if len(stages) < 2 {
		return errors.Wrapf(ErrTooFewStages, "got %d", len(stages))
	}
	seen := make(map[string]struct{}, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return errors.Wrapf(ErrStageName, "stage %d has no name", i)
		}
		if s.Name == model.StartStage.Name || s.Name == model.EndStage.Name {
			return errors.Wrapf(ErrStageName, "stage name %q is reserved", s.Name)
		}
		if _, ok := seen[s.Name]; ok {
			return errors.Wrapf(ErrStageName, "stage %q is defined twice", s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	return nil
}
