package workload

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
)

var (
	ErrNegativeCount = errors.New("count must not be negative")
	ErrNoKinds       = errors.New("at least one kind is required")
	ErrInvalidCost   = errors.New("cost must be greater than 0 and jitter must be in [0, cost]")
)

// DefaultKinds are the dish kinds of a restaurant.
var DefaultKinds = []string{"plate", "bowl", "utensil"}

// Generator produces a fixed list of items.
type Generator struct {
	Seed  int64
	Count int
	Kinds []string
}

// Generate returns Count fresh items with IDs 1..Count. Two calls with the
// same generator return items of identical IDs and kinds.
func (g Generator) Generate() ([]*pipeline.WorkItem, error) {
	if g.Count < 0 {
		return nil, errors.Wrapf(ErrNegativeCount, "got %d", g.Count)
	}
	kinds := g.Kinds
	if kinds == nil {
		kinds = DefaultKinds
	}
	if len(kinds) == 0 {
		return nil, ErrNoKinds
	}

	rnd := rand.New(rand.NewSource(g.Seed)) //nolint:gosec // simulation only
	items := make([]*pipeline.WorkItem, g.Count)
	for i := range items {
		items[i] = pipeline.NewWorkItem(i+1, kinds[rnd.Intn(len(kinds))])
	}

	return items, nil
}

// Stage names of the dishwashing workflow, in order.
const (
	StagePreRinse = "pre-rinse"
	StageWash     = "wash"
	StageDry      = "dry"
	StageStore    = "store"
)

var dishStages = []struct {
	name, status string
}{
	{StagePreRinse, "pre-rinsed"},
	{StageWash, "washed"},
	{StageDry, "dried"},
	{StageStore, "stored"},
}

// DishStages returns the four dishwashing stages. With no jitter every stage
// costs exactly cost; otherwise each item costs a value drawn uniformly from
// [cost-jitter, cost+jitter], derived from seed and the item ID.
func DishStages(cost, jitter time.Duration, seed int64) ([]pipeline.Stage, error) {
	if cost <= 0 || jitter < 0 || jitter > cost {
		return nil, errors.Wrapf(ErrInvalidCost, "cost %s, jitter %s", cost, jitter)
	}

	stages := make([]pipeline.Stage, len(dishStages))
	for i, s := range dishStages {
		var c pipeline.Cost = pipeline.FixedCost(cost)
		if jitter > 0 {
			c = pipeline.UniformCost{
				Min:  cost - jitter,
				Max:  cost + jitter,
				Seed: seed + int64(i),
			}
		}
		stages[i] = pipeline.Stage{
			Name:   s.name,
			Status: s.status,
			Cost:   c,
		}
	}

	return stages, nil
}
