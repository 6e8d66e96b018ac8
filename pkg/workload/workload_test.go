package workload_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
	"github.com/askiada/dishwash-pipeline/pkg/workload"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	gen := workload.Generator{Seed: 42, Count: 30}
	first, err := gen.Generate()
	require.NoError(t, err)
	second, err := gen.Generate()
	require.NoError(t, err)

	require.Len(t, first, 30)
	kinds := map[string]int{}
	for i, item := range first {
		assert.Equal(t, i+1, item.ID)
		assert.Contains(t, workload.DefaultKinds, item.Kind)
		assert.Equal(t, pipeline.StatusPending, item.Status)
		assert.Empty(t, item.Stamps)

		assert.Equal(t, item.ID, second[i].ID)
		assert.Equal(t, item.Kind, second[i].Kind)
		assert.NotSame(t, item, second[i])
		kinds[item.Kind]++
	}
	assert.Greater(t, len(kinds), 1)
}

func TestGenerateCustomKinds(t *testing.T) {
	t.Parallel()

	items, err := workload.Generator{Count: 4, Kinds: []string{"pan"}}.Generate()
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, "pan", item.Kind)
	}
}

func TestGenerateInvalid(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		gen     workload.Generator
		wantErr error
	}{
		"negative count": {gen: workload.Generator{Count: -1}, wantErr: workload.ErrNegativeCount},
		"no kinds":       {gen: workload.Generator{Count: 1, Kinds: []string{}}, wantErr: workload.ErrNoKinds},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.gen.Generate()
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	items, err := workload.Generator{}.Generate()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDishStages(t *testing.T) {
	t.Parallel()

	stages, err := workload.DishStages(50*time.Millisecond, 0, 42)
	require.NoError(t, err)
	require.Len(t, stages, 4)

	wantNames := []string{workload.StagePreRinse, workload.StageWash, workload.StageDry, workload.StageStore}
	wantStatus := []string{"pre-rinsed", "washed", "dried", "stored"}
	item := pipeline.NewWorkItem(1, "plate")
	for i, s := range stages {
		assert.Equal(t, wantNames[i], s.Name)
		assert.Equal(t, wantStatus[i], s.Status)
		assert.Equal(t, 50*time.Millisecond, s.Cost.Duration(item))
	}

	_, err = pipeline.New(stages, 1)
	assert.NoError(t, err)
}

func TestDishStagesJitter(t *testing.T) {
	t.Parallel()

	stages, err := workload.DishStages(200*time.Millisecond, 100*time.Millisecond, 42)
	require.NoError(t, err)

	for _, s := range stages {
		assert.Equal(t, 200*time.Millisecond, s.Cost.Mean())
		for id := 1; id <= 20; id++ {
			d := s.Cost.Duration(pipeline.NewWorkItem(id, "bowl"))
			assert.GreaterOrEqual(t, d, 100*time.Millisecond)
			assert.LessOrEqual(t, d, 300*time.Millisecond)
		}
	}
}

func TestDishStagesInvalid(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cost, jitter time.Duration
	}{
		"zero cost":       {cost: 0},
		"negative jitter": {cost: time.Millisecond, jitter: -time.Millisecond},
		"jitter too big":  {cost: time.Millisecond, jitter: 2 * time.Millisecond},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := workload.DishStages(tc.cost, tc.jitter, 1)
			assert.ErrorIs(t, err, workload.ErrInvalidCost)
		})
	}
}
