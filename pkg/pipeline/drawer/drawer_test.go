package drawer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/drawer"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/measure"
)

func TestDOTDrawer(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "pipeline.dot"))
	require.NoError(t, d.AddStep("wash"))
	require.NoError(t, d.AddStep("dry"))
	require.NoError(t, d.AddLink("wash", "dry"))
	require.NoError(t, d.SetTotalTime("dry", time.Second))

	assert.Error(t, d.AddStep("wash"))
	assert.Error(t, d.AddLink("wash", "store"))
	assert.Error(t, d.SetTotalTime("store", time.Second))

	var first, second bytes.Buffer
	require.NoError(t, d.WriteDOT(&first))
	require.NoError(t, d.WriteDOT(&second))
	assert.Equal(t, first.String(), second.String())

	out := first.String()
	assert.Contains(t, out, "strict digraph")
	assert.Contains(t, out, `rankdir="LR"`)
	assert.Contains(t, out, `"wash" -> "dry"`)
	assert.Contains(t, out, "total: 1s")
}

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "pipeline.dot")
	m := measure.NewDefaultMeasure()
	stages := []pipeline.Stage{
		{Name: "pre-rinse", Cost: pipeline.FixedCost(time.Millisecond)},
		{Name: "wash", Cost: pipeline.FixedCost(3 * time.Millisecond)},
		{Name: "dry", Cost: pipeline.FixedCost(time.Millisecond)},
	}
	pipe, err := pipeline.New(stages, 2, pipeline.WithHooks(
		measure.PipelineMeasure(m),
		drawer.PipelineDrawer(drawer.NewDOTDrawer(fileName), m),
	))
	require.NoError(t, err)

	items := make([]*pipeline.WorkItem, 6)
	for i := range items {
		items[i] = pipeline.NewWorkItem(i+1, "bowl")
	}
	_, err = pipe.Run(context.Background(), items)
	require.NoError(t, err)

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	out := string(data)

	for _, edge := range []string{
		`"start" -> "pre-rinse"`,
		`"pre-rinse" -> "wash"`,
		`"wash" -> "dry"`,
		`"dry" -> "end"`,
	} {
		assert.Contains(t, out, edge)
	}
	assert.Contains(t, out, "avg: ")
	assert.Contains(t, out, "items: 6")
	assert.Contains(t, out, "total: ")
}

func TestPipelineDrawerWithoutMeasure(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "pipeline.dot")
	stages := []pipeline.Stage{{Name: "wash"}, {Name: "dry"}}
	pipe, err := pipeline.New(stages, 1, pipeline.WithHooks(drawer.PipelineDrawer(drawer.NewDOTDrawer(fileName), nil)))
	require.NoError(t, err)

	_, err = pipe.Run(context.Background(), []*pipeline.WorkItem{pipeline.NewWorkItem(1, "plate")})
	require.NoError(t, err)

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dry" -> "end"`)
	assert.NotContains(t, string(data), "avg: ")
}

func TestDOTDrawerDraw(t *testing.T) {
	t.Parallel()

	newDrawer := func(t *testing.T, fileName string) *drawer.DOTDrawer {
		t.Helper()

		d := drawer.NewDOTDrawer(fileName)
		require.NoError(t, d.AddStep("wash"))
		require.NoError(t, d.AddStep("dry"))
		require.NoError(t, d.AddLink("wash", "dry"))

		return d
	}

	t.Run("written file", func(t *testing.T) {
		t.Parallel()

		fileName := filepath.Join(t.TempDir(), "pipeline.dot")
		d := newDrawer(t, fileName)
		require.NoError(t, d.Draw())

		var want bytes.Buffer
		require.NoError(t, d.WriteDOT(&want))
		got, err := os.ReadFile(fileName)
		require.NoError(t, err)
		assert.Equal(t, want.String(), string(got))
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		d := newDrawer(t, filepath.Join(t.TempDir(), "missing", "pipeline.dot"))
		require.ErrorIs(t, d.Draw(), os.ErrNotExist)
	})

	t.Run("full device", func(t *testing.T) {
		t.Parallel()

		if _, err := os.Stat("/dev/full"); err != nil {
			t.Skip("no /dev/full on this system")
		}
		d := newDrawer(t, "/dev/full")
		require.Error(t, d.Draw())
	})
}
