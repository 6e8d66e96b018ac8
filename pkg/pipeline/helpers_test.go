package pipeline_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

func createItems(t *testing.T, total int) []*pipeline.WorkItem {
	t.Helper()

	items := make([]*pipeline.WorkItem, total)
	for i := range items {
		items[i] = pipeline.NewWorkItem(i+1, "plate")
	}

	return items
}

func createStages(t *testing.T, total int, cost time.Duration) []pipeline.Stage {
	t.Helper()

	stages := make([]pipeline.Stage, total)
	for i := range stages {
		stages[i] = pipeline.Stage{
			Name:   fmt.Sprintf("s%d", i),
			Status: fmt.Sprintf("done-%d", i),
			Cost:   pipeline.FixedCost(cost),
		}
	}

	return stages
}

func stageNames(stages []pipeline.Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}

	return names
}

func completedIDs(record *pipeline.RunRecord) []int {
	ids := make([]int, len(record.Completions))
	for i, c := range record.Completions {
		ids[i] = c.ItemID
	}

	return ids
}

// assertConserved checks every submitted item is either completed or failed,
// exactly once.
func assertConserved(t *testing.T, record *pipeline.RunRecord, total int) {
	t.Helper()

	require.NotNil(t, record)
	assert.Equal(t, total, record.ItemCount)
	assert.Equal(t, total, len(record.Completions)+len(record.Failures))

	seen := make(map[int]struct{}, total)
	for _, id := range completedIDs(record) {
		seen[id] = struct{}{}
	}
	for _, f := range record.Failures {
		seen[f.ItemID] = struct{}{}
	}
	assert.Len(t, seen, total)
}

// recordingHook counts the calls made by a runner.
type recordingHook struct {
	mu       sync.Mutex
	news     int
	prepared []string
	parents  []string
	outputs  map[string]int
	afterRun []string
	finished int
	failOn   string
}

func newRecordingHook() *recordingHook {
	return &recordingHook{outputs: map[string]int{}}
}

func (h *recordingHook) New() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.news++

	return nil
}

func (h *recordingHook) PrepareStage(parent, stage *model.StageInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prepared = append(h.prepared, stage.Name)
	h.parents = append(h.parents, parent.Name)

	return nil
}

func (h *recordingHook) OnStageOutput(_, stage *model.StageInfo, _ model.StageOutput) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if stage.Name == h.failOn {
		return assert.AnError
	}
	h.outputs[stage.Name]++

	return nil
}

func (h *recordingHook) AfterRun(stage *model.StageInfo, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterRun = append(h.afterRun, stage.Name)

	return nil
}

func (h *recordingHook) Finish() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished++

	return nil
}
