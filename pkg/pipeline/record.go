package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Mode tells which runner produced a record.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModePipeline   Mode = "pipeline"
)

// Completion is the moment an item left the last stage.
type Completion struct {
	ItemID int       `json:"item_id" yaml:"item_id"`
	At     time.Time `json:"at" yaml:"at"`
}

// Failure is an item that did not complete, with the reason.
type Failure struct {
	ItemID int    `json:"item_id" yaml:"item_id"`
	Stage  string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Err    error  `json:"-" yaml:"-"`
	Reason string `json:"reason" yaml:"reason"`
}

// RunRecord is the outcome of one run. It is not modified once returned.
type RunRecord struct {
	ID          uuid.UUID     `json:"id" yaml:"id"`
	Mode        Mode          `json:"mode" yaml:"mode"`
	ItemCount   int           `json:"item_count" yaml:"item_count"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time     `json:"finished_at" yaml:"finished_at"`
	Completions []Completion  `json:"completions" yaml:"completions"`
	Completed   []*WorkItem   `json:"-" yaml:"-"`
	Failures    []Failure     `json:"failures,omitempty" yaml:"failures,omitempty"`
	Channels    []ChannelStat `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// ChannelStat describes the channel feeding a stage during a run.
type ChannelStat struct {
	Stage     string `json:"stage" yaml:"stage"`
	Capacity  int    `json:"capacity" yaml:"capacity"`
	HighWater int    `json:"high_water" yaml:"high_water"`
}

// Duration is the wall-clock time of the run.
func (r *RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CompletedCount is the number of items that went through every stage.
func (r *RunRecord) CompletedCount() int {
	return len(r.Completions)
}

// Throughput is the number of completed items per second.
func (r *RunRecord) Throughput() float64 {
	d := r.Duration()
	if d <= 0 {
		return 0
	}

	return float64(r.CompletedCount()) / d.Seconds()
}

// AvgTimePerItem is the run duration divided by the completed items.
func (r *RunRecord) AvgTimePerItem() time.Duration {
	if r.CompletedCount() == 0 {
		return 0
	}

	return r.Duration() / time.Duration(r.CompletedCount())
}

// completionLog collects completions from the last stage workers.
type completionLog struct {
	mu          sync.Mutex
	seen        map[int]struct{}
	completions []Completion
	items       []*WorkItem
	duplicates  []int
	failures    []Failure
}

func newCompletionLog(size int) *completionLog {
	return &completionLog{
		seen:        make(map[int]struct{}, size),
		completions: make([]Completion, 0, size),
		items:       make([]*WorkItem, 0, size),
	}
}

func (cl *completionLog) add(item *WorkItem, at time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, ok := cl.seen[item.ID]; ok {
		cl.duplicates = append(cl.duplicates, item.ID)
		return
	}
	cl.seen[item.ID] = struct{}{}
	cl.completions = append(cl.completions, Completion{ItemID: item.ID, At: at})
	cl.items = append(cl.items, item)
}

func (cl *completionLog) fail(f Failure) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.failures = append(cl.failures, f)
}

func (cl *completionLog) count() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	return len(cl.completions)
}

// reconcile fills the record from the log. Every submitted item that did not
// complete and has no failure yet is reported with fallback as the reason.
func (cl *completionLog) reconcile(record *RunRecord, submitted []*WorkItem, fallback error) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	failures := append([]Failure(nil), cl.failures...)
	record.Completions = cl.completions
	record.Completed = cl.items

	failed := make(map[int]struct{}, len(failures))
	for _, f := range failures {
		failed[f.ItemID] = struct{}{}
	}
	for _, item := range submitted {
		if _, ok := cl.seen[item.ID]; ok {
			continue
		}
		if _, ok := failed[item.ID]; ok {
			continue
		}
		failures = append(failures, newFailure(item.ID, "", fallback))
		failed[item.ID] = struct{}{}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].ItemID < failures[j].ItemID })
	record.Failures = failures

	if len(cl.duplicates) > 0 {
		return errors.Wrapf(ErrDuplicateItem, "items %v", cl.duplicates)
	}
	if len(record.Completions)+len(record.Failures) != record.ItemCount {
		return errors.Wrapf(ErrConservation, "%d completed + %d failed != %d submitted",
			len(record.Completions), len(record.Failures), record.ItemCount)
	}

	return nil
}

func newFailure(itemID int, stage string, err error) Failure {
	f := Failure{ItemID: itemID, Stage: stage, Err: err}
	if err != nil {
		f.Reason = err.Error()
	}

	return f
}
