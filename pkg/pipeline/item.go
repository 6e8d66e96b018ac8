package pipeline

import "time"

// StatusPending is the status of an item no stage has touched yet.
const StatusPending = "dirty"

// StageStamp records when an item left a stage.
type StageStamp struct {
	Stage string    `json:"stage" yaml:"stage"`
	At    time.Time `json:"at" yaml:"at"`
}

// WorkItem is the unit flowing through the stages.
// It is owned by exactly one worker at a time: handing it to the next
// channel transfers ownership.
type WorkItem struct {
	ID        int          `json:"id" yaml:"id"`
	Kind      string       `json:"kind" yaml:"kind"`
	Status    string       `json:"status" yaml:"status"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	Stamps    []StageStamp `json:"stamps" yaml:"stamps"`
}

// NewWorkItem creates a pending item.
func NewWorkItem(id int, kind string) *WorkItem {
	return &WorkItem{
		ID:        id,
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

func (w *WorkItem) stamp(stage, status string) time.Time {
	now := time.Now()
	// Stamps are strictly increasing, even when a stage takes no time.
	if n := len(w.Stamps); n > 0 && !now.After(w.Stamps[n-1].At) {
		now = w.Stamps[n-1].At.Add(time.Nanosecond)
	}
	w.Stamps = append(w.Stamps, StageStamp{Stage: stage, At: now})
	if status != "" {
		w.Status = status
	}

	return now
}

// StampAt returns when the item left the given stage.
func (w *WorkItem) StampAt(stage string) (time.Time, bool) {
	for _, s := range w.Stamps {
		if s.Stage == stage {
			return s.At, true
		}
	}

	return time.Time{}, false
}
