package bench

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/askiada/dishwash-pipeline/internal/bottleneck"
)

// Stats summarises the successful trials of one mode.
type Stats struct {
	Trials int           `json:"trials" yaml:"trials"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	StdDev time.Duration `json:"std_dev" yaml:"std_dev"`
	Median time.Duration `json:"median" yaml:"median"`
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
	// Throughput is in items per second, from the mean duration.
	Throughput     float64       `json:"throughput" yaml:"throughput"`
	AvgTimePerItem time.Duration `json:"avg_time_per_item" yaml:"avg_time_per_item"`
}

// Summary is the result of a benchmark, as plain data.
type Summary struct {
	ID                  string               `json:"id" yaml:"id"`
	AverageDurationSeq  time.Duration        `json:"average_duration_seq" yaml:"average_duration_seq"`
	AverageDurationPar  time.Duration        `json:"average_duration_par" yaml:"average_duration_par"`
	Speedup             float64              `json:"speedup" yaml:"speedup"`
	Efficiency          float64              `json:"efficiency" yaml:"efficiency"`
	TrialCount          int                  `json:"trial_count" yaml:"trial_count"`
	ItemCount           int                  `json:"item_count" yaml:"item_count"`
	WorkerCount         int                  `json:"worker_count" yaml:"worker_count"`
	Sequential          Stats                `json:"sequential" yaml:"sequential"`
	Pipelined           Stats                `json:"pipelined" yaml:"pipelined"`
	SequentialDurations []time.Duration      `json:"sequential_durations" yaml:"sequential_durations"`
	PipelinedDurations  []time.Duration      `json:"pipelined_durations" yaml:"pipelined_durations"`
	Trials              []Trial              `json:"trials" yaml:"trials"`
	Failures            []Trial              `json:"failures,omitempty" yaml:"failures,omitempty"`
	Prediction          *bottleneck.Analysis `json:"prediction,omitempty" yaml:"prediction,omitempty"`
}

func computeStats(durations []time.Duration, items int) Stats {
	res := Stats{Trials: len(durations)}
	if len(durations) == 0 {
		return res
	}

	xs := make([]float64, len(durations))
	for i, d := range durations {
		xs[i] = float64(d)
	}
	sort.Float64s(xs)

	res.Mean = time.Duration(stat.Mean(xs, nil))
	if len(xs) > 1 {
		res.StdDev = time.Duration(stat.StdDev(xs, nil))
	}
	res.Median = time.Duration(stat.Quantile(0.5, stat.Empirical, xs, nil))
	res.Min = time.Duration(xs[0])
	res.Max = time.Duration(xs[len(xs)-1])
	if res.Mean > 0 && items > 0 {
		res.Throughput = float64(items) / res.Mean.Seconds()
		res.AvgTimePerItem = res.Mean / time.Duration(items)
	}

	return res
}

// speedup returns the ratio of the average durations, and that ratio per
// worker.
func speedup(seq, par time.Duration, workers int) (float64, float64) {
	if par <= 0 || workers <= 0 {
		return 0, 0
	}
	s := float64(seq) / float64(par)

	return s, s / float64(workers)
}
