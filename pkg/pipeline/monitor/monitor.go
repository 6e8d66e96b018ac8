// Package monitor exports pipeline activity as Prometheus metrics.
package monitor

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

const namespace = "dishwash"

// Collector holds the Prometheus metrics of one benchmark. It is a
// model.PipelineOption and can be shared by every run of the benchmark.
type Collector struct {
	StageItems    *prometheus.CounterVec
	StageService  *prometheus.HistogramVec
	StageBacklog  *prometheus.GaugeVec
	Runs          prometheus.Counter
	TrialDuration *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		StageItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_items_total",
				Help:      "Total number of items handed on by a stage",
			},
			[]string{"stage"},
		),
		StageService: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_service_seconds",
				Help:      "Simulated service time per item",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .2, .3, .5, 1},
			},
			[]string{"stage"},
		),
		StageBacklog: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_backlog",
				Help:      "Items waiting in the output channel of a stage after its last hand-off",
			},
			[]string{"stage"},
		),
		Runs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of runs",
			},
		),
		TrialDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_duration_seconds",
				Help:      "Wall-clock duration of benchmark trials",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"mode"},
		),
	}

	for _, col := range []prometheus.Collector{c.StageItems, c.StageService, c.StageBacklog, c.Runs, c.TrialDuration} {
		err := reg.Register(col)
		if err != nil {
			return nil, errors.Wrap(err, "unable to register collector")
		}
	}

	return c, nil
}

// ObserveTrial records the duration of a benchmark trial.
func (c *Collector) ObserveTrial(mode string, d time.Duration) {
	c.TrialDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (c *Collector) New() error {
	return nil
}

func (c *Collector) PrepareStage(_, stage *model.StageInfo) error {
	// Expose every stage from the start, even before it handles an item.
	c.StageItems.WithLabelValues(stage.Name)
	c.StageBacklog.WithLabelValues(stage.Name).Set(0)

	return nil
}

func (c *Collector) OnStageOutput(_, stage *model.StageInfo, out model.StageOutput) error {
	c.StageItems.WithLabelValues(stage.Name).Inc()
	c.StageService.WithLabelValues(stage.Name).Observe(out.Computation.Seconds())
	c.StageBacklog.WithLabelValues(stage.Name).Set(float64(out.Backlog))

	return nil
}

func (c *Collector) AfterRun(_ *model.StageInfo, _ time.Duration) error {
	c.Runs.Inc()

	return nil
}

func (c *Collector) Finish() error {
	return nil
}

var _ model.PipelineOption = (*Collector)(nil)
