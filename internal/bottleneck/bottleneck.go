// Package bottleneck predicts how a list of stages performs sequentially and pipelined,
// from the expected cost of each stage.
package bottleneck

import (
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
)

var ErrInvalidInput = errors.New("items and workers per stage must be greater than 0")

// Analysis is the theoretical behaviour of a pipeline.
type Analysis struct {
	Bottleneck     string        `json:"bottleneck" yaml:"bottleneck"`
	BottleneckCost time.Duration `json:"bottleneck_cost" yaml:"bottleneck_cost"`
	// FillLatency is the time the first item needs to cross every stage.
	FillLatency         time.Duration `json:"fill_latency" yaml:"fill_latency"`
	PredictedSequential time.Duration `json:"predicted_sequential" yaml:"predicted_sequential"`
	PredictedPipelined  time.Duration `json:"predicted_pipelined" yaml:"predicted_pipelined"`
	MaxSpeedup          float64       `json:"max_speedup" yaml:"max_speedup"`
}

// Analyze walks the stage chain start -> stages -> end. Each edge weighs the
// expected cost of its target stage, in microseconds.
func Analyze(stages []pipeline.Stage, items, workersPerStage int) (*Analysis, error) {
	if items <= 0 || workersPerStage <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "items %d, workers %d", items, workersPerStage)
	}

	gra, costs, err := chain(stages)
	if err != nil {
		return nil, err
	}

	order, err := graph.TopologicalSort(gra)
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort stages")
	}
	path, err := graph.ShortestPath(gra, model.StartStage.Name, model.EndStage.Name)
	if err != nil {
		return nil, errors.Wrap(err, "stages do not form a chain")
	}
	if len(path) != len(order) {
		return nil, errors.Errorf("stages do not form a chain: %d on path, %d in total", len(path), len(order))
	}

	res := &Analysis{}
	for _, name := range path {
		cost, ok := costs[name]
		if !ok {
			continue
		}
		res.FillLatency += cost
		// Workers sharing a stage split its load.
		effective := cost / time.Duration(workersPerStage)
		if effective > res.BottleneckCost {
			res.Bottleneck = name
			res.BottleneckCost = effective
		}
	}

	res.PredictedSequential = time.Duration(items) * res.FillLatency
	res.PredictedPipelined = res.FillLatency + time.Duration(items-1)*res.BottleneckCost
	if res.PredictedPipelined > 0 {
		res.MaxSpeedup = float64(res.PredictedSequential) / float64(res.PredictedPipelined)
	}

	return res, nil
}

func chain(stages []pipeline.Stage) (graph.Graph[string, string], map[string]time.Duration, error) {
	gra := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic(), graph.Weighted())
	costs := make(map[string]time.Duration, len(stages))

	err := gra.AddVertex(model.StartStage.Name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to add start")
	}
	parent := model.StartStage.Name
	for _, s := range stages {
		var cost time.Duration
		if s.Cost != nil {
			cost = s.Cost.Mean()
		}
		costs[s.Name] = cost

		err = gra.AddVertex(s.Name, graph.VertexWeight(int(cost.Microseconds())))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to add stage %s", s.Name)
		}
		err = gra.AddEdge(parent, s.Name, graph.EdgeWeight(int(cost.Microseconds())))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to link %s to %s", parent, s.Name)
		}
		parent = s.Name
	}
	err = gra.AddVertex(model.EndStage.Name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to add end")
	}
	err = gra.AddEdge(parent, model.EndStage.Name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to link %s to end", parent)
	}

	return gra, costs, nil
}
