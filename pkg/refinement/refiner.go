// Package refinement implements the local searches run after every
// uncontraction: Fiduccia-Mattheyses variants, label propagation and a
// no-op, together with their stopping and rebalancing policies.
package refinement

import (
	"github.com/rs/zerolog"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/utils"
)

// Refiner improves the partition around a set of hypernodes.
//
// Refine starts from the hypernodes in nodes, never leaves a block heavier
// than maxPartWeight, and reports whether it found a better partition. best
// holds the metrics of the current partition on entry; on return its
// objective value and imbalance describe the partition the refiner left.
type Refiner interface {
	Initialize()
	Refine(nodes []hypergraph.HypernodeID, maxPartWeight hypergraph.HypernodeWeight, best *metrics.Metrics) bool
	Name() string
}

// Env carries the ambient collaborators of a refiner.
type Env struct {
	Logger  zerolog.Logger
	Tracker *utils.MoveTracker
}

// DoNothing never changes the partition.
type DoNothing struct{}

func (DoNothing) Initialize() {}

func (DoNothing) Refine([]hypergraph.HypernodeID, hypergraph.HypernodeWeight, *metrics.Metrics) bool {
	return false
}

func (DoNothing) Name() string { return string(config.RefinementDoNothing) }

// betterState orders search states: feasible before infeasible, then lower
// objective, then lower imbalance.
func betterState(obj hypergraph.HyperedgeWeight, imb float64, feasible bool,
	bestObj hypergraph.HyperedgeWeight, bestImb float64, bestFeasible bool) bool {
	if feasible != bestFeasible {
		return feasible
	}
	if obj != bestObj {
		return obj < bestObj
	}
	return imb < bestImb
}
