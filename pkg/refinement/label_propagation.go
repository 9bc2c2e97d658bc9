package refinement

import (
	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

// LabelPropagation moves border nodes greedily to the block with the best
// strictly positive gain, for a bounded number of rounds. Each round visits
// the neighbors of the nodes moved in the previous one. There are no
// queues and no rollback; the objective never increases.
type LabelPropagation struct {
	hg            *hypergraph.Hypergraph
	objective     metrics.Objective
	contrib       contribution
	maxIterations int
	env           Env
	queued        []bool
}

func NewLabelPropagation(hg *hypergraph.Hypergraph, cfg config.Config, env Env) *LabelPropagation {
	return &LabelPropagation{
		hg:            hg,
		objective:     cfg.Partition.Objective,
		contrib:       contributionFor(cfg.Partition.Objective),
		maxIterations: cfg.LP.MaxNumberIterations,
		env:           env,
		queued:        make([]bool, hg.InitialNumNodes()),
	}
}

func (*LabelPropagation) Name() string { return string(config.RefinementLabelPropagation) }

func (*LabelPropagation) Initialize() {}

func (lp *LabelPropagation) Refine(nodes []hypergraph.HypernodeID, maxPartWeight hypergraph.HypernodeWeight,
	best *metrics.Metrics) bool {
	start := best.Value(lp.objective)
	current := start

	var round []hypergraph.HypernodeID
	for _, u := range nodes {
		if lp.hg.NodeIsValid(u) && !lp.queued[u] {
			lp.queued[u] = true
			round = append(round, u)
		}
	}

	for it := 0; it < lp.maxIterations && len(round) > 0; it++ {
		for _, u := range round {
			lp.queued[u] = false
		}
		var next []hypergraph.HypernodeID
		for _, u := range round {
			if !lp.hg.IsBorderNode(u) {
				continue
			}
			to, gain, ok := lp.bestMove(u, maxPartWeight)
			if !ok {
				continue
			}
			from := lp.hg.PartID(u)
			lp.hg.ChangeNodePart(u, from, to)
			current -= gain
			lp.env.Tracker.LogMove(lp.Name(), u, from, to, gain, current)
			for _, e := range lp.hg.IncidentEdges(u) {
				for _, v := range lp.hg.Pins(e) {
					if !lp.queued[v] {
						lp.queued[v] = true
						next = append(next, v)
					}
				}
			}
		}
		round = next
	}
	for _, u := range round {
		lp.queued[u] = false
	}

	best.SetValue(lp.objective, current)
	best.Imbalance = metrics.Imbalance(lp.hg)
	return current < start
}

// bestMove returns the fitting target with the largest positive gain. Ties
// go to the block u is more strongly connected to, then to the lower id.
func (lp *LabelPropagation) bestMove(u hypergraph.HypernodeID, maxPartWeight hypergraph.HypernodeWeight) (hypergraph.PartitionID, hypergraph.Gain, bool) {
	from := lp.hg.PartID(u)
	best := hypergraph.InvalidPartition
	bestGain, bestConn := 0, 0
	for b := 0; b < lp.hg.K(); b++ {
		if b == from || lp.hg.PartWeight(b)+lp.hg.NodeWeight(u) > maxPartWeight {
			continue
		}
		g := moveGain(lp.hg, lp.contrib, u, b)
		if g <= 0 || g < bestGain {
			continue
		}
		conn := lp.connection(u, b)
		if g > bestGain || conn > bestConn {
			best, bestGain, bestConn = b, g, conn
		}
	}
	return best, bestGain, best >= 0
}

func (lp *LabelPropagation) connection(u hypergraph.HypernodeID, b hypergraph.PartitionID) hypergraph.HyperedgeWeight {
	w := 0
	for _, e := range lp.hg.IncidentEdges(u) {
		if lp.hg.PinCountInPart(e, b) > 0 {
			w += lp.hg.EdgeWeight(e)
		}
	}
	return w
}
