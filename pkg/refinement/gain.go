package refinement

import (
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

// contribution returns how much hyperedge e (size, weight) adds to the gain
// of moving a pin from block from to block to, given the pin counts pc.
type contribution func(size int, weight hypergraph.HyperedgeWeight, pcFrom, pcTo int) hypergraph.Gain

// cutContribution: leaving a block that holds all pins cuts e, joining a
// block that holds all other pins uncuts it.
func cutContribution(size int, weight hypergraph.HyperedgeWeight, pcFrom, pcTo int) hypergraph.Gain {
	g := 0
	if pcFrom == size {
		g -= weight
	}
	if pcTo == size-1 {
		g += weight
	}
	return g
}

// km1Contribution: connectivity drops when the last pin leaves a block and
// grows when the first pin enters one.
func km1Contribution(_ int, weight hypergraph.HyperedgeWeight, pcFrom, pcTo int) hypergraph.Gain {
	g := 0
	if pcFrom == 1 {
		g += weight
	}
	if pcTo == 0 {
		g -= weight
	}
	return g
}

func contributionFor(o metrics.Objective) contribution {
	if o == metrics.ObjectiveKM1 {
		return km1Contribution
	}
	return cutContribution
}

// gainTable holds, for every active hypernode u, the gain of moving u to each
// block: gains[u*k+b]. The entry of u's own block is unused.
type gainTable struct {
	hg      *hypergraph.Hypergraph
	k       int
	contrib contribution
	gains   []hypergraph.Gain
}

func newGainTable(hg *hypergraph.Hypergraph, o metrics.Objective) *gainTable {
	return &gainTable{
		hg:      hg,
		k:       hg.K(),
		contrib: contributionFor(o),
		gains:   make([]hypergraph.Gain, hg.InitialNumNodes()*hg.K()),
	}
}

func (t *gainTable) gain(u hypergraph.HypernodeID, to hypergraph.PartitionID) hypergraph.Gain {
	return t.gains[u*t.k+to]
}

// compute fills the gains of u from scratch.
func (t *gainTable) compute(u hypergraph.HypernodeID) {
	row := t.gains[u*t.k : (u+1)*t.k]
	for b := range row {
		row[b] = 0
	}
	from := t.hg.PartID(u)
	for _, e := range t.hg.IncidentEdges(u) {
		size, w := t.hg.EdgeSize(e), t.hg.EdgeWeight(e)
		pcFrom := t.hg.PinCountInPart(e, from)
		for b := 0; b < t.k; b++ {
			if b != from {
				row[b] += t.contrib(size, w, pcFrom, t.hg.PinCountInPart(e, b))
			}
		}
	}
}

// applyDelta updates the gains of pin u of e after a move from s to t has
// already been applied to the pin counts. It reports whether any gain of u
// changed.
func (t *gainTable) applyDelta(u hypergraph.HypernodeID, e hypergraph.HyperedgeID, s, dst hypergraph.PartitionID) bool {
	size, w := t.hg.EdgeSize(e), t.hg.EdgeWeight(e)
	pu := t.hg.PartID(u)
	after := func(b hypergraph.PartitionID) int { return t.hg.PinCountInPart(e, b) }
	before := func(b hypergraph.PartitionID) int {
		c := t.hg.PinCountInPart(e, b)
		switch b {
		case s:
			c++
		case dst:
			c--
		}
		return c
	}

	changed := false
	for b := 0; b < t.k; b++ {
		if b == pu || (pu != s && pu != dst && b != s && b != dst) {
			continue
		}
		delta := t.contrib(size, w, after(pu), after(b)) - t.contrib(size, w, before(pu), before(b))
		if delta != 0 {
			t.gains[u*t.k+b] += delta
			changed = true
		}
	}
	return changed
}

// moveGain computes the gain of moving u to block to directly from the pin
// counts, without a gain table.
func moveGain(hg *hypergraph.Hypergraph, contrib contribution, u hypergraph.HypernodeID, to hypergraph.PartitionID) hypergraph.Gain {
	from := hg.PartID(u)
	g := 0
	for _, e := range hg.IncidentEdges(u) {
		g += contrib(hg.EdgeSize(e), hg.EdgeWeight(e), hg.PinCountInPart(e, from), hg.PinCountInPart(e, to))
	}
	return g
}
