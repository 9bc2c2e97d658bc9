package hypergraph

import (
	"github.com/pkg/errors"
)

// Validate checks the structural invariants: mutual incidence between valid
// hypernodes and hyperedges, no empty hyperedges, conserved total weight and
// pin counts that match the current blocks. It is O(pins) and meant for
// tests and debug runs.
func (h *Hypergraph) Validate() error {
	weight := 0
	numNodes := 0
	for u, n := range h.nodes {
		if !n.valid {
			continue
		}
		numNodes++
		weight += n.weight
		for _, e := range n.edges {
			if !h.edges[e].valid {
				return errors.Wrapf(ErrInvalidHypergraph, "hypernode %d references removed hyperedge %d", u, e)
			}
			if !contains(h.edges[e].pins, u) {
				return errors.Wrapf(ErrInvalidHypergraph, "hypernode %d lists hyperedge %d which does not contain it", u, e)
			}
		}
	}
	if weight != h.totalWeight {
		return errors.Wrapf(ErrInvalidHypergraph, "total weight %d, expected %d", weight, h.totalWeight)
	}
	if numNodes != h.currentNumNodes {
		return errors.Wrapf(ErrInvalidHypergraph, "%d valid hypernodes, counter says %d", numNodes, h.currentNumNodes)
	}
	partWeights := make([]HypernodeWeight, h.k)
	for u, n := range h.nodes {
		if n.valid && h.partIDs[u] != InvalidPartition {
			partWeights[h.partIDs[u]] += n.weight
		}
	}
	for p, w := range partWeights {
		if w != h.partWeights[p] {
			return errors.Wrapf(ErrInvalidHypergraph, "block %d weighs %d, counter says %d", p, w, h.partWeights[p])
		}
	}

	numEdges, numPins := 0, 0
	counts := make([]int, h.k)
	for e, he := range h.edges {
		if !he.valid {
			continue
		}
		numEdges++
		numPins += len(he.pins)
		if len(he.pins) == 0 {
			return errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d has no pins", e)
		}
		for p := range counts {
			counts[p] = 0
		}
		for _, u := range he.pins {
			if !h.nodes[u].valid {
				return errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d contains contracted hypernode %d", e, u)
			}
			if !contains(h.nodes[u].edges, e) {
				return errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d contains hypernode %d which does not list it", e, u)
			}
			if p := h.partIDs[u]; p != InvalidPartition {
				counts[p]++
			}
		}
		conn := 0
		for p, c := range counts {
			if c != h.PinCountInPart(e, p) {
				return errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d has %d pins in block %d, counter says %d",
					e, c, p, h.PinCountInPart(e, p))
			}
			if c > 0 {
				conn++
			}
		}
		if conn != h.connectivity[e] {
			return errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d connectivity %d, counter says %d", e, conn, h.connectivity[e])
		}
	}
	if numEdges != h.currentNumEdges || numPins != h.currentNumPins {
		return errors.Wrapf(ErrInvalidHypergraph, "%d edges / %d pins, counters say %d / %d",
			numEdges, numPins, h.currentNumEdges, h.currentNumPins)
	}
	return nil
}

func contains(ids []int, x int) bool {
	for _, id := range ids {
		if id == x {
			return true
		}
	}
	return false
}
