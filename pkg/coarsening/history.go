package coarsening

import "github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"

// ParallelEdge records that Removed had the same pins as Representative and
// was folded into it.
type ParallelEdge struct {
	Representative hypergraph.HyperedgeID
	Removed        hypergraph.HyperedgeID
}

// Memento is one contraction together with the hyperedges it made redundant.
type Memento struct {
	Contraction    hypergraph.Memento
	SinglePinEdges []hypergraph.HyperedgeID
	ParallelEdges  []ParallelEdge
}

// History is the stack of contractions performed by a coarsener.
type History struct {
	mementos []Memento
}

func (h *History) Push(m Memento) { h.mementos = append(h.mementos, m) }

// Pop removes and returns the most recent contraction.
func (h *History) Pop() (Memento, bool) {
	if len(h.mementos) == 0 {
		return Memento{}, false
	}
	last := len(h.mementos) - 1
	m := h.mementos[last]
	h.mementos = h.mementos[:last]
	return m, true
}

func (h *History) Len() int { return len(h.mementos) }

// Restore undoes m on hg: parallel hyperedges first, then single-pin
// hyperedges, both in reverse removal order, then the contraction itself.
func Restore(hg *hypergraph.Hypergraph, m Memento) {
	for i := len(m.ParallelEdges) - 1; i >= 0; i-- {
		hg.RestoreParallelEdge(m.ParallelEdges[i].Representative, m.ParallelEdges[i].Removed)
	}
	for i := len(m.SinglePinEdges) - 1; i >= 0; i-- {
		hg.RestoreEdge(m.SinglePinEdges[i])
	}
	hg.Uncontract(m.Contraction)
}
