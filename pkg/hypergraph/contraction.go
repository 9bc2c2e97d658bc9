package hypergraph

// Memento records one contraction so that Uncontract can reverse it exactly.
type Memento struct {
	U HypernodeID // representative, survives the contraction
	V HypernodeID // contracted, invalid until uncontracted

	// Replaced lists the hyperedges in which V was substituted by U. In all
	// other hyperedges of V, U was already a pin and V was simply dropped.
	Replaced []HyperedgeID
}

// Contract merges v into u. Both nodes must be valid, distinct and in the
// same block (or both unassigned). The weight of v is added to u, v becomes
// invalid, and every hyperedge of v either loses v (when u is already a pin)
// or gets u in place of v.
func (h *Hypergraph) Contract(u, v HypernodeID) Memento {
	mem := Memento{U: u, V: v}
	part := h.partIDs[u]

	h.nodes[u].weight += h.nodes[v].weight
	for _, e := range h.nodes[v].edges {
		pins := h.edges[e].pins
		ui, vi := -1, -1
		for i, p := range pins {
			switch p {
			case u:
				ui = i
			case v:
				vi = i
			}
		}
		if ui >= 0 {
			last := len(pins) - 1
			pins[vi] = pins[last]
			h.edges[e].pins = pins[:last]
			h.currentNumPins--
			if part != InvalidPartition {
				h.decrementPinCount(e, part)
			}
			continue
		}
		pins[vi] = u
		h.nodes[u].edges = append(h.nodes[u].edges, e)
		mem.Replaced = append(mem.Replaced, e)
	}

	h.nodes[v].valid = false
	h.currentNumNodes--
	if part != InvalidPartition {
		h.partSizes[part]--
	}
	return mem
}

// Uncontract reverses Contract. The hypergraph must be in the state produced
// right after the contraction (later contractions undone, removed hyperedges
// restored). The restored node inherits the block of the representative.
func (h *Hypergraph) Uncontract(m Memento) {
	u, v := m.U, m.V
	part := h.partIDs[u]

	if h.edgeMark == nil {
		h.edgeMark = make([]bool, len(h.edges))
	}
	for _, e := range m.Replaced {
		pins := h.edges[e].pins
		for i, p := range pins {
			if p == u {
				pins[i] = v
				break
			}
		}
		h.removeIncidentEdge(u, e)
		h.edgeMark[e] = true
	}
	for _, e := range h.nodes[v].edges {
		if h.edgeMark[e] {
			continue
		}
		h.edges[e].pins = append(h.edges[e].pins, v)
		h.currentNumPins++
		if part != InvalidPartition {
			h.incrementPinCount(e, part)
		}
	}
	for _, e := range m.Replaced {
		h.edgeMark[e] = false
	}

	h.nodes[v].valid = true
	h.nodes[u].weight -= h.nodes[v].weight
	h.currentNumNodes++
	h.partIDs[v] = part
	if part != InvalidPartition {
		h.partSizes[part]++
	}
}

// RemoveEdge disables e and detaches it from all of its pins.
func (h *Hypergraph) RemoveEdge(e HyperedgeID) {
	for _, p := range h.edges[e].pins {
		h.removeIncidentEdge(p, e)
	}
	h.edges[e].valid = false
	h.currentNumEdges--
	h.currentNumPins -= len(h.edges[e].pins)
	h.clearPinCounts(e)
}

// RestoreEdge re-enables a hyperedge removed by RemoveEdge. Pin counts are
// recomputed from the current blocks of its pins since they may have moved
// while the edge was absent.
func (h *Hypergraph) RestoreEdge(e HyperedgeID) {
	h.edges[e].valid = true
	for _, p := range h.edges[e].pins {
		h.nodes[p].edges = append(h.nodes[p].edges, e)
		if part := h.partIDs[p]; part != InvalidPartition {
			h.incrementPinCount(e, part)
		}
	}
	h.currentNumEdges++
	h.currentNumPins += len(h.edges[e].pins)
}

// RemoveParallelEdge removes e, whose pin set equals that of representative,
// and adds its weight to the representative.
func (h *Hypergraph) RemoveParallelEdge(representative, e HyperedgeID) {
	h.edges[representative].weight += h.edges[e].weight
	h.RemoveEdge(e)
}

// RestoreParallelEdge reverses RemoveParallelEdge.
func (h *Hypergraph) RestoreParallelEdge(representative, e HyperedgeID) {
	h.RestoreEdge(e)
	h.edges[representative].weight -= h.edges[e].weight
}
