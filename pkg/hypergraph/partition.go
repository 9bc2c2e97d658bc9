package hypergraph

import (
	"github.com/pkg/errors"
)

func (h *Hypergraph) PartID(u HypernodeID) PartitionID          { return h.partIDs[u] }
func (h *Hypergraph) PartWeight(p PartitionID) HypernodeWeight { return h.partWeights[p] }
func (h *Hypergraph) PartSize(p PartitionID) int               { return h.partSizes[p] }

// PinCountInPart returns how many pins of e lie in block p.
func (h *Hypergraph) PinCountInPart(e HyperedgeID, p PartitionID) int {
	return h.pinCounts[e*h.k+p]
}

// Connectivity returns the number of blocks e has pins in.
func (h *Hypergraph) Connectivity(e HyperedgeID) int { return h.connectivity[e] }

// ConnectivitySet returns the blocks e has pins in, ascending.
func (h *Hypergraph) ConnectivitySet(e HyperedgeID) []PartitionID {
	set := make([]PartitionID, 0, h.connectivity[e])
	base := e * h.k
	for p := 0; p < h.k; p++ {
		if h.pinCounts[base+p] > 0 {
			set = append(set, p)
		}
	}
	return set
}

// IsBorderNode reports whether u has an incident hyperedge spanning more
// than one block.
func (h *Hypergraph) IsBorderNode(u HypernodeID) bool {
	for _, e := range h.nodes[u].edges {
		if h.connectivity[e] > 1 {
			return true
		}
	}
	return false
}

// IsPartitioned reports whether every valid hypernode has a block.
func (h *Hypergraph) IsPartitioned() bool {
	for u := range h.nodes {
		if h.nodes[u].valid && h.partIDs[u] == InvalidPartition {
			return false
		}
	}
	return true
}

// SetNodePart assigns an unassigned hypernode to block p.
func (h *Hypergraph) SetNodePart(u HypernodeID, p PartitionID) {
	h.partIDs[u] = p
	h.partWeights[p] += h.nodes[u].weight
	h.partSizes[p]++
	for _, e := range h.nodes[u].edges {
		h.incrementPinCount(e, p)
	}
}

// ChangeNodePart moves u from block from to block to.
func (h *Hypergraph) ChangeNodePart(u HypernodeID, from, to PartitionID) {
	w := h.nodes[u].weight
	h.partIDs[u] = to
	h.partWeights[from] -= w
	h.partWeights[to] += w
	h.partSizes[from]--
	h.partSizes[to]++
	for _, e := range h.nodes[u].edges {
		h.decrementPinCount(e, from)
		h.incrementPinCount(e, to)
	}
}

// ResetPartitioning unassigns every hypernode.
func (h *Hypergraph) ResetPartitioning() {
	for u := range h.partIDs {
		h.partIDs[u] = InvalidPartition
	}
	for p := range h.partWeights {
		h.partWeights[p] = 0
		h.partSizes[p] = 0
	}
	for i := range h.pinCounts {
		h.pinCounts[i] = 0
	}
	for e := range h.connectivity {
		h.connectivity[e] = 0
	}
}

// Partition returns a copy of the block of every hypernode, indexed by the
// original hypernode id. Entries of contracted hypernodes are meaningless.
func (h *Hypergraph) Partition() []PartitionID {
	return append([]PartitionID(nil), h.partIDs...)
}

// ApplyPartition replaces the partition state with parts, which is indexed
// by hypernode id and must assign every valid hypernode a block in [0,k).
func (h *Hypergraph) ApplyPartition(parts []PartitionID) error {
	if len(parts) != len(h.nodes) {
		return errors.Wrapf(ErrInvalidHypergraph, "partition has %d entries for %d hypernodes",
			len(parts), len(h.nodes))
	}
	for u, p := range parts {
		if h.nodes[u].valid && (p < 0 || p >= h.k) {
			return errors.Wrapf(ErrInvalidHypergraph, "hypernode %d assigned to block %d outside [0,%d)", u, p, h.k)
		}
	}
	h.ResetPartitioning()
	for u, p := range parts {
		if h.nodes[u].valid {
			h.SetNodePart(u, p)
		}
	}
	return nil
}

// CheckBalance returns ErrBalanceViolation if any block is heavier than
// maxPartWeight or any valid hypernode is unassigned.
func (h *Hypergraph) CheckBalance(maxPartWeight HypernodeWeight) error {
	if err := h.CheckPartWeights(maxPartWeight); err != nil {
		return err
	}
	if !h.IsPartitioned() {
		return errors.Wrap(ErrBalanceViolation, "unassigned hypernode")
	}
	return nil
}

// CheckPartWeights is the O(k) part of CheckBalance: it only compares the
// block weights against maxPartWeight.
func (h *Hypergraph) CheckPartWeights(maxPartWeight HypernodeWeight) error {
	for p, w := range h.partWeights {
		if w > maxPartWeight {
			return errors.Wrapf(ErrBalanceViolation, "block %d has weight %d, maximum is %d", p, w, maxPartWeight)
		}
	}
	return nil
}

func (h *Hypergraph) incrementPinCount(e HyperedgeID, p PartitionID) {
	i := e*h.k + p
	h.pinCounts[i]++
	if h.pinCounts[i] == 1 {
		h.connectivity[e]++
	}
}

func (h *Hypergraph) decrementPinCount(e HyperedgeID, p PartitionID) {
	i := e*h.k + p
	h.pinCounts[i]--
	if h.pinCounts[i] == 0 {
		h.connectivity[e]--
	}
}

func (h *Hypergraph) clearPinCounts(e HyperedgeID) {
	base := e * h.k
	for p := 0; p < h.k; p++ {
		h.pinCounts[base+p] = 0
	}
	h.connectivity[e] = 0
}
