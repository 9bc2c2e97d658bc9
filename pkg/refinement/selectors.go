package refinement

import (
	"github.com/gilchrisn/hypergraph-partitioner/pkg/datastructure"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

func newGainHeap(n int) *datastructure.MaxHeap[hypergraph.Gain] {
	return datastructure.NewMaxHeap[hypergraph.Gain](n)
}

// twoWaySelector keeps the nodes of each block in their own queue, keyed by
// the gain of moving them to the other block.
type twoWaySelector struct {
	pq          [2]*datastructure.MaxHeap[hypergraph.Gain]
	rebalancing RebalancingPolicy
}

func (s *twoWaySelector) clear() {
	s.pq[0].Clear()
	s.pq[1].Clear()
}

func (s *twoWaySelector) insert(f *FM, u hypergraph.HypernodeID) {
	b := f.hg.PartID(u)
	s.pq[b].Push(u, f.table.gain(u, 1-b))
}

func (s *twoWaySelector) update(f *FM, u hypergraph.HypernodeID) {
	b := f.hg.PartID(u)
	if s.pq[b].Contains(u) {
		s.pq[b].Update(u, f.table.gain(u, 1-b))
	}
}

func (s *twoWaySelector) remove(u hypergraph.HypernodeID) {
	s.pq[0].Remove(u)
	s.pq[1].Remove(u)
}

// next compares the tops of both queues. A top the rebalancing policy does
// not admit disables its queue for this decision. Equal gains prefer moving
// out of the heavier block.
func (s *twoWaySelector) next(f *FM) (hypergraph.HypernodeID, hypergraph.PartitionID, bool) {
	infeasible := !metrics.Feasible(f.hg, f.maxPartWeight)
	bestBlock := -1
	var bestNode hypergraph.HypernodeID
	var bestGain hypergraph.Gain
	for b := 0; b < 2; b++ {
		if s.pq[b].Empty() {
			continue
		}
		u, g := s.pq[b].Top()
		if !s.rebalancing.Admissible(f.moveCandidate(u, 1-b), infeasible) {
			continue
		}
		if bestBlock < 0 || g > bestGain || (g == bestGain && f.hg.PartWeight(b) > f.hg.PartWeight(bestBlock)) {
			bestBlock, bestNode, bestGain = b, u, g
		}
	}
	if bestBlock < 0 {
		return hypergraph.InvalidNode, hypergraph.InvalidPartition, false
	}
	return bestNode, 1 - bestBlock, true
}

// kwaySelector keeps one queue per target block. A node whose move to a
// block does not fit when it reaches the top is dropped from that block's
// queue for the rest of the pass.
type kwaySelector struct {
	pq []*datastructure.MaxHeap[hypergraph.Gain]
}

func newKWaySelector(hg *hypergraph.Hypergraph) *kwaySelector {
	s := &kwaySelector{pq: make([]*datastructure.MaxHeap[hypergraph.Gain], hg.K())}
	for b := range s.pq {
		s.pq[b] = newGainHeap(hg.InitialNumNodes())
	}
	return s
}

func (s *kwaySelector) clear() {
	for _, q := range s.pq {
		q.Clear()
	}
}

func (s *kwaySelector) insert(f *FM, u hypergraph.HypernodeID) {
	from := f.hg.PartID(u)
	for b, q := range s.pq {
		if b != from {
			q.Push(u, f.table.gain(u, b))
		}
	}
}

func (s *kwaySelector) update(f *FM, u hypergraph.HypernodeID) {
	for b, q := range s.pq {
		if q.Contains(u) {
			q.Update(u, f.table.gain(u, b))
		}
	}
}

func (s *kwaySelector) remove(u hypergraph.HypernodeID) {
	for _, q := range s.pq {
		q.Remove(u)
	}
}

// next picks the best top over all target queues; equal gains prefer the
// lighter target block, then the lower block id.
func (s *kwaySelector) next(f *FM) (hypergraph.HypernodeID, hypergraph.PartitionID, bool) {
	for {
		bestBlock := -1
		var bestGain hypergraph.Gain
		for b, q := range s.pq {
			if q.Empty() {
				continue
			}
			_, g := q.Top()
			if bestBlock < 0 || g > bestGain || (g == bestGain && f.hg.PartWeight(b) < f.hg.PartWeight(bestBlock)) {
				bestBlock, bestGain = b, g
			}
		}
		if bestBlock < 0 {
			return hypergraph.InvalidNode, hypergraph.InvalidPartition, false
		}
		u, _ := s.pq[bestBlock].Top()
		if !f.fits(u, bestBlock) {
			s.pq[bestBlock].Pop()
			continue
		}
		return u, bestBlock, true
	}
}

// maxGainSelector keeps every node once, keyed by its best gain over all
// target blocks. Equal node keys prefer the lower node id (heap order);
// equal target gains prefer the lighter block, then the lower block id.
type maxGainSelector struct {
	pq *datastructure.MaxHeap[hypergraph.Gain]
}

func (s *maxGainSelector) clear() { s.pq.Clear() }

func (s *maxGainSelector) insert(f *FM, u hypergraph.HypernodeID) {
	if _, g, ok := s.bestTarget(f, u, false); ok {
		s.pq.Push(u, g)
	}
}

func (s *maxGainSelector) update(f *FM, u hypergraph.HypernodeID) {
	if !s.pq.Contains(u) {
		return
	}
	_, g, _ := s.bestTarget(f, u, false)
	s.pq.Update(u, g)
}

func (s *maxGainSelector) remove(u hypergraph.HypernodeID) { s.pq.Remove(u) }

func (s *maxGainSelector) bestTarget(f *FM, u hypergraph.HypernodeID, fitting bool) (hypergraph.PartitionID, hypergraph.Gain, bool) {
	from := f.hg.PartID(u)
	best := hypergraph.InvalidPartition
	var bestGain hypergraph.Gain
	for b := 0; b < f.hg.K(); b++ {
		if b == from || (fitting && !f.fits(u, b)) {
			continue
		}
		g := f.table.gain(u, b)
		if best < 0 || g > bestGain || (g == bestGain && f.hg.PartWeight(b) < f.hg.PartWeight(best)) {
			best, bestGain = b, g
		}
	}
	return best, bestGain, best >= 0
}

// next re-keys a top whose best target does not fit to its best fitting
// gain and drops it when nothing fits.
func (s *maxGainSelector) next(f *FM) (hypergraph.HypernodeID, hypergraph.PartitionID, bool) {
	for !s.pq.Empty() {
		u, key := s.pq.Top()
		b, g, ok := s.bestTarget(f, u, true)
		if !ok {
			s.pq.Remove(u)
			continue
		}
		if g < key {
			s.pq.Update(u, g)
			continue
		}
		return u, b, true
	}
	return hypergraph.InvalidNode, hypergraph.InvalidPartition, false
}
