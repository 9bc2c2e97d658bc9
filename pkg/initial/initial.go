// Package initial computes the first k-way partition of the coarsest
// hypergraph, either natively or by delegating to an external partitioner.
package initial

import (
	"context"
	"math/rand"
	"sort"

	"github.com/pkg/errors"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// ErrExternalToolFailure reports a failing external partitioner run:
// non-zero exit, missing output or output that does not parse.
var ErrExternalToolFailure = errors.New("initial: external partitioner failed")

// InitialPartitioner assigns every valid hypernode of hg to a block. The
// result must respect the maximum block weight of the configuration.
type InitialPartitioner interface {
	Partition(ctx context.Context, hg *hypergraph.Hypergraph) error
	Name() string
}

// Native is the built-in partitioner with greedy, BFS and random modes.
type Native struct {
	mode          config.InitialPartitioningMode
	maxPartWeight hypergraph.HypernodeWeight
	perfectWeight hypergraph.HypernodeWeight
	rng           *rand.Rand
}

func NewNative(cfg config.Config, seed int64) *Native {
	return &Native{
		mode:          cfg.InitialPartitioning.Mode,
		maxPartWeight: cfg.Partition.MaxPartWeight,
		perfectWeight: cfg.Partition.PerfectBalancePartWeight,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

func (n *Native) Name() string {
	return string(config.InitialPartitionerKaHyPar) + "/" + string(n.mode)
}

func (n *Native) Partition(ctx context.Context, hg *hypergraph.Hypergraph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hg.ResetPartitioning()
	switch n.mode {
	case config.ModeBFS:
		n.bfs(hg)
	case config.ModeRandom:
		n.random(hg)
	default:
		n.greedy(hg, hg.Nodes())
	}
	return errors.Wrap(hg.CheckBalance(n.maxPartWeight), n.Name())
}

// greedy assigns the unassigned nodes among nodes heaviest first. A node
// joins the block it shares the most hyperedge weight with, among the blocks
// that stay within the perfect block weight; ties go to the lighter and then
// the lower block. Otherwise it goes to the lightest block it fits into, and
// to the lightest block overall if it fits nowhere.
func (n *Native) greedy(hg *hypergraph.Hypergraph, nodes []hypergraph.HypernodeID) {
	order := append([]hypergraph.HypernodeID(nil), nodes...)
	sort.SliceStable(order, func(i, j int) bool {
		wi, wj := hg.NodeWeight(order[i]), hg.NodeWeight(order[j])
		if wi != wj {
			return wi > wj
		}
		return order[i] < order[j]
	})
	connection := make([]hypergraph.HyperedgeWeight, hg.K())
	for _, u := range order {
		if hg.PartID(u) != hypergraph.InvalidPartition {
			continue
		}
		hg.SetNodePart(u, n.greedyBlock(hg, u, connection))
	}
}

func (n *Native) greedyBlock(hg *hypergraph.Hypergraph, u hypergraph.HypernodeID,
	connection []hypergraph.HyperedgeWeight) hypergraph.PartitionID {
	for b := range connection {
		connection[b] = 0
	}
	for _, e := range hg.IncidentEdges(u) {
		for b := 0; b < hg.K(); b++ {
			if hg.PinCountInPart(e, b) > 0 {
				connection[b] += hg.EdgeWeight(e)
			}
		}
	}

	best := hypergraph.InvalidPartition
	for b := 0; b < hg.K(); b++ {
		if hg.PartWeight(b)+hg.NodeWeight(u) > n.perfectWeight {
			continue
		}
		if best < 0 || connection[b] > connection[best] ||
			(connection[b] == connection[best] && hg.PartWeight(b) < hg.PartWeight(best)) {
			best = b
		}
	}
	if best >= 0 {
		return best
	}
	return n.lightestBlock(hg, u)
}

func (n *Native) lightestBlock(hg *hypergraph.Hypergraph, u hypergraph.HypernodeID) hypergraph.PartitionID {
	best, bestFitting := 0, hypergraph.InvalidPartition
	for b := 0; b < hg.K(); b++ {
		if hg.PartWeight(b) < hg.PartWeight(best) {
			best = b
		}
		fits := hg.PartWeight(b)+hg.NodeWeight(u) <= n.maxPartWeight
		if fits && (bestFitting < 0 || hg.PartWeight(b) < hg.PartWeight(bestFitting)) {
			bestFitting = b
		}
	}
	if bestFitting >= 0 {
		return bestFitting
	}
	return best
}

// bfs grows blocks 0..k-2 one after another from a random unassigned seed
// until they reach the perfect block weight; the rest is placed greedily.
func (n *Native) bfs(hg *hypergraph.Hypergraph) {
	nodes := hg.Nodes()
	queued := make([]bool, hg.InitialNumNodes())
	for b := 0; b < hg.K()-1; b++ {
		var unassigned []hypergraph.HypernodeID
		for _, u := range nodes {
			if hg.PartID(u) == hypergraph.InvalidPartition {
				unassigned = append(unassigned, u)
			}
		}
		if len(unassigned) == 0 {
			break
		}
		for _, u := range unassigned {
			queued[u] = false
		}
		seed := unassigned[n.rng.Intn(len(unassigned))]
		queue := []hypergraph.HypernodeID{seed}
		queued[seed] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			if hg.PartWeight(b)+hg.NodeWeight(u) > n.perfectWeight {
				continue
			}
			hg.SetNodePart(u, b)
			for _, e := range hg.IncidentEdges(u) {
				for _, v := range hg.Pins(e) {
					if !queued[v] && hg.PartID(v) == hypergraph.InvalidPartition {
						queued[v] = true
						queue = append(queue, v)
					}
				}
			}
		}
	}
	n.greedy(hg, nodes)
}

// random places nodes in random order into a random block they fit into.
func (n *Native) random(hg *hypergraph.Hypergraph) {
	nodes := hg.Nodes()
	n.rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
	fitting := make([]hypergraph.PartitionID, 0, hg.K())
	for _, u := range nodes {
		fitting = fitting[:0]
		for b := 0; b < hg.K(); b++ {
			if hg.PartWeight(b)+hg.NodeWeight(u) <= n.maxPartWeight {
				fitting = append(fitting, b)
			}
		}
		if len(fitting) == 0 {
			hg.SetNodePart(u, n.lightestBlock(hg, u))
			continue
		}
		hg.SetNodePart(u, fitting[n.rng.Intn(len(fitting))])
	}
}
