package hypergraph

import (
	"github.com/pkg/errors"
)

// Identifiers and weights are plain ints; the aliases only document intent.
type (
	HypernodeID     = int
	HyperedgeID     = int
	PartitionID     = int
	HypernodeWeight = int
	HyperedgeWeight = int
	Gain            = int
)

const (
	// InvalidNode marks "no hypernode", e.g. an unratable contraction partner.
	InvalidNode HypernodeID = -1
	// InvalidPartition is the block of a hypernode before initial partitioning.
	InvalidPartition PartitionID = -1
)

var (
	// ErrInvalidHypergraph is returned when construction input or internal
	// incidence state violates the hypergraph invariants.
	ErrInvalidHypergraph = errors.New("hypergraph: invalid structure")

	// ErrBalanceViolation signals a block heavier than the allowed maximum.
	// Refinement never produces it. Initial partitioning reports it when the
	// coarse hypernode weights cannot be packed into k blocks.
	ErrBalanceViolation = errors.New("hypergraph: balance violation")
)

type hypernode struct {
	weight HypernodeWeight
	edges  []HyperedgeID
	valid  bool
}

type hyperedge struct {
	weight HyperedgeWeight
	pins   []HypernodeID
	valid  bool
}

// Hypergraph is an arena-indexed weighted hypergraph with k-way partition
// state. Hypernodes and hyperedges are addressed by their index; the
// Hypergraph is the single owner of both incidence directions and keeps them
// consistent across contraction, uncontraction and edge removal.
//
// A Hypergraph is not safe for concurrent mutation. Parallel consumers work
// on a Clone.
type Hypergraph struct {
	nodes []hypernode
	edges []hyperedge
	k     int

	currentNumNodes int
	currentNumEdges int
	currentNumPins  int
	totalWeight     HypernodeWeight

	partIDs      []PartitionID
	partWeights  []HypernodeWeight
	partSizes    []int
	pinCounts    []int // pinCounts[e*k+p]
	connectivity []int

	edgeMark []bool // scratch for Uncontract
}

// New builds a hypergraph with numNodes hypernodes and the given hyperedges.
// Nil weight slices mean unit weights. k is the number of blocks the
// partition state is sized for.
func New(numNodes int, edges [][]HypernodeID, edgeWeights []HyperedgeWeight,
	nodeWeights []HypernodeWeight, k int) (*Hypergraph, error) {
	if numNodes < 0 {
		return nil, errors.Wrapf(ErrInvalidHypergraph, "negative node count %d", numNodes)
	}
	if k < 1 {
		return nil, errors.Wrapf(ErrInvalidHypergraph, "k must be positive, got %d", k)
	}
	if edgeWeights != nil && len(edgeWeights) != len(edges) {
		return nil, errors.Wrapf(ErrInvalidHypergraph, "%d edge weights for %d hyperedges",
			len(edgeWeights), len(edges))
	}
	if nodeWeights != nil && len(nodeWeights) != numNodes {
		return nil, errors.Wrapf(ErrInvalidHypergraph, "%d node weights for %d hypernodes",
			len(nodeWeights), numNodes)
	}

	hg := &Hypergraph{
		nodes:           make([]hypernode, numNodes),
		edges:           make([]hyperedge, len(edges)),
		k:               k,
		currentNumNodes: numNodes,
		currentNumEdges: len(edges),
		partIDs:         make([]PartitionID, numNodes),
		partWeights:     make([]HypernodeWeight, k),
		partSizes:       make([]int, k),
		pinCounts:       make([]int, len(edges)*k),
		connectivity:    make([]int, len(edges)),
	}

	for u := range hg.nodes {
		w := 1
		if nodeWeights != nil {
			w = nodeWeights[u]
		}
		if w <= 0 {
			return nil, errors.Wrapf(ErrInvalidHypergraph, "hypernode %d has non-positive weight %d", u, w)
		}
		hg.nodes[u] = hypernode{weight: w, valid: true}
		hg.partIDs[u] = InvalidPartition
		hg.totalWeight += w
	}

	seen := make([]int, numNodes)
	for i := range seen {
		seen[i] = -1
	}
	for e, pins := range edges {
		if len(pins) == 0 {
			return nil, errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d has no pins", e)
		}
		w := 1
		if edgeWeights != nil {
			w = edgeWeights[e]
		}
		if w <= 0 {
			return nil, errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d has non-positive weight %d", e, w)
		}
		own := make([]HypernodeID, len(pins))
		for i, p := range pins {
			if p < 0 || p >= numNodes {
				return nil, errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d references unknown hypernode %d", e, p)
			}
			if seen[p] == e {
				return nil, errors.Wrapf(ErrInvalidHypergraph, "hyperedge %d contains hypernode %d twice", e, p)
			}
			seen[p] = e
			own[i] = p
			hg.nodes[p].edges = append(hg.nodes[p].edges, e)
		}
		hg.edges[e] = hyperedge{weight: w, pins: own, valid: true}
		hg.currentNumPins += len(pins)
	}
	return hg, nil
}

// K returns the number of blocks.
func (h *Hypergraph) K() int { return h.k }

// InitialNumNodes returns the number of hypernodes the hypergraph was built with.
func (h *Hypergraph) InitialNumNodes() int { return len(h.nodes) }

// InitialNumEdges returns the number of hyperedges the hypergraph was built with.
func (h *Hypergraph) InitialNumEdges() int { return len(h.edges) }

func (h *Hypergraph) CurrentNumNodes() int { return h.currentNumNodes }
func (h *Hypergraph) CurrentNumEdges() int { return h.currentNumEdges }
func (h *Hypergraph) CurrentNumPins() int  { return h.currentNumPins }

// TotalWeight is the sum of all hypernode weights; contraction conserves it.
func (h *Hypergraph) TotalWeight() HypernodeWeight { return h.totalWeight }

func (h *Hypergraph) NodeWeight(u HypernodeID) HypernodeWeight { return h.nodes[u].weight }
func (h *Hypergraph) EdgeWeight(e HyperedgeID) HyperedgeWeight { return h.edges[e].weight }
func (h *Hypergraph) EdgeSize(e HyperedgeID) int               { return len(h.edges[e].pins) }
func (h *Hypergraph) NodeDegree(u HypernodeID) int             { return len(h.nodes[u].edges) }
func (h *Hypergraph) NodeIsValid(u HypernodeID) bool           { return h.nodes[u].valid }
func (h *Hypergraph) EdgeIsValid(e HyperedgeID) bool           { return h.edges[e].valid }

// Pins returns the pins of e. The slice is owned by the hypergraph and must
// not be modified or retained across mutations.
func (h *Hypergraph) Pins(e HyperedgeID) []HypernodeID { return h.edges[e].pins }

// IncidentEdges returns the hyperedges incident to u. Same ownership rules as Pins.
func (h *Hypergraph) IncidentEdges(u HypernodeID) []HyperedgeID { return h.nodes[u].edges }

// Nodes returns the ids of all currently valid hypernodes in ascending order.
func (h *Hypergraph) Nodes() []HypernodeID {
	out := make([]HypernodeID, 0, h.currentNumNodes)
	for u := range h.nodes {
		if h.nodes[u].valid {
			out = append(out, u)
		}
	}
	return out
}

// Edges returns the ids of all currently valid hyperedges in ascending order.
func (h *Hypergraph) Edges() []HyperedgeID {
	out := make([]HyperedgeID, 0, h.currentNumEdges)
	for e := range h.edges {
		if h.edges[e].valid {
			out = append(out, e)
		}
	}
	return out
}

// HeaviestNodeWeight returns the largest weight among valid hypernodes.
func (h *Hypergraph) HeaviestNodeWeight() HypernodeWeight {
	heaviest := 0
	for u := range h.nodes {
		if h.nodes[u].valid && h.nodes[u].weight > heaviest {
			heaviest = h.nodes[u].weight
		}
	}
	return heaviest
}

// Clone returns a deep copy including partition state.
func (h *Hypergraph) Clone() *Hypergraph {
	c := &Hypergraph{
		nodes:           make([]hypernode, len(h.nodes)),
		edges:           make([]hyperedge, len(h.edges)),
		k:               h.k,
		currentNumNodes: h.currentNumNodes,
		currentNumEdges: h.currentNumEdges,
		currentNumPins:  h.currentNumPins,
		totalWeight:     h.totalWeight,
		partIDs:         append([]PartitionID(nil), h.partIDs...),
		partWeights:     append([]HypernodeWeight(nil), h.partWeights...),
		partSizes:       append([]int(nil), h.partSizes...),
		pinCounts:       append([]int(nil), h.pinCounts...),
		connectivity:    append([]int(nil), h.connectivity...),
	}
	for u, n := range h.nodes {
		c.nodes[u] = hypernode{weight: n.weight, valid: n.valid, edges: append([]HyperedgeID(nil), n.edges...)}
	}
	for e, he := range h.edges {
		c.edges[e] = hyperedge{weight: he.weight, valid: he.valid, pins: append([]HypernodeID(nil), he.pins...)}
	}
	return c
}

func (h *Hypergraph) removeIncidentEdge(u HypernodeID, e HyperedgeID) {
	edges := h.nodes[u].edges
	for i, he := range edges {
		if he == e {
			last := len(edges) - 1
			edges[i] = edges[last]
			h.nodes[u].edges = edges[:last]
			return
		}
	}
}
