package coarsening

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

func randomHypergraph(t *testing.T, numNodes, numEdges int, seed int64) *hypergraph.Hypergraph {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var edges [][]hypergraph.HypernodeID
	var weights []hypergraph.HyperedgeWeight
	for len(edges) < numEdges {
		size := 2 + rng.Intn(4)
		edges = append(edges, rng.Perm(numNodes)[:size])
		weights = append(weights, 1+rng.Intn(3))
	}
	// one exact duplicate in reverse pin order
	dup := append([]hypergraph.HypernodeID(nil), edges[0]...)
	sort.Sort(sort.Reverse(sort.IntSlice(dup)))
	edges = append(edges, dup)
	weights = append(weights, 2)
	hg, err := hypergraph.New(numNodes, edges, weights, nil, 2)
	require.NoError(t, err)
	return hg
}

func deriveConfig(t *testing.T, hg *hypergraph.Hypergraph, settings map[string]interface{}) config.Config {
	t.Helper()
	l := config.NewLoader()
	l.Set("coarsening.contraction_limit", 2)
	l.Set("coarsening.max_allowed_weight_multiplier", 100.0)
	l.Set("partition.epsilon", 1.0)
	for k, v := range settings {
		l.Set(k, v)
	}
	cfg, err := l.Build()
	require.NoError(t, err)
	cfg, err = cfg.Derive(hg.TotalWeight(), hg.CurrentNumNodes(), hg.HeaviestNodeWeight())
	require.NoError(t, err)
	return cfg
}

type structure struct {
	pins        [][]hypergraph.HypernodeID
	incident    [][]hypergraph.HyperedgeID
	edgeWeights []hypergraph.HyperedgeWeight
	nodeWeights []hypergraph.HypernodeWeight
}

func structureOf(hg *hypergraph.Hypergraph) structure {
	var s structure
	for e := 0; e < hg.InitialNumEdges(); e++ {
		pins := append([]hypergraph.HypernodeID(nil), hg.Pins(e)...)
		sort.Ints(pins)
		s.pins = append(s.pins, pins)
		s.edgeWeights = append(s.edgeWeights, hg.EdgeWeight(e))
	}
	for u := 0; u < hg.InitialNumNodes(); u++ {
		inc := append([]hypergraph.HyperedgeID(nil), hg.IncidentEdges(u)...)
		sort.Ints(inc)
		s.incident = append(s.incident, inc)
		s.nodeWeights = append(s.nodeWeights, hg.NodeWeight(u))
	}
	return s
}

func newCoarsener(alg config.CoarseningAlgorithm, hg *hypergraph.Hypergraph, cfg config.Config) Coarsener {
	switch alg {
	case config.CoarseningFull:
		return NewFull(hg, cfg, zerolog.Nop())
	case config.CoarseningML:
		return NewML(hg, cfg, zerolog.Nop())
	case config.CoarseningDoNothing:
		return NewDoNothing()
	default:
		return NewLazy(hg, cfg, zerolog.Nop())
	}
}

func TestCoarsenersRoundTrip(t *testing.T) {
	for _, alg := range []config.CoarseningAlgorithm{config.CoarseningFull, config.CoarseningLazy, config.CoarseningML} {
		t.Run(string(alg), func(t *testing.T) {
			hg := randomHypergraph(t, 40, 70, 7)
			before := structureOf(hg)
			cfg := deriveConfig(t, hg, map[string]interface{}{"coarsening.contraction_limit": 8})

			c := newCoarsener(alg, hg, cfg)
			c.Coarsen(cfg.Coarsening.ContractionLimit)

			assert.Equal(t, string(alg), c.Name())
			assert.Less(t, hg.CurrentNumNodes(), 40)
			assert.GreaterOrEqual(t, hg.CurrentNumNodes(), 8)
			assert.Equal(t, 40, hg.TotalWeight())
			require.NoError(t, hg.Validate())
			for _, u := range hg.Nodes() {
				assert.LessOrEqual(t, hg.NodeWeight(u), cfg.Coarsening.MaxAllowedNodeWeight)
			}

			for {
				m, ok := c.History().Pop()
				if !ok {
					break
				}
				Restore(hg, m)
			}
			require.NoError(t, hg.Validate())
			assert.Equal(t, before, structureOf(hg))
		})
	}
}

func TestCoarsenReachesLimitWhenUnconstrained(t *testing.T) {
	hg := randomHypergraph(t, 30, 80, 3)
	cfg := deriveConfig(t, hg, map[string]interface{}{"coarsening.contraction_limit": 10})

	c := NewLazy(hg, cfg, zerolog.Nop())
	c.Coarsen(10)

	assert.Equal(t, 10, hg.CurrentNumNodes())
	assert.Equal(t, 20, c.History().Len())
}

func TestCoarsenStopsWithoutCandidates(t *testing.T) {
	// two isolated hyperedges: nothing is left to rate after two contractions
	hg, err := hypergraph.New(4, [][]hypergraph.HypernodeID{{0, 1}, {2, 3}}, nil, nil, 2)
	require.NoError(t, err)
	cfg := deriveConfig(t, hg, map[string]interface{}{"coarsening.contraction_limit": 1})

	c := NewFull(hg, cfg, zerolog.Nop())
	c.Coarsen(1)

	assert.Equal(t, 2, hg.CurrentNumNodes())
	assert.Equal(t, 0, hg.CurrentNumEdges())
	require.Equal(t, 2, c.History().Len())
	m, _ := c.History().Pop()
	assert.Len(t, m.SinglePinEdges, 1)
}

func TestContractionMergesParallelEdges(t *testing.T) {
	// contracting 1 into 0 turns {0,2} and {1,2} into the same pin set
	hg, err := hypergraph.New(3, [][]hypergraph.HypernodeID{{0, 1}, {0, 2}, {1, 2}},
		[]hypergraph.HyperedgeWeight{5, 1, 2}, nil, 2)
	require.NoError(t, err)
	cfg := deriveConfig(t, hg, map[string]interface{}{"coarsening.tie_breaking": "first"})

	c := NewFull(hg, cfg, zerolog.Nop())
	c.Coarsen(2)

	require.Equal(t, 1, c.History().Len())
	m, _ := c.History().Pop()
	assert.Equal(t, 0, m.Contraction.U)
	assert.Equal(t, 1, m.Contraction.V)
	assert.Equal(t, []hypergraph.HyperedgeID{0}, m.SinglePinEdges)
	require.Len(t, m.ParallelEdges, 1)
	assert.Equal(t, 3, hg.EdgeWeight(m.ParallelEdges[0].Representative))
	assert.Equal(t, 1, hg.CurrentNumEdges())
	require.NoError(t, hg.Validate())

	Restore(hg, m)
	assert.Equal(t, 1, hg.EdgeWeight(1))
	assert.Equal(t, 2, hg.EdgeWeight(2))
	require.NoError(t, hg.Validate())
}

func TestCoarseningKeepsBlocksApart(t *testing.T) {
	hg := randomHypergraph(t, 20, 40, 11)
	parts := make([]hypergraph.PartitionID, 20)
	for u := 10; u < 20; u++ {
		parts[u] = 1
	}
	require.NoError(t, hg.ApplyPartition(parts))
	cfg := deriveConfig(t, hg, nil)

	c := NewML(hg, cfg, zerolog.Nop())
	c.Coarsen(cfg.Coarsening.ContractionLimit)

	assert.GreaterOrEqual(t, hg.CurrentNumNodes(), 2)
	assert.Equal(t, 10, hg.PartWeight(0))
	assert.Equal(t, 10, hg.PartWeight(1))
	for {
		m, ok := c.History().Pop()
		if !ok {
			break
		}
		assert.Equal(t, hg.PartID(m.Contraction.U), parts[m.Contraction.V])
		Restore(hg, m)
	}
	assert.Equal(t, parts, hg.Partition())
	require.NoError(t, hg.Validate())
}

func TestDoNothingCoarsener(t *testing.T) {
	hg := randomHypergraph(t, 10, 10, 1)
	c := NewDoNothing()
	c.Coarsen(2)
	assert.Equal(t, 10, hg.CurrentNumNodes())
	assert.Equal(t, 0, c.History().Len())
}
