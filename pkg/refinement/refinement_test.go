package refinement

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

func randomPartitionedHypergraph(t *testing.T, numNodes, numEdges, k int, seed int64) *hypergraph.Hypergraph {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var edges [][]hypergraph.HypernodeID
	var weights []hypergraph.HyperedgeWeight
	for len(edges) < numEdges {
		edges = append(edges, rng.Perm(numNodes)[:2+rng.Intn(4)])
		weights = append(weights, 1+rng.Intn(3))
	}
	hg, err := hypergraph.New(numNodes, edges, weights, nil, k)
	require.NoError(t, err)
	parts := make([]hypergraph.PartitionID, numNodes)
	for u := range parts {
		parts[u] = u % k
	}
	require.NoError(t, hg.ApplyPartition(parts))
	return hg
}

func testConfig(k int, objective metrics.Objective) config.Config {
	cfg := config.Default()
	cfg.Partition.K = k
	cfg.Partition.Objective = objective
	cfg.FM.MaxNumberOfFruitlessMoves = 10
	return cfg
}

type refinerCase struct {
	name      string
	k         int
	objective metrics.Objective
	build     func(*hypergraph.Hypergraph, config.Config) Refiner
}

func refinerCases() []refinerCase {
	env := Env{Logger: zerolog.Nop()}
	return []refinerCase{
		{"twoway_fm", 2, metrics.ObjectiveCut, func(hg *hypergraph.Hypergraph, cfg config.Config) Refiner {
			return NewTwoWayFM(hg, cfg, env)
		}},
		{"kway_fm", 4, metrics.ObjectiveCut, func(hg *hypergraph.Hypergraph, cfg config.Config) Refiner {
			return NewKWayFM(hg, cfg, env)
		}},
		{"kway_fm_km1", 4, metrics.ObjectiveKM1, func(hg *hypergraph.Hypergraph, cfg config.Config) Refiner {
			return NewKWayFMKM1(hg, cfg, env)
		}},
		{"kway_fm_maxgain", 3, metrics.ObjectiveKM1, func(hg *hypergraph.Hypergraph, cfg config.Config) Refiner {
			return NewMaxGainNodeKWayFM(hg, cfg, env)
		}},
		{"label_propagation", 3, metrics.ObjectiveCut, func(hg *hypergraph.Hypergraph, cfg config.Config) Refiner {
			return NewLabelPropagation(hg, cfg, env)
		}},
	}
}

func TestRefinersNeverWorsenAndKeepBalance(t *testing.T) {
	for _, tc := range refinerCases() {
		t.Run(tc.name, func(t *testing.T) {
			for seed := int64(1); seed <= 5; seed++ {
				hg := randomPartitionedHypergraph(t, 60, 90, tc.k, seed)
				cfg := testConfig(tc.k, tc.objective)
				maxPartWeight := int(1.1 * float64(metrics.PerfectBalancePartWeight(hg.TotalWeight(), tc.k)))
				r := tc.build(hg, cfg)
				assert.Equal(t, tc.name, r.Name())
				r.Initialize()

				before := metrics.Compute(hg)
				m := before
				for pass := 0; pass < 3; pass++ {
					prev := m.Value(tc.objective)
					improved := r.Refine(hg.Nodes(), maxPartWeight, &m)

					after := metrics.Compute(hg)
					require.Equal(t, after.Value(tc.objective), m.Value(tc.objective), "reported objective")
					assert.InDelta(t, after.Imbalance, m.Imbalance, 1e-12)
					assert.LessOrEqual(t, after.Value(tc.objective), prev)
					if after.Value(tc.objective) < prev {
						assert.True(t, improved)
					}
					require.NoError(t, hg.CheckBalance(maxPartWeight))
					require.NoError(t, hg.Validate())
				}
			}
		})
	}
}

func TestFMImprovesAlternatingPath(t *testing.T) {
	// path 0-1-2-3 split as {0,2}|{1,3} cuts every edge
	for _, tc := range refinerCases() {
		if tc.name == "label_propagation" {
			continue
		}
		t.Run(tc.name, func(t *testing.T) {
			hg, err := hypergraph.New(4, [][]hypergraph.HypernodeID{{0, 1}, {1, 2}, {2, 3}}, nil, nil, 2)
			require.NoError(t, err)
			require.NoError(t, hg.ApplyPartition([]hypergraph.PartitionID{0, 1, 0, 1}))
			cfg := testConfig(2, tc.objective)
			r := tc.build(hg, cfg)
			r.Initialize()

			m := metrics.Compute(hg)
			require.Equal(t, 3, m.Cut)
			assert.True(t, r.Refine([]hypergraph.HypernodeID{0, 1, 2, 3}, 3, &m))

			assert.Equal(t, 1, metrics.Cut(hg))
			assert.Equal(t, 1, m.Value(tc.objective))
			require.NoError(t, hg.CheckBalance(3))
		})
	}
}

func TestFMRespectsZeroImbalance(t *testing.T) {
	// with ε = 0 every single move overloads a block, so nothing changes
	hg, err := hypergraph.New(4, [][]hypergraph.HypernodeID{{0, 1}, {1, 2}, {2, 3}}, nil, nil, 2)
	require.NoError(t, err)
	require.NoError(t, hg.ApplyPartition([]hypergraph.PartitionID{0, 1, 0, 1}))
	r := NewKWayFM(hg, testConfig(2, metrics.ObjectiveCut), Env{Logger: zerolog.Nop()})

	m := metrics.Compute(hg)
	assert.False(t, r.Refine(hg.Nodes(), 2, &m))
	assert.Equal(t, []hypergraph.PartitionID{0, 1, 0, 1}, hg.Partition())
}

func TestTwoWayFMGlobalRebalancingRestoresFeasibility(t *testing.T) {
	hg, err := hypergraph.New(4, [][]hypergraph.HypernodeID{{0, 1}, {1, 2}, {2, 3}}, nil, nil, 2)
	require.NoError(t, err)
	require.NoError(t, hg.ApplyPartition([]hypergraph.PartitionID{0, 0, 0, 1}))
	cfg := testConfig(2, metrics.ObjectiveCut)
	cfg.FM.Rebalancing = config.RebalancingGlobal
	r := NewTwoWayFM(hg, cfg, Env{Logger: zerolog.Nop()})

	m := metrics.Compute(hg)
	r.Refine(hg.Nodes(), 2, &m)

	require.NoError(t, hg.CheckBalance(2))
	assert.Equal(t, 1, metrics.Cut(hg))
	assert.Equal(t, hg.PartID(0), hg.PartID(1))
}

func TestGainTableDeltasMatchRecomputation(t *testing.T) {
	for _, objective := range []metrics.Objective{metrics.ObjectiveCut, metrics.ObjectiveKM1} {
		t.Run(string(objective), func(t *testing.T) {
			hg := randomPartitionedHypergraph(t, 30, 50, 3, 9)
			table := newGainTable(hg, objective)
			for _, u := range hg.Nodes() {
				table.compute(u)
			}
			rng := rand.New(rand.NewSource(4))
			for i := 0; i < 40; i++ {
				u := rng.Intn(30)
				from := hg.PartID(u)
				to := (from + 1 + rng.Intn(2)) % 3
				hg.ChangeNodePart(u, from, to)
				table.compute(u)
				for _, e := range hg.IncidentEdges(u) {
					for _, v := range hg.Pins(e) {
						if v != u {
							table.applyDelta(v, e, from, to)
						}
					}
				}
			}

			fresh := newGainTable(hg, objective)
			for _, u := range hg.Nodes() {
				fresh.compute(u)
				for b := 0; b < 3; b++ {
					if b != hg.PartID(u) {
						require.Equal(t, fresh.gain(u, b), table.gain(u, b), "node %d block %d", u, b)
						require.Equal(t, moveGain(hg, contributionFor(objective), u, b), fresh.gain(u, b))
					}
				}
			}
		})
	}
}

func TestLabelPropagationMovesTowardConnectedBlock(t *testing.T) {
	// node 4 sits in block 1 but all of its hyperedges lead into block 0
	hg, err := hypergraph.New(6, [][]hypergraph.HypernodeID{{0, 4}, {1, 4}, {2, 3}, {3, 5}},
		nil, nil, 2)
	require.NoError(t, err)
	require.NoError(t, hg.ApplyPartition([]hypergraph.PartitionID{0, 0, 1, 1, 1, 1}))
	r := NewLabelPropagation(hg, testConfig(2, metrics.ObjectiveCut), Env{Logger: zerolog.Nop()})

	m := metrics.Compute(hg)
	require.Equal(t, 2, m.Cut)
	assert.True(t, r.Refine([]hypergraph.HypernodeID{4}, 4, &m))

	assert.Equal(t, 0, hg.PartID(4))
	assert.Equal(t, 0, m.Cut)
	assert.Equal(t, 0, metrics.Cut(hg))
}

func TestDoNothingRefiner(t *testing.T) {
	var r Refiner = DoNothing{}
	r.Initialize()
	m := metrics.Metrics{Cut: 4}
	assert.False(t, r.Refine(nil, 10, &m))
	assert.Equal(t, 4, m.Cut)
	assert.Equal(t, "do_nothing", r.Name())
}
