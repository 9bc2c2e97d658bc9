package initial

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

// ring builds a cycle over n unit weight nodes.
func ring(t *testing.T, n, k int) *hypergraph.Hypergraph {
	t.Helper()
	edges := make([][]hypergraph.HypernodeID, n)
	for i := range edges {
		edges[i] = []hypergraph.HypernodeID{i, (i + 1) % n}
	}
	hg, err := hypergraph.New(n, edges, nil, nil, k)
	require.NoError(t, err)
	return hg
}

func derivedConfig(t *testing.T, hg *hypergraph.Hypergraph, k int) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Partition.K = k
	cfg.Partition.Epsilon = 0
	cfg.Coarsening.ContractionLimit = 2
	cfg, err := cfg.Derive(hg.TotalWeight(), hg.CurrentNumNodes(), hg.HeaviestNodeWeight())
	require.NoError(t, err)
	return cfg
}

func TestNativeModesRespectBalance(t *testing.T) {
	modes := []config.InitialPartitioningMode{config.ModeGreedy, config.ModeBFS, config.ModeRandom}
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			for _, k := range []int{2, 4} {
				hg := ring(t, 8, k)
				cfg := derivedConfig(t, hg, k)
				cfg.InitialPartitioning.Mode = mode

				require.NoError(t, NewNative(cfg, 7).Partition(context.Background(), hg))
				assert.True(t, hg.IsPartitioned())
				for b := 0; b < k; b++ {
					assert.LessOrEqual(t, hg.PartWeight(b), cfg.Partition.MaxPartWeight)
				}
			}
		})
	}
}

func TestGreedyIsDeterministic(t *testing.T) {
	hg, err := hypergraph.New(5, [][]hypergraph.HypernodeID{{0, 1}, {2, 3, 4}}, nil,
		[]hypergraph.HypernodeWeight{3, 1, 2, 2, 1}, 2)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Partition.Epsilon = 0.2
	cfg.Coarsening.ContractionLimit = 2
	cfg, err = cfg.Derive(hg.TotalWeight(), hg.CurrentNumNodes(), hg.HeaviestNodeWeight())
	require.NoError(t, err)

	require.NoError(t, NewNative(cfg, 1).Partition(context.Background(), hg))
	// heaviest first: 0 -> 0, 2 -> 1, then 3, 1 and 4 follow their neighbors
	assert.Equal(t, []hypergraph.PartitionID{0, 0, 1, 1, 1}, hg.Partition())
	assert.Equal(t, 0, metrics.Compute(hg).Cut)

	other := hg.Clone()
	require.NoError(t, NewNative(cfg, 99).Partition(context.Background(), other))
	assert.Equal(t, hg.Partition(), other.Partition())
}

func TestGreedyKeepsPathTogether(t *testing.T) {
	hg, err := hypergraph.New(4, [][]hypergraph.HypernodeID{{0, 1}, {1, 2}, {2, 3}}, nil, nil, 2)
	require.NoError(t, err)
	cfg := derivedConfig(t, hg, 2)

	require.NoError(t, NewNative(cfg, 0).Partition(context.Background(), hg))
	assert.Equal(t, []hypergraph.PartitionID{0, 0, 1, 1}, hg.Partition())
}

func TestNativeReportsUnpackableWeights(t *testing.T) {
	// three nodes of weight 3 never fit into two blocks of at most 5
	hg, err := hypergraph.New(3, [][]hypergraph.HypernodeID{{0, 1}, {1, 2}}, nil,
		[]hypergraph.HypernodeWeight{3, 3, 3}, 2)
	require.NoError(t, err)
	cfg := derivedConfig(t, hg, 2)
	require.Equal(t, 5, cfg.Partition.MaxPartWeight)

	for _, mode := range []config.InitialPartitioningMode{config.ModeGreedy, config.ModeBFS, config.ModeRandom} {
		cfg.InitialPartitioning.Mode = mode
		err := NewNative(cfg, 3).Partition(context.Background(), hg.Clone())
		assert.True(t, errors.Is(err, hypergraph.ErrBalanceViolation), string(mode))
	}
}

func TestNativeHonorsCancelledContext(t *testing.T) {
	hg := ring(t, 8, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewNative(derivedConfig(t, hg, 2), 0).Partition(ctx, hg)
	assert.True(t, errors.Is(err, context.Canceled))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "partitioner.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func externalConfig(t *testing.T, hg *hypergraph.Hypergraph, script string) config.Config {
	t.Helper()
	cfg := derivedConfig(t, hg, 2)
	cfg.Partition.InitialPartitioner = config.InitialPartitionerHMetis
	cfg.Partition.InitialPartitionerPath = script
	cfg.InitialPartitioning.TempDir = t.TempDir()
	return cfg
}

func TestExternalPartitioner(t *testing.T) {
	hg := ring(t, 8, 2)
	// The header is "E N 11"; alternate the N compacted nodes between both blocks.
	script := writeScript(t, `awk 'NR==1{for(i=0;i<$2;i++) print i%2}' "$1" > "$1.part.$2"`)
	cfg := externalConfig(t, hg, script)

	x := NewExternal(cfg, 3, zerolog.Nop())
	require.NoError(t, x.Partition(context.Background(), hg))
	assert.Equal(t, []hypergraph.PartitionID{0, 1, 0, 1, 0, 1, 0, 1}, hg.Partition())
	assert.Equal(t, "hmetis", x.Name())

	leftovers, err := os.ReadDir(cfg.InitialPartitioning.TempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExternalPartitionerFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"NonZeroExit", "echo broken >&2\nexit 3"},
		{"NoOutput", "exit 0"},
		{"MalformedOutput", `echo 5 > "$1.part.$2"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hg := ring(t, 8, 2)
			cfg := externalConfig(t, hg, writeScript(t, tt.body))
			err := NewExternal(cfg, 0, zerolog.Nop()).Partition(context.Background(), hg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExternalToolFailure))
		})
	}
}

func TestExternalArguments(t *testing.T) {
	hg := ring(t, 8, 2)
	cfg := externalConfig(t, hg, "/bin/true")

	args := NewExternal(cfg, 5, zerolog.Nop()).args("g.hgr")
	assert.Equal(t, []string{"g.hgr", "2", "-seed=5", "-ufactor=0.000000", "-ptype=rb", "-otype=cut", "-nruns=1"}, args)

	cfg.Partition.InitialPartitioner = config.InitialPartitionerPaToH
	args = NewExternal(cfg, 5, zerolog.Nop()).args("g.hgr")
	assert.Equal(t, []string{"g.hgr", "2", "SD=5", "FI=0", "PQ=Q", "UM=U", "WI=1", "BO=C"}, args)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "second", lastLine([]byte("first\nsecond\n\n")))
	assert.Equal(t, "", lastLine(nil))
}

// fixed assigns a precomputed partition or fails.
type fixed struct {
	parts []hypergraph.PartitionID
	err   error
}

func (f fixed) Name() string { return "fixed" }

func (f fixed) Partition(_ context.Context, hg *hypergraph.Hypergraph) error {
	if f.err != nil {
		return f.err
	}
	return hg.ApplyPartition(f.parts)
}

var errAttempt = errors.New("attempt failed")

func TestRunAttemptsPicksBest(t *testing.T) {
	alternating := []hypergraph.PartitionID{0, 1, 0, 1, 0, 1, 0, 1}
	halves := []hypergraph.PartitionID{0, 0, 0, 0, 1, 1, 1, 1}

	for _, parallel := range []bool{false, true} {
		hg := ring(t, 8, 2)
		cfg := derivedConfig(t, hg, 2)
		cfg.Partition.Seed = 10
		cfg.Partition.InitialPartitioningAttempts = 4
		cfg.InitialPartitioning.Parallel = parallel

		factory := func(seed int64) InitialPartitioner {
			switch seed {
			case 10:
				return fixed{parts: alternating}
			case 11:
				return fixed{err: errAttempt}
			default:
				return fixed{parts: halves}
			}
		}

		out, err := RunAttempts(context.Background(), hg, cfg, factory, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, 2, out.Attempt)
		assert.Equal(t, int64(12), out.Seed)
		assert.Equal(t, 1, out.Failed)
		assert.Equal(t, 2, out.Metrics.Value(metrics.ObjectiveCut))
		assert.Equal(t, halves, hg.Partition())
	}
}

func TestRunAttemptsAllFail(t *testing.T) {
	hg := ring(t, 8, 2)
	cfg := derivedConfig(t, hg, 2)
	cfg.Partition.InitialPartitioningAttempts = 3

	_, err := RunAttempts(context.Background(), hg, cfg, func(int64) InitialPartitioner {
		return fixed{err: errAttempt}
	}, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errAttempt))
	assert.False(t, hg.IsPartitioned())
}
