package initial

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

// Factory creates the partitioner of one attempt.
type Factory func(seed int64) InitialPartitioner

// Outcome describes the attempt that was kept.
type Outcome struct {
	Attempt   int             `json:"attempt"`
	Seed      int64           `json:"seed"`
	Metrics   metrics.Metrics `json:"metrics"`
	Failed    int             `json:"failed_attempts"`
	Algorithm string          `json:"algorithm"`
}

type attempt struct {
	seed    int64
	name    string
	parts   []hypergraph.PartitionID
	metrics metrics.Metrics
	err     error
}

// RunAttempts runs the configured number of independent attempts, each on
// its own clone of hg and with seed cfg.Partition.Seed+i, and applies the
// best result to hg: lowest objective, then lowest imbalance, then lowest
// attempt index. Failed attempts are skipped; an error is returned only if
// every attempt failed.
func RunAttempts(ctx context.Context, hg *hypergraph.Hypergraph, cfg config.Config, factory Factory,
	logger zerolog.Logger) (Outcome, error) {
	n := cfg.Partition.InitialPartitioningAttempts
	results := make([]attempt, n)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.InitialPartitioning.Parallel {
		g.SetLimit(runtime.NumCPU())
	} else {
		g.SetLimit(1)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seed := cfg.Partition.Seed + int64(i)
			p := factory(seed)
			clone := hg.Clone()
			results[i] = attempt{seed: seed, name: p.Name()}
			if err := p.Partition(gctx, clone); err != nil {
				results[i].err = err
				return nil
			}
			results[i].parts = clone.Partition()
			results[i].metrics = metrics.Compute(clone)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, errors.Wrap(err, "initial partitioning")
	}

	best, failed := -1, 0
	for i, r := range results {
		if r.err != nil {
			failed++
			logger.Warn().Err(r.err).Int("attempt", i).Int64("seed", r.seed).Msg("Initial partitioning attempt failed")
			continue
		}
		logger.Debug().Int("attempt", i).Str("metrics", r.metrics.String()).Msg("Initial partitioning attempt")
		if best < 0 || metrics.Better(r.metrics, results[best].metrics, cfg.Partition.Objective) {
			best = i
		}
	}
	if best < 0 {
		return Outcome{}, errors.Wrapf(results[0].err, "all %d initial partitioning attempts failed", n)
	}

	if err := hg.ApplyPartition(results[best].parts); err != nil {
		return Outcome{}, errors.Wrap(err, "apply initial partition")
	}
	return Outcome{
		Attempt:   best,
		Seed:      results[best].seed,
		Metrics:   results[best].metrics,
		Failed:    failed,
		Algorithm: results[best].name,
	}, nil
}
