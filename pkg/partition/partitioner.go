// Package partition drives the multilevel pipeline: coarsening, initial
// partitioning, uncoarsening with refinement and optional V-cycles.
package partition

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/coarsening"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/initial"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/refinement"
)

// Result contains the partition and how it was obtained.
type Result struct {
	Partition  []hypergraph.PartitionID `json:"-"`
	Metrics    metrics.Metrics          `json:"metrics"`
	Objective  metrics.Objective        `json:"objective"`
	K          int                      `json:"k"`
	Epsilon    float64                  `json:"epsilon"`
	Config     config.Config            `json:"-"`
	Statistics Statistics               `json:"statistics"`
}

// Statistics contains run-wide performance figures.
type Statistics struct {
	InitialPartitioning initial.Outcome `json:"initial_partitioning"`
	VCycles             int             `json:"vcycles"`
	RuntimeMS           int64           `json:"runtime_ms"`
	LevelStats          []LevelStats    `json:"level_stats"`
}

// Partitioner runs the configured algorithms on a hypergraph.
type Partitioner struct {
	cfg      config.Config
	registry *Registry
	env      refinement.Env
}

// New creates a partitioner. A nil registry means NewDefaultRegistry.
func New(cfg config.Config, registry *Registry, env refinement.Env) *Partitioner {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Partitioner{cfg: cfg, registry: registry, env: env}
}

// Run partitions hg in place. On success every hypernode is assigned to a
// block no heavier than the derived maximum; the partition is also copied
// into the result. hg keeps its original structure even when Run fails.
func (p *Partitioner) Run(ctx context.Context, hg *hypergraph.Hypergraph) (*Result, error) {
	startTime := time.Now()
	logger := p.env.Logger

	if hg.K() != p.cfg.Partition.K {
		return nil, errors.Wrapf(config.ErrInfeasibleConfiguration,
			"hypergraph is sized for k=%d, configuration asks for k=%d", hg.K(), p.cfg.Partition.K)
	}
	cfg, err := p.cfg.Derive(hg.TotalWeight(), hg.CurrentNumNodes(), hg.HeaviestNodeWeight())
	if err != nil {
		return nil, err
	}
	objective := cfg.Partition.Objective

	logger.Info().
		Int("nodes", hg.CurrentNumNodes()).
		Int("edges", hg.CurrentNumEdges()).
		Int("pins", hg.CurrentNumPins()).
		Int("k", cfg.Partition.K).
		Float64("epsilon", cfg.Partition.Epsilon).
		Int("max_part_weight", cfg.Partition.MaxPartWeight).
		Msg("Starting partitioning")

	// The refiner sizes its stopping rule by the input, so it exists
	// before the first contraction.
	refiner, err := p.registry.Refiner(hg, cfg, p.env)
	if err != nil {
		return nil, err
	}
	factory, err := p.registry.Initial(cfg, logger)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Objective: objective,
		K:         cfg.Partition.K,
		Epsilon:   cfg.Partition.Epsilon,
		Config:    cfg,
	}
	hg.ResetPartitioning()

	// Level 0: full multilevel cycle.
	coarsener, err := p.registry.Coarsener(hg, cfg, logger)
	if err != nil {
		return nil, err
	}
	stats := LevelStats{Level: 0, Coarsener: coarsener.Name()}
	coarseningStart := time.Now()
	coarsener.Coarsen(cfg.Coarsening.ContractionLimit)
	stats.CoarseningMS = time.Since(coarseningStart).Milliseconds()
	stats.CoarsestNodes = hg.CurrentNumNodes()
	logger.Info().
		Str("coarsener", coarsener.Name()).
		Int("nodes", hg.CurrentNumNodes()).
		Int("edges", hg.CurrentNumEdges()).
		Msg("Coarsening complete")

	outcome, err := initial.RunAttempts(ctx, hg, cfg, factory, logger)
	if err != nil {
		restoreAll(hg, coarsener.History())
		hg.ResetPartitioning()
		return nil, errors.Wrap(err, "initial partitioning")
	}
	result.Statistics.InitialPartitioning = outcome
	logger.Info().
		Str("algorithm", outcome.Algorithm).
		Int("attempt", outcome.Attempt).
		Int("failed_attempts", outcome.Failed).
		Str("metrics", outcome.Metrics.String()).
		Msg("Initial partitioning complete")

	if err := p.uncoarsen(ctx, hg, cfg, coarsener.History(), refiner, &stats); err != nil {
		return nil, err
	}
	stats.Accepted = true
	result.Statistics.LevelStats = append(result.Statistics.LevelStats, stats)
	logLevel(logger, stats)

	for cycle := 1; cycle <= cfg.Partition.VCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "v-cycle")
		}
		improved, err := p.vcycle(ctx, hg, cfg, refiner, cycle, result)
		if err != nil {
			return nil, err
		}
		result.Statistics.VCycles = cycle
		if !improved {
			break
		}
	}

	result.Partition = hg.Partition()
	result.Metrics = metrics.Compute(hg)
	result.Statistics.RuntimeMS = time.Since(startTime).Milliseconds()

	logger.Info().
		Int("cut", result.Metrics.Cut).
		Int("km1", result.Metrics.KM1).
		Float64("imbalance", result.Metrics.Imbalance).
		Int("vcycles", result.Statistics.VCycles).
		Int64("runtime_ms", result.Statistics.RuntimeMS).
		Msg("Partitioning complete")

	return result, nil
}

// uncoarsen refines back up the hierarchy recorded in history and fills
// the refinement part of stats.
func (p *Partitioner) uncoarsen(ctx context.Context, hg *hypergraph.Hypergraph, cfg config.Config,
	history *coarsening.History, refiner refinement.Refiner, stats *LevelStats) error {
	objective := cfg.Partition.Objective
	best := metrics.Compute(hg)
	stats.InitialObjective = best.Value(objective)

	refiner.Initialize()
	start := time.Now()
	err := Uncoarsen(ctx, hg, history, refiner, cfg.Partition.MaxPartWeight, cfg.FM.NumRepetitions, &best, stats)
	stats.UncoarseningMS = time.Since(start).Milliseconds()
	if err != nil {
		return errors.Wrapf(err, "level %d", stats.Level)
	}

	final := metrics.Compute(hg)
	stats.FinalObjective = final.Value(objective)
	stats.FinalImbalance = final.Imbalance
	return nil
}

// vcycle coarsens within the current blocks, keeps the projected partition
// and refines again. A cycle that does not strictly improve the objective
// is undone.
func (p *Partitioner) vcycle(ctx context.Context, hg *hypergraph.Hypergraph, cfg config.Config,
	refiner refinement.Refiner, cycle int, result *Result) (bool, error) {
	objective := cfg.Partition.Objective
	before := metrics.Compute(hg)
	snapshot := hg.Partition()

	cycleCfg := cfg
	cycleCfg.Partition.Seed += int64(cycle)
	coarsener, err := p.registry.Coarsener(hg, cycleCfg, p.env.Logger)
	if err != nil {
		return false, err
	}
	stats := LevelStats{Level: cycle, Coarsener: coarsener.Name()}
	start := time.Now()
	coarsener.Coarsen(cfg.Coarsening.ContractionLimit)
	stats.CoarseningMS = time.Since(start).Milliseconds()
	stats.CoarsestNodes = hg.CurrentNumNodes()

	if err := p.uncoarsen(ctx, hg, cfg, coarsener.History(), refiner, &stats); err != nil {
		return false, errors.Wrap(err, "v-cycle")
	}

	stats.Accepted = stats.FinalObjective < before.Value(objective)
	if !stats.Accepted {
		if err := hg.ApplyPartition(snapshot); err != nil {
			return false, errors.Wrap(err, "restore partition after v-cycle")
		}
	}
	result.Statistics.LevelStats = append(result.Statistics.LevelStats, stats)
	logLevel(p.env.Logger, stats)
	return stats.Accepted, nil
}
