package partition

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/coarsening"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/initial"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/refinement"
)

type (
	CoarsenerFactory func(hg *hypergraph.Hypergraph, cfg config.Config, logger zerolog.Logger) coarsening.Coarsener
	RefinerFactory   func(hg *hypergraph.Hypergraph, cfg config.Config, env refinement.Env) refinement.Refiner
	InitialFactory   func(cfg config.Config, seed int64, logger zerolog.Logger) initial.InitialPartitioner
)

// Registry maps configuration selectors to constructors. It is filled
// explicitly; nothing registers itself.
type Registry struct {
	coarseners map[config.CoarseningAlgorithm]CoarsenerFactory
	refiners   map[config.RefinementAlgorithm]RefinerFactory
	initial    map[config.InitialPartitionerAlgorithm]InitialFactory
}

func NewRegistry() *Registry {
	return &Registry{
		coarseners: make(map[config.CoarseningAlgorithm]CoarsenerFactory),
		refiners:   make(map[config.RefinementAlgorithm]RefinerFactory),
		initial:    make(map[config.InitialPartitionerAlgorithm]InitialFactory),
	}
}

// NewDefaultRegistry knows every algorithm shipped with this module.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterCoarsener(config.CoarseningFull, func(hg *hypergraph.Hypergraph, cfg config.Config, l zerolog.Logger) coarsening.Coarsener {
		return coarsening.NewFull(hg, cfg, l)
	})
	r.RegisterCoarsener(config.CoarseningLazy, func(hg *hypergraph.Hypergraph, cfg config.Config, l zerolog.Logger) coarsening.Coarsener {
		return coarsening.NewLazy(hg, cfg, l)
	})
	r.RegisterCoarsener(config.CoarseningML, func(hg *hypergraph.Hypergraph, cfg config.Config, l zerolog.Logger) coarsening.Coarsener {
		return coarsening.NewML(hg, cfg, l)
	})
	r.RegisterCoarsener(config.CoarseningDoNothing, func(*hypergraph.Hypergraph, config.Config, zerolog.Logger) coarsening.Coarsener {
		return coarsening.NewDoNothing()
	})

	r.RegisterRefiner(config.RefinementTwoWayFM, func(hg *hypergraph.Hypergraph, cfg config.Config, env refinement.Env) refinement.Refiner {
		return refinement.NewTwoWayFM(hg, cfg, env)
	})
	r.RegisterRefiner(config.RefinementKWayFM, func(hg *hypergraph.Hypergraph, cfg config.Config, env refinement.Env) refinement.Refiner {
		return refinement.NewKWayFM(hg, cfg, env)
	})
	r.RegisterRefiner(config.RefinementKWayFMKM1, func(hg *hypergraph.Hypergraph, cfg config.Config, env refinement.Env) refinement.Refiner {
		return refinement.NewKWayFMKM1(hg, cfg, env)
	})
	r.RegisterRefiner(config.RefinementKWayFMMaxGain, func(hg *hypergraph.Hypergraph, cfg config.Config, env refinement.Env) refinement.Refiner {
		return refinement.NewMaxGainNodeKWayFM(hg, cfg, env)
	})
	r.RegisterRefiner(config.RefinementLabelPropagation, func(hg *hypergraph.Hypergraph, cfg config.Config, env refinement.Env) refinement.Refiner {
		return refinement.NewLabelPropagation(hg, cfg, env)
	})
	r.RegisterRefiner(config.RefinementDoNothing, func(*hypergraph.Hypergraph, config.Config, refinement.Env) refinement.Refiner {
		return refinement.DoNothing{}
	})

	r.RegisterInitial(config.InitialPartitionerKaHyPar, func(cfg config.Config, seed int64, _ zerolog.Logger) initial.InitialPartitioner {
		return initial.NewNative(cfg, seed)
	})
	external := func(cfg config.Config, seed int64, l zerolog.Logger) initial.InitialPartitioner {
		return initial.NewExternal(cfg, seed, l)
	}
	r.RegisterInitial(config.InitialPartitionerHMetis, external)
	r.RegisterInitial(config.InitialPartitionerPaToH, external)

	return r
}

func (r *Registry) RegisterCoarsener(name config.CoarseningAlgorithm, f CoarsenerFactory) {
	r.coarseners[name] = f
}

func (r *Registry) RegisterRefiner(name config.RefinementAlgorithm, f RefinerFactory) {
	r.refiners[name] = f
}

func (r *Registry) RegisterInitial(name config.InitialPartitionerAlgorithm, f InitialFactory) {
	r.initial[name] = f
}

func (r *Registry) Coarsener(hg *hypergraph.Hypergraph, cfg config.Config, logger zerolog.Logger) (coarsening.Coarsener, error) {
	f, ok := r.coarseners[cfg.Coarsening.Algorithm]
	if !ok {
		return nil, errors.Wrapf(config.ErrInfeasibleConfiguration, "no coarsener %q", cfg.Coarsening.Algorithm)
	}
	return f(hg, cfg, logger), nil
}

func (r *Registry) Refiner(hg *hypergraph.Hypergraph, cfg config.Config, env refinement.Env) (refinement.Refiner, error) {
	f, ok := r.refiners[cfg.Refinement.Algorithm]
	if !ok {
		return nil, errors.Wrapf(config.ErrInfeasibleConfiguration, "no refiner %q", cfg.Refinement.Algorithm)
	}
	return f(hg, cfg, env), nil
}

// Initial returns the per-attempt factory for the configured initial partitioner.
func (r *Registry) Initial(cfg config.Config, logger zerolog.Logger) (initial.Factory, error) {
	f, ok := r.initial[cfg.Partition.InitialPartitioner]
	if !ok {
		return nil, errors.Wrapf(config.ErrInfeasibleConfiguration, "no initial partitioner %q", cfg.Partition.InitialPartitioner)
	}
	return func(seed int64) initial.InitialPartitioner { return f(cfg, seed, logger) }, nil
}
