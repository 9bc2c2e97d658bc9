package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

// Loader collects configuration from defaults, an optional file, bound
// command line flags and explicit overrides, and builds an immutable Config.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults for every key.
func NewLoader() *Loader {
	v := viper.New()

	v.SetDefault("partition.k", 2)
	v.SetDefault("partition.epsilon", 0.03)
	v.SetDefault("partition.seed", 0)
	v.SetDefault("partition.objective", string(metrics.ObjectiveCut))
	v.SetDefault("partition.initial_partitioning_attempts", 1)
	v.SetDefault("partition.vcycles", 0)
	v.SetDefault("partition.hyperedge_size_threshold", -1)
	v.SetDefault("partition.graph_filename", "")
	v.SetDefault("partition.graph_partition_filename", "")
	v.SetDefault("partition.initial_partitioner", string(InitialPartitionerKaHyPar))
	v.SetDefault("partition.initial_partitioner_path", "")

	v.SetDefault("coarsening.algorithm", string(CoarseningLazy))
	v.SetDefault("coarsening.contraction_limit", 0)
	v.SetDefault("coarsening.contraction_limit_multiplier", 160)
	v.SetDefault("coarsening.max_allowed_weight_multiplier", 2.5)
	v.SetDefault("coarsening.tie_breaking", string(TieBreakRandom))

	v.SetDefault("initial_partitioning.mode", string(ModeGreedy))
	v.SetDefault("initial_partitioning.parallel", true)
	v.SetDefault("initial_partitioning.temp_dir", "")

	v.SetDefault("refinement.algorithm", string(RefinementKWayFM))

	v.SetDefault("fm.stopping_rule", string(StopFruitlessMoves))
	v.SetDefault("fm.rebalancing", string(RebalancingNone))
	v.SetDefault("fm.max_number_of_fruitless_moves", 50)
	v.SetDefault("fm.num_repetitions", 1)
	v.SetDefault("fm.alpha", 4.0)
	v.SetDefault("fm.beta", 0.0)

	v.SetDefault("lp.max_number_iterations", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)

	v.SetDefault("analysis.track_moves", false)
	v.SetDefault("analysis.output_file", "moves.jsonl")

	return &Loader{v: v}
}

// LoadFromFile merges a configuration file (any format viper understands).
func (l *Loader) LoadFromFile(path string) error {
	l.v.SetConfigFile(path)
	return errors.Wrapf(l.v.ReadInConfig(), "read config %s", path)
}

// BindFlags binds command line flags whose names equal configuration keys.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err == nil && strings.Contains(f.Name, ".") {
			err = l.v.BindPFlag(f.Name, f)
		}
	})
	return errors.Wrap(err, "bind flags")
}

// Set allows explicit overrides, mostly for tests and programmatic use.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// Build snapshots the current settings into a Config and checks the
// instance-independent constraints.
func (l *Loader) Build() (Config, error) {
	v := l.v
	cfg := Config{
		Partition: PartitionParameters{
			K:                           v.GetInt("partition.k"),
			Epsilon:                     v.GetFloat64("partition.epsilon"),
			Seed:                        v.GetInt64("partition.seed"),
			Objective:                   metrics.Objective(v.GetString("partition.objective")),
			InitialPartitioningAttempts: v.GetInt("partition.initial_partitioning_attempts"),
			VCycles:                     v.GetInt("partition.vcycles"),
			HyperedgeSizeThreshold:      v.GetInt("partition.hyperedge_size_threshold"),
			GraphFilename:               v.GetString("partition.graph_filename"),
			GraphPartitionFilename:      v.GetString("partition.graph_partition_filename"),
			InitialPartitioner:          InitialPartitionerAlgorithm(v.GetString("partition.initial_partitioner")),
			InitialPartitionerPath:      v.GetString("partition.initial_partitioner_path"),
		},
		Coarsening: CoarseningParameters{
			Algorithm:                  CoarseningAlgorithm(v.GetString("coarsening.algorithm")),
			ContractionLimit:           v.GetInt("coarsening.contraction_limit"),
			ContractionLimitMultiplier: v.GetInt("coarsening.contraction_limit_multiplier"),
			MaxAllowedWeightMultiplier: v.GetFloat64("coarsening.max_allowed_weight_multiplier"),
			TieBreaking:                TieBreaking(v.GetString("coarsening.tie_breaking")),
		},
		InitialPartitioning: InitialPartitioningParameters{
			Mode:     InitialPartitioningMode(v.GetString("initial_partitioning.mode")),
			Parallel: v.GetBool("initial_partitioning.parallel"),
			TempDir:  v.GetString("initial_partitioning.temp_dir"),
		},
		Refinement: RefinementParameters{
			Algorithm: RefinementAlgorithm(v.GetString("refinement.algorithm")),
		},
		FM: FMParameters{
			StoppingRule:              StoppingRule(v.GetString("fm.stopping_rule")),
			Rebalancing:               RebalancingPolicy(v.GetString("fm.rebalancing")),
			MaxNumberOfFruitlessMoves: v.GetInt("fm.max_number_of_fruitless_moves"),
			NumRepetitions:            v.GetInt("fm.num_repetitions"),
			Alpha:                     v.GetFloat64("fm.alpha"),
			Beta:                      v.GetFloat64("fm.beta"),
		},
		LP: LPParameters{
			MaxNumberIterations: v.GetInt("lp.max_number_iterations"),
		},
		Logging: LoggingParameters{
			Level:          v.GetString("logging.level"),
			EnableProgress: v.GetBool("logging.enable_progress"),
		},
		Analysis: AnalysisParameters{
			TrackMoves: v.GetBool("analysis.track_moves"),
			OutputFile: v.GetString("analysis.output_file"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration built from defaults only.
func Default() Config {
	cfg, err := NewLoader().Build()
	if err != nil {
		panic(err) // defaults are valid by construction
	}
	return cfg
}

// Validate checks everything that does not depend on the input hypergraph.
func (c Config) Validate() error {
	p := c.Partition
	switch {
	case p.K <= 0:
		return errors.Wrapf(ErrInfeasibleConfiguration, "k must be positive, got %d", p.K)
	case p.Epsilon < 0:
		return errors.Wrapf(ErrInfeasibleConfiguration, "epsilon must not be negative, got %g", p.Epsilon)
	case p.InitialPartitioningAttempts < 1:
		return errors.Wrapf(ErrInfeasibleConfiguration, "need at least one initial partitioning attempt, got %d",
			p.InitialPartitioningAttempts)
	case p.VCycles < 0:
		return errors.Wrapf(ErrInfeasibleConfiguration, "negative v-cycle count %d", p.VCycles)
	case c.Coarsening.ContractionLimit < 0 || c.Coarsening.ContractionLimitMultiplier < 1:
		return errors.Wrap(ErrInfeasibleConfiguration, "contraction limit and multiplier must be positive")
	case c.Coarsening.MaxAllowedWeightMultiplier <= 0:
		return errors.Wrap(ErrInfeasibleConfiguration, "max allowed weight multiplier must be positive")
	case c.FM.NumRepetitions < 1 || c.FM.MaxNumberOfFruitlessMoves < 1:
		return errors.Wrap(ErrInfeasibleConfiguration, "fm repetitions and fruitless moves must be positive")
	case c.LP.MaxNumberIterations < 1:
		return errors.Wrap(ErrInfeasibleConfiguration, "label propagation needs at least one iteration")
	case c.Refinement.Algorithm == RefinementTwoWayFM && p.K != 2:
		return errors.Wrapf(ErrInfeasibleConfiguration, "%s requires k=2, got %d", RefinementTwoWayFM, p.K)
	case p.InitialPartitioner != InitialPartitionerKaHyPar && p.InitialPartitionerPath == "":
		return errors.Wrapf(ErrInfeasibleConfiguration, "%s needs partition.initial_partitioner_path", p.InitialPartitioner)
	}

	checks := []struct {
		key   string
		value string
		valid []string
	}{
		{"partition.objective", string(p.Objective), []string{string(metrics.ObjectiveCut), string(metrics.ObjectiveKM1)}},
		{"partition.initial_partitioner", string(p.InitialPartitioner), []string{
			string(InitialPartitionerKaHyPar), string(InitialPartitionerHMetis), string(InitialPartitionerPaToH)}},
		{"coarsening.algorithm", string(c.Coarsening.Algorithm), []string{
			string(CoarseningFull), string(CoarseningLazy), string(CoarseningML), string(CoarseningDoNothing)}},
		{"coarsening.tie_breaking", string(c.Coarsening.TieBreaking), []string{
			string(TieBreakRandom), string(TieBreakHeaviest), string(TieBreakFirst)}},
		{"initial_partitioning.mode", string(c.InitialPartitioning.Mode), []string{
			string(ModeGreedy), string(ModeBFS), string(ModeRandom)}},
		{"refinement.algorithm", string(c.Refinement.Algorithm), []string{
			string(RefinementTwoWayFM), string(RefinementKWayFM), string(RefinementKWayFMKM1),
			string(RefinementKWayFMMaxGain), string(RefinementLabelPropagation), string(RefinementDoNothing)}},
		{"fm.stopping_rule", string(c.FM.StoppingRule), []string{
			string(StopFruitlessMoves), string(StopRandomWalk), string(StopAdvancedRandomWalk), string(StopNGPRandomWalk)}},
		{"fm.rebalancing", string(c.FM.Rebalancing), []string{string(RebalancingGlobal), string(RebalancingNone)}},
	}
	for _, check := range checks {
		if !oneOf(check.value, check.valid) {
			return errors.Wrapf(ErrInfeasibleConfiguration, "%s=%q, expected one of %s",
				check.key, check.value, strings.Join(check.valid, ", "))
		}
	}
	return nil
}

// Derive fills the instance-dependent fields for a hypergraph with the given
// total weight, node count and heaviest node. An explicit contraction limit
// that leaves nothing to coarsen is rejected. The default multiplier·k limit
// is clamped to the node count instead, so small inputs skip coarsening.
func (c Config) Derive(totalWeight, numNodes, heaviestNode int) (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	k := c.Partition.K

	switch {
	case c.Coarsening.ContractionLimit >= numNodes:
		return Config{}, errors.Wrapf(ErrInfeasibleConfiguration,
			"contraction limit %d must be smaller than the number of hypernodes %d",
			c.Coarsening.ContractionLimit, numNodes)
	case c.Coarsening.ContractionLimit == 0:
		c.Coarsening.ContractionLimit = c.Coarsening.ContractionLimitMultiplier * k
		if c.Coarsening.ContractionLimit > numNodes {
			c.Coarsening.ContractionLimit = numNodes
		}
	}

	c.Partition.TotalGraphWeight = totalWeight
	c.Partition.PerfectBalancePartWeight = metrics.PerfectBalancePartWeight(totalWeight, k)
	c.Partition.MaxPartWeight = int(math.Floor((1.0+c.Partition.Epsilon)*
		float64(c.Partition.PerfectBalancePartWeight) + 1e-9))
	if heaviestNode > c.Partition.MaxPartWeight {
		return Config{}, errors.Wrapf(ErrInfeasibleConfiguration,
			"hypernode of weight %d cannot fit into a block of at most %d", heaviestNode, c.Partition.MaxPartWeight)
	}
	c.Partition.HmetisUBFactor = 50.0 * ((1.0+c.Partition.Epsilon)*
		(math.Ceil(float64(totalWeight)/float64(k))/(float64(totalWeight)/float64(k))) - 1.0)

	c.Coarsening.HypernodeWeightFraction = c.Coarsening.MaxAllowedWeightMultiplier /
		float64(c.Coarsening.ContractionLimit)
	maxNode := int(math.Ceil(c.Coarsening.HypernodeWeightFraction * float64(totalWeight)))
	if maxNode > c.Partition.PerfectBalancePartWeight {
		maxNode = c.Partition.PerfectBalancePartWeight
	}
	if maxNode < heaviestNode {
		maxNode = heaviestNode
	}
	c.Coarsening.MaxAllowedNodeWeight = maxNode
	return c, nil
}

// CreateLogger creates a zerolog logger based on config.
func (c Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "partitioner").Logger()
}

// String renders the parameter table printed at the start of a run.
func (c Config) String() string {
	var b strings.Builder
	row := func(name string, value interface{}) {
		fmt.Fprintf(&b, "  %-33s%v\n", name+":", value)
	}
	b.WriteString("Partitioning Parameters:\n")
	row("Hypergraph", c.Partition.GraphFilename)
	row("Partition File", c.Partition.GraphPartitionFilename)
	row("k", c.Partition.K)
	row("epsilon", c.Partition.Epsilon)
	row("objective", c.Partition.Objective)
	row("total_graph_weight", c.Partition.TotalGraphWeight)
	row("L_max", c.Partition.MaxPartWeight)
	row("seed", c.Partition.Seed)
	row("hmetis_ub_factor", fmt.Sprintf("%.4f", c.Partition.HmetisUBFactor))
	row("# initial partitionings", c.Partition.InitialPartitioningAttempts)
	row("initial partitioner", c.Partition.InitialPartitioner)
	row("initial partitioner path", c.Partition.InitialPartitionerPath)
	row("# v-cycles", c.Partition.VCycles)
	row("hyperedge size threshold", c.Partition.HyperedgeSizeThreshold)
	b.WriteString("Coarsening Parameters:\n")
	row("scheme", c.Coarsening.Algorithm)
	row("tie breaking", c.Coarsening.TieBreaking)
	row("max-allowed-weight-multiplier", c.Coarsening.MaxAllowedWeightMultiplier)
	row("contraction-limit-multiplier", c.Coarsening.ContractionLimitMultiplier)
	row("hypernode weight fraction", fmt.Sprintf("%.6f", c.Coarsening.HypernodeWeightFraction))
	row("max. allowed hypernode weight", c.Coarsening.MaxAllowedNodeWeight)
	row("contraction limit", c.Coarsening.ContractionLimit)
	b.WriteString("Initial Partitioning Parameters:\n")
	row("mode", c.InitialPartitioning.Mode)
	row("parallel attempts", c.InitialPartitioning.Parallel)
	b.WriteString("Refinement Parameters:\n")
	row("algorithm", c.Refinement.Algorithm)
	switch c.Refinement.Algorithm {
	case RefinementLabelPropagation:
		row("max. # iterations", c.LP.MaxNumberIterations)
	case RefinementDoNothing:
	default:
		row("stopping rule", c.FM.StoppingRule)
		row("rebalancing", c.FM.Rebalancing)
		row("max. # repetitions", c.FM.NumRepetitions)
		row("max. # fruitless moves", c.FM.MaxNumberOfFruitlessMoves)
		row("random walk stop alpha", c.FM.Alpha)
		row("random walk stop beta", c.FM.Beta)
	}
	return b.String()
}

func oneOf(value string, valid []string) bool {
	for _, v := range valid {
		if v == value {
			return true
		}
	}
	return false
}
