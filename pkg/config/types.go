package config

import (
	"github.com/pkg/errors"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

// ErrInfeasibleConfiguration rejects a configuration before any phase runs.
var ErrInfeasibleConfiguration = errors.New("config: infeasible configuration")

// CoarseningAlgorithm selects the contraction strategy.
type CoarseningAlgorithm string

const (
	CoarseningFull      CoarseningAlgorithm = "heavy_full"
	CoarseningLazy      CoarseningAlgorithm = "heavy_lazy"
	CoarseningML        CoarseningAlgorithm = "ml_style"
	CoarseningDoNothing CoarseningAlgorithm = "do_nothing"
)

// RefinementAlgorithm selects the local search.
type RefinementAlgorithm string

const (
	RefinementTwoWayFM         RefinementAlgorithm = "twoway_fm"
	RefinementKWayFM           RefinementAlgorithm = "kway_fm"
	RefinementKWayFMKM1        RefinementAlgorithm = "kway_fm_km1"
	RefinementKWayFMMaxGain    RefinementAlgorithm = "kway_fm_maxgain"
	RefinementLabelPropagation RefinementAlgorithm = "label_propagation"
	RefinementDoNothing        RefinementAlgorithm = "do_nothing"
)

// InitialPartitionerAlgorithm selects who computes the initial partition.
type InitialPartitionerAlgorithm string

const (
	InitialPartitionerKaHyPar InitialPartitionerAlgorithm = "kahypar"
	InitialPartitionerHMetis  InitialPartitionerAlgorithm = "hmetis"
	InitialPartitionerPaToH   InitialPartitionerAlgorithm = "patoh"
)

// InitialPartitioningMode selects the native initial partitioning algorithm.
type InitialPartitioningMode string

const (
	ModeGreedy InitialPartitioningMode = "greedy"
	ModeBFS    InitialPartitioningMode = "bfs"
	ModeRandom InitialPartitioningMode = "random"
)

// StoppingRule selects when an FM pass gives up.
type StoppingRule string

const (
	StopFruitlessMoves     StoppingRule = "fruitless_moves"
	StopRandomWalk         StoppingRule = "random_walk"
	StopAdvancedRandomWalk StoppingRule = "advanced_random_walk"
	StopNGPRandomWalk      StoppingRule = "ngp_random_walk"
)

// RebalancingPolicy selects whether 2-way FM may trade gain for balance.
type RebalancingPolicy string

const (
	RebalancingGlobal RebalancingPolicy = "global"
	RebalancingNone   RebalancingPolicy = "none"
)

// TieBreaking selects among equally rated contraction partners.
type TieBreaking string

const (
	TieBreakRandom   TieBreaking = "random"
	TieBreakHeaviest TieBreaking = "heaviest"
	TieBreakFirst    TieBreaking = "first"
)

// Config is the immutable parameter set of one partitioning run. Values are
// passed by value or read-only pointer; derived fields are filled once by
// Derive.
type Config struct {
	Partition           PartitionParameters
	Coarsening          CoarseningParameters
	InitialPartitioning InitialPartitioningParameters
	Refinement          RefinementParameters
	FM                  FMParameters
	LP                  LPParameters
	Logging             LoggingParameters
	Analysis            AnalysisParameters
}

type PartitionParameters struct {
	K                           int
	Epsilon                     float64
	Seed                        int64
	Objective                   metrics.Objective
	InitialPartitioningAttempts int
	VCycles                     int
	HyperedgeSizeThreshold      int
	GraphFilename               string
	GraphPartitionFilename      string
	InitialPartitioner          InitialPartitionerAlgorithm
	InitialPartitionerPath      string

	// Derived.
	TotalGraphWeight         int
	PerfectBalancePartWeight int
	MaxPartWeight            int
	HmetisUBFactor           float64
}

type CoarseningParameters struct {
	Algorithm                  CoarseningAlgorithm
	ContractionLimit           int // 0 means ContractionLimitMultiplier·k
	ContractionLimitMultiplier int
	MaxAllowedWeightMultiplier float64
	TieBreaking                TieBreaking

	// Derived.
	HypernodeWeightFraction float64
	MaxAllowedNodeWeight    int
}

type InitialPartitioningParameters struct {
	Mode     InitialPartitioningMode
	Parallel bool
	TempDir  string
}

type RefinementParameters struct {
	Algorithm RefinementAlgorithm
}

type FMParameters struct {
	StoppingRule              StoppingRule
	Rebalancing               RebalancingPolicy
	MaxNumberOfFruitlessMoves int
	NumRepetitions            int
	Alpha                     float64
	Beta                      float64
}

type LPParameters struct {
	MaxNumberIterations int
}

type LoggingParameters struct {
	Level          string
	EnableProgress bool
}

type AnalysisParameters struct {
	TrackMoves bool
	OutputFile string
}
