package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hgrio"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/partition"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/refinement"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile, summaryFile string

	cmd := &cobra.Command{
		Use:   "partitioner [hypergraph]",
		Short: "Multilevel k-way hypergraph partitioner",
		Long: `Partitions a hypergraph in hMetis format into k blocks, minimizing the cut or
the connectivity minus one while keeping every block below (1+epsilon) times
the perfectly balanced block weight.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			if configFile != "" {
				if err := loader.LoadFromFile(configFile); err != nil {
					return err
				}
			}
			if err := loader.BindFlags(cmd.Flags()); err != nil {
				return err
			}
			if len(args) == 1 {
				loader.Set("partition.graph_filename", args[0])
			}
			cfg, err := loader.Build()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, summaryFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file (yaml, json or toml)")
	cmd.Flags().StringVar(&summaryFile, "summary", "", "write a JSON run summary to this file")
	addConfigFlags(cmd.Flags(), config.Default())
	return cmd
}

// addConfigFlags declares one flag per configuration key. Flag defaults
// mirror the loader defaults; only flags set on the command line override
// the configuration file.
func addConfigFlags(fs *pflag.FlagSet, d config.Config) {
	fs.IntP("partition.k", "k", d.Partition.K, "number of blocks")
	fs.Float64P("partition.epsilon", "e", d.Partition.Epsilon, "imbalance tolerance")
	fs.Int64P("partition.seed", "s", d.Partition.Seed, "random seed")
	fs.StringP("partition.objective", "o", string(d.Partition.Objective), "objective: cut or km1")
	fs.Int("partition.initial_partitioning_attempts", d.Partition.InitialPartitioningAttempts, "number of initial partitioning attempts")
	fs.Int("partition.vcycles", d.Partition.VCycles, "number of V-cycles")
	fs.Int("partition.hyperedge_size_threshold", d.Partition.HyperedgeSizeThreshold, "ignore larger hyperedges when rating (-1: no limit)")
	fs.StringP("partition.graph_filename", "g", d.Partition.GraphFilename, "hypergraph file in hMetis format")
	fs.StringP("partition.graph_partition_filename", "p", d.Partition.GraphPartitionFilename, "partition output file")
	fs.String("partition.initial_partitioner", string(d.Partition.InitialPartitioner), "initial partitioner: kahypar, hmetis or patoh")
	fs.String("partition.initial_partitioner_path", d.Partition.InitialPartitionerPath, "path of the external initial partitioner")

	fs.String("coarsening.algorithm", string(d.Coarsening.Algorithm), "coarsening: heavy_full, heavy_lazy, ml_style or do_nothing")
	fs.Int("coarsening.contraction_limit", d.Coarsening.ContractionLimit, "stop coarsening at this many hypernodes (0: multiplier*k)")
	fs.Int("coarsening.contraction_limit_multiplier", d.Coarsening.ContractionLimitMultiplier, "contraction limit per block")
	fs.Float64("coarsening.max_allowed_weight_multiplier", d.Coarsening.MaxAllowedWeightMultiplier, "bound on the weight of a contracted hypernode")
	fs.String("coarsening.tie_breaking", string(d.Coarsening.TieBreaking), "rating ties: random, heaviest or first")

	fs.String("initial_partitioning.mode", string(d.InitialPartitioning.Mode), "native initial partitioning: greedy, bfs or random")
	fs.Bool("initial_partitioning.parallel", d.InitialPartitioning.Parallel, "run initial partitioning attempts in parallel")
	fs.String("initial_partitioning.temp_dir", d.InitialPartitioning.TempDir, "directory for external partitioner files")

	fs.StringP("refinement.algorithm", "r", string(d.Refinement.Algorithm),
		"refinement: twoway_fm, kway_fm, kway_fm_km1, kway_fm_maxgain, label_propagation or do_nothing")

	fs.String("fm.stopping_rule", string(d.FM.StoppingRule), "fruitless_moves, random_walk, advanced_random_walk or ngp_random_walk")
	fs.String("fm.rebalancing", string(d.FM.Rebalancing), "2-way FM rebalancing: global or none")
	fs.Int("fm.max_number_of_fruitless_moves", d.FM.MaxNumberOfFruitlessMoves, "fruitless moves before an FM pass stops")
	fs.Int("fm.num_repetitions", d.FM.NumRepetitions, "FM passes per uncontraction while improving")
	fs.Float64("fm.alpha", d.FM.Alpha, "random walk stopping alpha")
	fs.Float64("fm.beta", d.FM.Beta, "random walk stopping beta (0: ln n)")

	fs.Int("lp.max_number_iterations", d.LP.MaxNumberIterations, "label propagation rounds")

	fs.String("logging.level", d.Logging.Level, "log level")
	fs.Bool("logging.enable_progress", d.Logging.EnableProgress, "print the parameter table and result")

	fs.Bool("analysis.track_moves", d.Analysis.TrackMoves, "log every refinement move")
	fs.String("analysis.output_file", d.Analysis.OutputFile, "move log file (JSON lines)")
}

func run(ctx context.Context, cfg config.Config, summaryFile string, out io.Writer) (err error) {
	logger := cfg.CreateLogger()

	graphFile := cfg.Partition.GraphFilename
	if graphFile == "" {
		return errors.New("no hypergraph given")
	}
	hg, err := hgrio.ReadHypergraphFile(graphFile, cfg.Partition.K)
	if err != nil {
		return err
	}

	if cfg.Logging.EnableProgress {
		derived, err := cfg.Derive(hg.TotalWeight(), hg.CurrentNumNodes(), hg.HeaviestNodeWeight())
		if err != nil {
			return err
		}
		fmt.Fprint(out, derived.String())
	}

	env := refinement.Env{Logger: logger}
	if cfg.Analysis.TrackMoves {
		tracker, trackerErr := utils.NewMoveTracker(cfg.Analysis.OutputFile)
		if trackerErr != nil {
			return trackerErr
		}
		defer func() {
			if closeErr := tracker.Close(); err == nil {
				err = closeErr
			}
		}()
		env.Tracker = tracker
	}

	result, err := partition.New(cfg, partition.NewDefaultRegistry(), env).Run(ctx, hg)
	if err != nil {
		return err
	}

	partitionFile := cfg.Partition.GraphPartitionFilename
	if partitionFile == "" {
		partitionFile = fmt.Sprintf("%s.part%d.epsilon%g.seed%d.KaHyPar",
			graphFile, cfg.Partition.K, cfg.Partition.Epsilon, cfg.Partition.Seed)
	}
	if err := hgrio.WritePartitionFile(partitionFile, result.Partition); err != nil {
		return err
	}
	if summaryFile != "" {
		if err := hgrio.WriteJSON(summaryFile, result); err != nil {
			return err
		}
	}

	if cfg.Logging.EnableProgress {
		fmt.Fprintf(out, "Partitioning Result:\n  %s\n  runtime: %dms\n  partition: %s\n",
			result.Metrics.String(), result.Statistics.RuntimeMS, partitionFile)
	}
	logger.Info().Str("partition_file", partitionFile).Msg("Partition written")
	return nil
}
