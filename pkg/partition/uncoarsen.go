package partition

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/coarsening"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/refinement"
)

// LevelStats summarizes one pass through the hierarchy: the initial
// multilevel run is level 0, every V-cycle adds one.
type LevelStats struct {
	Level            int     `json:"level"`
	Coarsener        string  `json:"coarsener"`
	CoarsestNodes    int     `json:"coarsest_nodes"`
	Uncontractions   int     `json:"uncontractions"`
	RefinerCalls     int     `json:"refiner_calls"`
	Improvements     int     `json:"improvements"`
	InitialObjective int     `json:"initial_objective"`
	FinalObjective   int     `json:"final_objective"`
	FinalImbalance   float64 `json:"final_imbalance"`
	CoarseningMS     int64   `json:"coarsening_ms"`
	UncoarseningMS   int64   `json:"uncoarsening_ms"`
	Accepted         bool    `json:"accepted"`
}

// Uncoarsen replays history in reverse on hg, refining around each restored
// pair. best holds the metrics of the current partition and is kept up to
// date by the refiner. Refine is repeated on a pair while it improves, at
// most repetitions times.
//
// Block weights are checked after every uncontraction, the full assignment
// once at the end. A cancelled context stops refinement but not the replay,
// so hg always ends up fully uncoarsened.
func Uncoarsen(ctx context.Context, hg *hypergraph.Hypergraph, history *coarsening.History,
	refiner refinement.Refiner, maxPartWeight hypergraph.HypernodeWeight, repetitions int,
	best *metrics.Metrics, stats *LevelStats) error {
	for {
		m, ok := history.Pop()
		if !ok {
			break
		}
		coarsening.Restore(hg, m)
		stats.Uncontractions++

		if ctx.Err() != nil {
			continue
		}
		nodes := []hypergraph.HypernodeID{m.Contraction.U, m.Contraction.V}
		for r := 0; r < repetitions; r++ {
			stats.RefinerCalls++
			if !refiner.Refine(nodes, maxPartWeight, best) {
				break
			}
			stats.Improvements++
		}
		if err := hg.CheckPartWeights(maxPartWeight); err != nil {
			restoreAll(hg, history)
			return errors.Wrapf(err, "%s after uncontracting %d", refiner.Name(), m.Contraction.V)
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "uncoarsening")
	}
	return errors.Wrap(hg.CheckBalance(maxPartWeight), "uncoarsening")
}

// restoreAll undoes the remaining contractions without refinement.
func restoreAll(hg *hypergraph.Hypergraph, history *coarsening.History) {
	for {
		m, ok := history.Pop()
		if !ok {
			return
		}
		coarsening.Restore(hg, m)
	}
}

func logLevel(logger zerolog.Logger, s LevelStats) {
	logger.Info().
		Int("level", s.Level).
		Str("coarsener", s.Coarsener).
		Int("coarsest_nodes", s.CoarsestNodes).
		Int("uncontractions", s.Uncontractions).
		Int("improvements", s.Improvements).
		Int("initial_objective", s.InitialObjective).
		Int("final_objective", s.FinalObjective).
		Float64("imbalance", s.FinalImbalance).
		Dur("uncoarsening", time.Duration(s.UncoarseningMS)*time.Millisecond).
		Msg("Level complete")
}
