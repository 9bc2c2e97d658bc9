// Package coarsening shrinks a hypergraph by repeated heavy-edge
// contractions and records how to undo them.
package coarsening

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// Coarsener contracts a hypergraph until at most limit hypernodes remain or
// no admissible contraction is left. Running out of candidates is a normal
// outcome.
type Coarsener interface {
	Coarsen(limit int)
	History() *History
	Name() string
}

// base holds what every contracting coarsener shares: the rater, the
// contraction history and the scratch space for detecting redundant
// hyperedges after a contraction.
type base struct {
	hg      *hypergraph.Hypergraph
	rater   *Rater
	rng     *rand.Rand
	history History
	logger  zerolog.Logger

	pinMark []bool
	buckets map[uint64][]hypergraph.HyperedgeID
	scratch []hypergraph.HyperedgeID
}

func newBase(hg *hypergraph.Hypergraph, cfg config.Config, logger zerolog.Logger) base {
	rng := rand.New(rand.NewSource(cfg.Partition.Seed))
	return base{
		hg:      hg,
		rater:   NewRater(hg, cfg, rng),
		rng:     rng,
		logger:  logger,
		pinMark: make([]bool, hg.InitialNumNodes()),
		buckets: make(map[uint64][]hypergraph.HyperedgeID),
	}
}

func (b *base) History() *History { return &b.history }

// contract merges v into u and removes the single-pin and parallel
// hyperedges the merge produced.
func (b *base) contract(u, v hypergraph.HypernodeID) {
	mem := Memento{Contraction: b.hg.Contract(u, v)}

	b.scratch = append(b.scratch[:0], b.hg.IncidentEdges(u)...)
	for _, e := range b.scratch {
		if b.hg.EdgeSize(e) == 1 {
			b.hg.RemoveEdge(e)
			mem.SinglePinEdges = append(mem.SinglePinEdges, e)
		}
	}
	b.removeParallelEdges(u, &mem)
	b.history.Push(mem)
}

func (b *base) removeParallelEdges(u hypergraph.HypernodeID, mem *Memento) {
	clear(b.buckets)
	b.scratch = append(b.scratch[:0], b.hg.IncidentEdges(u)...)
	for _, e := range b.scratch {
		fp := b.fingerprint(e)
		merged := false
		for _, rep := range b.buckets[fp] {
			if b.samePins(rep, e) {
				b.hg.RemoveParallelEdge(rep, e)
				mem.ParallelEdges = append(mem.ParallelEdges, ParallelEdge{Representative: rep, Removed: e})
				merged = true
				break
			}
		}
		if !merged {
			b.buckets[fp] = append(b.buckets[fp], e)
		}
	}
}

// fingerprint is an order independent hash of the pin set of e.
func (b *base) fingerprint(e hypergraph.HyperedgeID) uint64 {
	fp := uint64(b.hg.EdgeSize(e))
	for _, p := range b.hg.Pins(e) {
		x := uint64(p) + 0x9e3779b97f4a7c15
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		fp += x ^ (x >> 31)
	}
	return fp
}

func (b *base) samePins(a, e hypergraph.HyperedgeID) bool {
	if b.hg.EdgeSize(a) != b.hg.EdgeSize(e) {
		return false
	}
	for _, p := range b.hg.Pins(a) {
		b.pinMark[p] = true
	}
	same := true
	for _, p := range b.hg.Pins(e) {
		if !b.pinMark[p] {
			same = false
			break
		}
	}
	for _, p := range b.hg.Pins(a) {
		b.pinMark[p] = false
	}
	return same
}

func (b *base) done(name string, limit int) {
	b.logger.Debug().
		Str("coarsener", name).
		Int("limit", limit).
		Int("nodes", b.hg.CurrentNumNodes()).
		Int("edges", b.hg.CurrentNumEdges()).
		Int("contractions", b.history.Len()).
		Msg("Coarsening finished")
}

// DoNothing leaves the hypergraph untouched.
type DoNothing struct {
	history History
}

func NewDoNothing() *DoNothing { return &DoNothing{} }

func (*DoNothing) Coarsen(int) {}

func (d *DoNothing) History() *History { return &d.history }

func (*DoNothing) Name() string { return string(config.CoarseningDoNothing) }
