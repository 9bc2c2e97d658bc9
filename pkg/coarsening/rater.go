package coarsening

import (
	"math/rand"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// Rating is the best contraction partner found for a hypernode.
type Rating struct {
	Target hypergraph.HypernodeID
	Value  float64
	Valid  bool
}

var invalidRating = Rating{Target: hypergraph.InvalidNode}

// Rater scores contraction partners with the heavy-edge rating
//
//	r(u,v) = Σ_{e ∋ u,v} w(e)/(|e|-1) / (c(u)·c(v))
//
// It never mutates the hypergraph; only its own scratch buffers change.
type Rater struct {
	hg            *hypergraph.Hypergraph
	maxNodeWeight hypergraph.HypernodeWeight
	maxEdgeSize   int
	tieBreaking   config.TieBreaking
	rng           *rand.Rand
	scores        []float64
	touched       []hypergraph.HypernodeID
}

// NewRater creates a rater for hg using the derived coarsening parameters of cfg.
func NewRater(hg *hypergraph.Hypergraph, cfg config.Config, rng *rand.Rand) *Rater {
	return &Rater{
		hg:            hg,
		maxNodeWeight: cfg.Coarsening.MaxAllowedNodeWeight,
		maxEdgeSize:   cfg.Partition.HyperedgeSizeThreshold,
		tieBreaking:   cfg.Coarsening.TieBreaking,
		rng:           rng,
		scores:        make([]float64, hg.InitialNumNodes()),
	}
}

// Admissible reports whether u and v may be contracted at all.
func (r *Rater) Admissible(u, v hypergraph.HypernodeID) bool {
	if u == v || !r.hg.NodeIsValid(u) || !r.hg.NodeIsValid(v) {
		return false
	}
	if r.hg.NodeWeight(u)+r.hg.NodeWeight(v) > r.maxNodeWeight {
		return false
	}
	return r.hg.PartID(u) == r.hg.PartID(v)
}

func (r *Rater) ignored(e hypergraph.HyperedgeID) bool {
	size := r.hg.EdgeSize(e)
	return size < 2 || (r.maxEdgeSize > 0 && size > r.maxEdgeSize)
}

// RatePair scores the single pair (u, v).
func (r *Rater) RatePair(u, v hypergraph.HypernodeID) Rating {
	if !r.Admissible(u, v) {
		return invalidRating
	}
	score := 0.0
	for _, e := range r.hg.IncidentEdges(u) {
		if r.ignored(e) {
			continue
		}
		for _, p := range r.hg.Pins(e) {
			if p == v {
				score += float64(r.hg.EdgeWeight(e)) / float64(r.hg.EdgeSize(e)-1)
				break
			}
		}
	}
	if score == 0 {
		return invalidRating
	}
	return Rating{
		Target: v,
		Value:  score / float64(r.hg.NodeWeight(u)*r.hg.NodeWeight(v)),
		Valid:  true,
	}
}

// Rate returns the best admissible partner of u that accept allows. A nil
// accept allows every partner.
func (r *Rater) Rate(u hypergraph.HypernodeID, accept func(hypergraph.HypernodeID) bool) Rating {
	for _, e := range r.hg.IncidentEdges(u) {
		if r.ignored(e) {
			continue
		}
		score := float64(r.hg.EdgeWeight(e)) / float64(r.hg.EdgeSize(e)-1)
		for _, v := range r.hg.Pins(e) {
			if v == u {
				continue
			}
			if r.scores[v] == 0 {
				r.touched = append(r.touched, v)
			}
			r.scores[v] += score
		}
	}

	best := invalidRating
	cu := r.hg.NodeWeight(u)
	for _, v := range r.touched {
		score := r.scores[v]
		r.scores[v] = 0
		if !r.Admissible(u, v) || (accept != nil && !accept(v)) {
			continue
		}
		value := score / float64(cu*r.hg.NodeWeight(v))
		switch {
		case !best.Valid || value > best.Value:
			best = Rating{Target: v, Value: value, Valid: true}
		case value == best.Value && r.preferOnTie(v, best.Target):
			best.Target = v
		}
	}
	r.touched = r.touched[:0]
	return best
}

// preferOnTie decides whether candidate replaces current on equal ratings.
func (r *Rater) preferOnTie(candidate, current hypergraph.HypernodeID) bool {
	switch r.tieBreaking {
	case config.TieBreakHeaviest:
		return r.hg.NodeWeight(candidate) > r.hg.NodeWeight(current)
	case config.TieBreakFirst:
		return candidate < current
	default:
		return r.rng.Intn(2) == 0
	}
}
