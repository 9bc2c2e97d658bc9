package refinement

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// StoppingPolicy watches the gains of the moves of one FM pass and decides
// when the pass should give up. Reset is called at the start of a pass and
// whenever the pass reaches a new best state.
type StoppingPolicy interface {
	Reset()
	Update(gain hypergraph.Gain)
	ShouldStop() bool
	Name() string
}

// NewStoppingPolicy builds the configured stopping rule. numNodes sizes the
// default β of the random walk rules.
func NewStoppingPolicy(fm config.FMParameters, numNodes int) StoppingPolicy {
	beta := fm.Beta
	if beta == 0 && numNodes > 1 {
		beta = math.Log(float64(numNodes))
	}
	switch fm.StoppingRule {
	case config.StopRandomWalk:
		return &RandomWalk{alpha: fm.Alpha, beta: beta}
	case config.StopAdvancedRandomWalk:
		return &AdvancedRandomWalk{window: fm.MaxNumberOfFruitlessMoves, alpha: fm.Alpha}
	case config.StopNGPRandomWalk:
		return &NGPRandomWalk{alpha: fm.Alpha, beta: beta}
	default:
		return NewFruitlessMoves(fm.MaxNumberOfFruitlessMoves)
	}
}

// FruitlessMoves stops after limit moves without reaching a new best state.
// The pass resets it on every improvement, so gains alone never restart the
// count.
type FruitlessMoves struct {
	limit     int
	fruitless int
}

func NewFruitlessMoves(limit int) *FruitlessMoves { return &FruitlessMoves{limit: limit} }

func (p *FruitlessMoves) Reset() { p.fruitless = 0 }

func (p *FruitlessMoves) Update(hypergraph.Gain) { p.fruitless++ }

func (p *FruitlessMoves) ShouldStop() bool { return p.fruitless >= p.limit }

func (*FruitlessMoves) Name() string { return string(config.StopFruitlessMoves) }

// welford keeps a running mean and variance.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
}

func (w *welford) variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n-1)
}

// RandomWalk models the gains since the last improvement as a random walk
// and stops once more than beta steps were taken and a negative drift makes
// an improvement unlikely: μ ≤ 0 and p·μ² ≥ α·σ².
type RandomWalk struct {
	alpha, beta float64
	stats       welford
}

func (p *RandomWalk) Reset() { p.stats = welford{} }

func (p *RandomWalk) Update(gain hypergraph.Gain) { p.stats.add(float64(gain)) }

func (p *RandomWalk) ShouldStop() bool {
	s := p.stats
	if float64(s.n) <= p.beta || s.mean > 0 {
		return false
	}
	return float64(s.n)*s.mean*s.mean >= p.alpha*s.variance()
}

func (*RandomWalk) Name() string { return string(config.StopRandomWalk) }

// AdvancedRandomWalk applies the random walk test to a sliding window of
// the most recent gains instead of the whole pass.
type AdvancedRandomWalk struct {
	window int
	alpha  float64
	gains  []float64
	next   int
	full   bool
}

func (p *AdvancedRandomWalk) Reset() {
	p.gains = p.gains[:0]
	p.next = 0
	p.full = false
}

func (p *AdvancedRandomWalk) Update(gain hypergraph.Gain) {
	if !p.full {
		p.gains = append(p.gains, float64(gain))
		p.full = len(p.gains) >= p.window
		return
	}
	p.gains[p.next] = float64(gain)
	p.next = (p.next + 1) % p.window
}

func (p *AdvancedRandomWalk) ShouldStop() bool {
	if !p.full {
		return false
	}
	mean, variance := p.gains[0], 0.0
	if len(p.gains) > 1 {
		mean, variance = stat.MeanVariance(p.gains, nil)
	}
	if mean > 0 {
		return false
	}
	return float64(len(p.gains))*mean*mean >= p.alpha*variance
}

func (*AdvancedRandomWalk) Name() string { return string(config.StopAdvancedRandomWalk) }

// NGPRandomWalk is the rule of Osipov and Sanders: with p the number of
// moves since the last improvement, stop when the drift is negative and
// p·μ² > α·σ² + β.
type NGPRandomWalk struct {
	alpha, beta float64
	stats       welford
}

func (p *NGPRandomWalk) Reset() { p.stats = welford{} }

func (p *NGPRandomWalk) Update(gain hypergraph.Gain) { p.stats.add(float64(gain)) }

func (p *NGPRandomWalk) ShouldStop() bool {
	s := p.stats
	if s.n == 0 || s.mean >= 0 {
		return false
	}
	return float64(s.n)*s.mean*s.mean > p.alpha*s.variance()+p.beta
}

func (*NGPRandomWalk) Name() string { return string(config.StopNGPRandomWalk) }

// MoveCandidate describes a move for the rebalancing decision.
type MoveCandidate struct {
	NodeWeight    hypergraph.HypernodeWeight
	FromWeight    hypergraph.HypernodeWeight
	ToWeight      hypergraph.HypernodeWeight
	MaxPartWeight hypergraph.HypernodeWeight
}

// RebalancingPolicy decides which moves a 2-way FM pass may perform.
// infeasible reports whether some block currently exceeds MaxPartWeight.
type RebalancingPolicy interface {
	Admissible(m MoveCandidate, infeasible bool) bool
	Name() string
}

func NewRebalancingPolicy(p config.RebalancingPolicy) RebalancingPolicy {
	if p == config.RebalancingGlobal {
		return GlobalRebalancing{}
	}
	return NoRebalancing{}
}

// NoRebalancing only allows moves that keep the target block within bounds.
type NoRebalancing struct{}

func (NoRebalancing) Admissible(m MoveCandidate, _ bool) bool {
	return m.ToWeight+m.NodeWeight <= m.MaxPartWeight
}

func (NoRebalancing) Name() string { return string(config.RebalancingNone) }

// GlobalRebalancing behaves like NoRebalancing on a feasible partition. On
// an infeasible one it only admits moves out of an overloaded block that
// leave the target lighter than the source was, whatever their gain.
type GlobalRebalancing struct{}

func (GlobalRebalancing) Admissible(m MoveCandidate, infeasible bool) bool {
	if !infeasible {
		return NoRebalancing{}.Admissible(m, false)
	}
	return m.FromWeight > m.MaxPartWeight && m.ToWeight+m.NodeWeight < m.FromWeight
}

func (GlobalRebalancing) Name() string { return string(config.RebalancingGlobal) }
