// Package metrics computes partition quality: the cut and
// connectivity-minus-one objectives and block imbalance.
package metrics

import (
	"fmt"
	"math"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// Objective selects which quantity the pipeline minimizes.
type Objective string

const (
	ObjectiveCut Objective = "cut"
	ObjectiveKM1 Objective = "km1"
)

// Metrics is a snapshot of partition quality.
type Metrics struct {
	Cut       hypergraph.HyperedgeWeight `json:"cut"`
	KM1       hypergraph.HyperedgeWeight `json:"km1"`
	Imbalance float64                    `json:"imbalance"`
}

// Value returns the objective value o of m.
func (m Metrics) Value(o Objective) hypergraph.HyperedgeWeight {
	if o == ObjectiveKM1 {
		return m.KM1
	}
	return m.Cut
}

func (m Metrics) String() string {
	return fmt.Sprintf("cut=%d km1=%d imbalance=%.5f", m.Cut, m.KM1, m.Imbalance)
}

// Compute measures the current partition of hg.
func Compute(hg *hypergraph.Hypergraph) Metrics {
	return Metrics{Cut: Cut(hg), KM1: KM1(hg), Imbalance: Imbalance(hg)}
}

// Cut sums the weights of hyperedges spanning more than one block.
func Cut(hg *hypergraph.Hypergraph) hypergraph.HyperedgeWeight {
	cut := 0
	for e := 0; e < hg.InitialNumEdges(); e++ {
		if hg.EdgeIsValid(e) && hg.Connectivity(e) > 1 {
			cut += hg.EdgeWeight(e)
		}
	}
	return cut
}

// KM1 sums (λ(e)-1)·w(e) over all hyperedges, λ being the connectivity.
func KM1(hg *hypergraph.Hypergraph) hypergraph.HyperedgeWeight {
	km1 := 0
	for e := 0; e < hg.InitialNumEdges(); e++ {
		if hg.EdgeIsValid(e) && hg.Connectivity(e) > 1 {
			km1 += (hg.Connectivity(e) - 1) * hg.EdgeWeight(e)
		}
	}
	return km1
}

// PerfectBalancePartWeight is ⌈total/k⌉.
func PerfectBalancePartWeight(total hypergraph.HypernodeWeight, k int) hypergraph.HypernodeWeight {
	return int(math.Ceil(float64(total) / float64(k)))
}

// Imbalance is max_i c(V_i)/⌈c(V)/k⌉ - 1.
func Imbalance(hg *hypergraph.Hypergraph) float64 {
	perfect := PerfectBalancePartWeight(hg.TotalWeight(), hg.K())
	if perfect == 0 {
		return 0
	}
	heaviest := 0
	for p := 0; p < hg.K(); p++ {
		if w := hg.PartWeight(p); w > heaviest {
			heaviest = w
		}
	}
	return float64(heaviest)/float64(perfect) - 1.0
}

// Better reports whether a is preferable to b under objective o: lower
// objective first, lower imbalance on ties.
func Better(a, b Metrics, o Objective) bool {
	if a.Value(o) != b.Value(o) {
		return a.Value(o) < b.Value(o)
	}
	return a.Imbalance < b.Imbalance
}

// SetValue overwrites the objective o of m.
func (m *Metrics) SetValue(o Objective, v hypergraph.HyperedgeWeight) {
	if o == ObjectiveKM1 {
		m.KM1 = v
		return
	}
	m.Cut = v
}

// Feasible reports whether no block of hg is heavier than maxPartWeight.
func Feasible(hg *hypergraph.Hypergraph, maxPartWeight hypergraph.HypernodeWeight) bool {
	for p := 0; p < hg.K(); p++ {
		if hg.PartWeight(p) > maxPartWeight {
			return false
		}
	}
	return true
}
