package refinement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
)

func TestFruitlessMovesStopsExactlyAfterNthMove(t *testing.T) {
	const n = 4
	p := NewFruitlessMoves(n)
	p.Reset()

	for i := 1; i <= n; i++ {
		p.Update(-1)
		assert.Equal(t, i == n, p.ShouldStop(), "after %d fruitless moves", i)
	}

	p.Reset()
	assert.False(t, p.ShouldStop())
}

func TestFruitlessMovesIgnoresAlternatingGains(t *testing.T) {
	const n = 6
	p := NewFruitlessMoves(n)
	p.Reset()

	// +1/-1 never reaches a new best state, so every move counts
	for i := 1; i <= n; i++ {
		gain := 1
		if i%2 == 0 {
			gain = -1
		}
		p.Update(gain)
		assert.Equal(t, i == n, p.ShouldStop(), "after %d moves", i)
	}
}

func TestRandomWalkStopsOnNegativeDrift(t *testing.T) {
	p := &RandomWalk{alpha: 1, beta: 2}
	p.Reset()

	p.Update(-1)
	p.Update(-1)
	assert.False(t, p.ShouldStop(), "at most beta steps")
	p.Update(-1)
	assert.True(t, p.ShouldStop())

	p.Reset()
	for _, g := range []int{5, -1, 4} {
		p.Update(g)
	}
	assert.False(t, p.ShouldStop(), "positive drift")
}

func TestAdvancedRandomWalkUsesWindow(t *testing.T) {
	p := &AdvancedRandomWalk{window: 3, alpha: 1}
	p.Reset()

	p.Update(10)
	p.Update(-1)
	assert.False(t, p.ShouldStop(), "window not full")
	p.Update(-1)
	assert.False(t, p.ShouldStop(), "mean of {10,-1,-1} is positive")

	// the 10 leaves the window
	p.Update(-1)
	assert.True(t, p.ShouldStop())
}

func TestNGPRandomWalk(t *testing.T) {
	p := &NGPRandomWalk{alpha: 1, beta: 3}
	p.Reset()
	for i := 0; i < 3; i++ {
		p.Update(-1)
	}
	assert.False(t, p.ShouldStop(), "3·1 is not > 0+3")
	p.Update(-1)
	assert.True(t, p.ShouldStop())

	p.Reset()
	p.Update(1)
	assert.False(t, p.ShouldStop())
}

func TestNewStoppingPolicySelectsRule(t *testing.T) {
	fm := config.Default().FM
	for _, rule := range []config.StoppingRule{
		config.StopFruitlessMoves, config.StopRandomWalk, config.StopAdvancedRandomWalk, config.StopNGPRandomWalk,
	} {
		fm.StoppingRule = rule
		assert.Equal(t, string(rule), NewStoppingPolicy(fm, 100).Name())
	}
}

func TestNewStoppingPolicyDefaultsBetaToLogN(t *testing.T) {
	fm := config.Default().FM
	fm.Beta = 0

	fm.StoppingRule = config.StopRandomWalk
	assert.InDelta(t, math.Log(100), NewStoppingPolicy(fm, 100).(*RandomWalk).beta, 1e-12)
	fm.StoppingRule = config.StopNGPRandomWalk
	assert.InDelta(t, math.Log(100), NewStoppingPolicy(fm, 100).(*NGPRandomWalk).beta, 1e-12)

	fm.Beta = 2.5
	assert.Equal(t, 2.5, NewStoppingPolicy(fm, 100).(*NGPRandomWalk).beta)
}

func TestRebalancingPolicies(t *testing.T) {
	overflowing := MoveCandidate{NodeWeight: 2, FromWeight: 5, ToWeight: 5, MaxPartWeight: 6}
	rebalancing := MoveCandidate{NodeWeight: 1, FromWeight: 8, ToWeight: 3, MaxPartWeight: 6}
	intoHeavier := MoveCandidate{NodeWeight: 1, FromWeight: 4, ToWeight: 3, MaxPartWeight: 6}

	none := NoRebalancing{}
	global := GlobalRebalancing{}

	tests := []struct {
		name       string
		policy     RebalancingPolicy
		move       MoveCandidate
		infeasible bool
		want       bool
	}{
		{"NoneRejectsOverflow", none, overflowing, false, false},
		{"NoneRejectsOverflowWhileInfeasible", none, overflowing, true, false},
		{"NoneAllowsFittingMove", none, intoHeavier, true, true},
		{"GlobalRejectsOverflowWhenFeasible", global, overflowing, false, false},
		{"GlobalAllowsFittingMoveWhenFeasible", global, intoHeavier, false, true},
		{"GlobalAllowsRebalancingWhileInfeasible", global, rebalancing, true, true},
		{"GlobalRejectsMoveFromLegalBlockWhileInfeasible", global, intoHeavier, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Admissible(tt.move, tt.infeasible))
		})
	}

	assert.Equal(t, "global", NewRebalancingPolicy(config.RebalancingGlobal).Name())
	assert.Equal(t, "none", NewRebalancingPolicy(config.RebalancingNone).Name())
}
