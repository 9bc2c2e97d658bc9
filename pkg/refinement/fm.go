package refinement

import (
	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/metrics"
)

type move struct {
	node     hypergraph.HypernodeID
	from, to hypergraph.PartitionID
}

// selector owns the priority queues of an FM pass and picks the next move.
type selector interface {
	clear()
	insert(f *FM, u hypergraph.HypernodeID)
	update(f *FM, u hypergraph.HypernodeID)
	remove(u hypergraph.HypernodeID)
	next(f *FM) (hypergraph.HypernodeID, hypergraph.PartitionID, bool)
}

// FM is a localized Fiduccia-Mattheyses search. Border hypernodes among the
// seeds are activated; moving a node locks it for the rest of the pass and
// updates the gains of its neighbors by delta, activating neighbors that
// become border nodes. At the end of the pass the partition is rolled back
// to the best state seen.
type FM struct {
	name      string
	hg        *hypergraph.Hypergraph
	objective metrics.Objective
	table     *gainTable
	sel       selector
	stopping  StoppingPolicy
	env       Env

	maxPartWeight hypergraph.HypernodeWeight
	active        []bool
	locked        []bool
	marked        []hypergraph.HypernodeID
	moves         []move

	changed     []hypergraph.HypernodeID
	changedMark []bool
	activate    []hypergraph.HypernodeID
}

func newFM(name string, hg *hypergraph.Hypergraph, objective metrics.Objective, sel selector,
	stopping StoppingPolicy, env Env) *FM {
	n := hg.InitialNumNodes()
	return &FM{
		name:        name,
		hg:          hg,
		objective:   objective,
		table:       newGainTable(hg, objective),
		sel:         sel,
		stopping:    stopping,
		env:         env,
		active:      make([]bool, n),
		locked:      make([]bool, n),
		changedMark: make([]bool, n),
	}
}

// NewTwoWayFM creates the bisection FM with one queue per block and the
// configured rebalancing policy. It requires k = 2.
func NewTwoWayFM(hg *hypergraph.Hypergraph, cfg config.Config, env Env) *FM {
	sel := &twoWaySelector{
		rebalancing: NewRebalancingPolicy(cfg.FM.Rebalancing),
	}
	for b := range sel.pq {
		sel.pq[b] = newGainHeap(hg.InitialNumNodes())
	}
	return newFM(string(config.RefinementTwoWayFM), hg, cfg.Partition.Objective, sel,
		NewStoppingPolicy(cfg.FM, hg.CurrentNumNodes()), env)
}

// NewKWayFM creates the k-way FM with one queue per target block optimizing
// the cut.
func NewKWayFM(hg *hypergraph.Hypergraph, cfg config.Config, env Env) *FM {
	return newFM(string(config.RefinementKWayFM), hg, metrics.ObjectiveCut, newKWaySelector(hg),
		NewStoppingPolicy(cfg.FM, hg.CurrentNumNodes()), env)
}

// NewKWayFMKM1 is NewKWayFM optimizing connectivity minus one.
func NewKWayFMKM1(hg *hypergraph.Hypergraph, cfg config.Config, env Env) *FM {
	return newFM(string(config.RefinementKWayFMKM1), hg, metrics.ObjectiveKM1, newKWaySelector(hg),
		NewStoppingPolicy(cfg.FM, hg.CurrentNumNodes()), env)
}

// NewMaxGainNodeKWayFM creates the k-way FM that keeps a single queue of
// hypernodes keyed by their best gain over all target blocks.
func NewMaxGainNodeKWayFM(hg *hypergraph.Hypergraph, cfg config.Config, env Env) *FM {
	sel := &maxGainSelector{pq: newGainHeap(hg.InitialNumNodes())}
	return newFM(string(config.RefinementKWayFMMaxGain), hg, cfg.Partition.Objective, sel,
		NewStoppingPolicy(cfg.FM, hg.CurrentNumNodes()), env)
}

func (f *FM) Name() string { return f.name }

// Initialize discards all pass state.
func (f *FM) Initialize() {
	f.reset()
	f.env.Logger.Debug().Str("refiner", f.name).Str("stopping", f.stopping.Name()).Msg("Refiner initialized")
}

func (f *FM) reset() {
	for _, u := range f.marked {
		f.active[u] = false
		f.locked[u] = false
	}
	f.marked = f.marked[:0]
	f.moves = f.moves[:0]
	f.sel.clear()
}

func (f *FM) Refine(nodes []hypergraph.HypernodeID, maxPartWeight hypergraph.HypernodeWeight,
	best *metrics.Metrics) bool {
	f.maxPartWeight = maxPartWeight
	f.reset()
	for _, u := range nodes {
		if f.hg.NodeIsValid(u) && !f.active[u] && f.hg.IsBorderNode(u) {
			f.activateNode(u)
		}
	}

	initialObj := best.Value(f.objective)
	initialImb := metrics.Imbalance(f.hg)
	current := initialObj
	bestObj, bestImb := initialObj, initialImb
	bestFeasible := metrics.Feasible(f.hg, maxPartWeight)
	bestIndex := 0

	f.stopping.Reset()
	for {
		u, to, ok := f.sel.next(f)
		if !ok {
			break
		}
		from := f.hg.PartID(u)
		gain := f.table.gain(u, to)
		f.apply(u, from, to)
		current -= gain
		f.moves = append(f.moves, move{node: u, from: from, to: to})
		f.env.Tracker.LogMove(f.name, u, from, to, gain, current)
		f.stopping.Update(gain)

		imb := metrics.Imbalance(f.hg)
		feasible := metrics.Feasible(f.hg, maxPartWeight)
		if betterState(current, imb, feasible, bestObj, bestImb, bestFeasible) {
			bestObj, bestImb, bestFeasible = current, imb, feasible
			bestIndex = len(f.moves)
			f.stopping.Reset()
			continue
		}
		if f.stopping.ShouldStop() {
			break
		}
	}

	for i := len(f.moves) - 1; i >= bestIndex; i-- {
		m := f.moves[i]
		f.hg.ChangeNodePart(m.node, m.to, m.from)
		f.env.Tracker.LogRollback(f.name, m.node, m.to, m.from)
	}

	best.SetValue(f.objective, bestObj)
	best.Imbalance = bestImb
	return bestObj < initialObj || (bestObj == initialObj && bestImb < initialImb)
}

func (f *FM) activateNode(u hypergraph.HypernodeID) {
	f.active[u] = true
	f.marked = append(f.marked, u)
	f.table.compute(u)
	f.sel.insert(f, u)
}

// apply moves u and brings the gains of its unlocked neighbors up to date.
func (f *FM) apply(u hypergraph.HypernodeID, from, to hypergraph.PartitionID) {
	f.hg.ChangeNodePart(u, from, to)
	f.locked[u] = true
	if !f.active[u] {
		f.active[u] = true
		f.marked = append(f.marked, u)
	}
	f.sel.remove(u)

	for _, e := range f.hg.IncidentEdges(u) {
		if f.hg.EdgeSize(e) == 1 {
			continue
		}
		for _, v := range f.hg.Pins(e) {
			if v == u || f.locked[v] || (f.changedMark[v] && !f.active[v]) {
				continue
			}
			if !f.active[v] {
				if f.hg.Connectivity(e) > 1 {
					f.changedMark[v] = true
					f.activate = append(f.activate, v)
				}
				continue
			}
			if f.table.applyDelta(v, e, from, to) && !f.changedMark[v] {
				f.changedMark[v] = true
				f.changed = append(f.changed, v)
			}
		}
	}

	for _, v := range f.changed {
		f.changedMark[v] = false
		f.sel.update(f, v)
	}
	for _, v := range f.activate {
		f.changedMark[v] = false
		f.activateNode(v)
	}
	f.changed = f.changed[:0]
	f.activate = f.activate[:0]
}

func (f *FM) moveCandidate(u hypergraph.HypernodeID, to hypergraph.PartitionID) MoveCandidate {
	return MoveCandidate{
		NodeWeight:    f.hg.NodeWeight(u),
		FromWeight:    f.hg.PartWeight(f.hg.PartID(u)),
		ToWeight:      f.hg.PartWeight(to),
		MaxPartWeight: f.maxPartWeight,
	}
}

func (f *FM) fits(u hypergraph.HypernodeID, to hypergraph.PartitionID) bool {
	return f.hg.PartWeight(to)+f.hg.NodeWeight(u) <= f.maxPartWeight
}
