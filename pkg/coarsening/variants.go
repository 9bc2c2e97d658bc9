package coarsening

import (
	"github.com/rs/zerolog"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/datastructure"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// Full re-rates every hypernode in each round and contracts the globally
// best pair. Quadratic, but simple enough to serve as a reference.
type Full struct {
	base
}

func NewFull(hg *hypergraph.Hypergraph, cfg config.Config, logger zerolog.Logger) *Full {
	return &Full{base: newBase(hg, cfg, logger)}
}

func (*Full) Name() string { return string(config.CoarseningFull) }

func (c *Full) Coarsen(limit int) {
	for c.hg.CurrentNumNodes() > limit {
		best, rep := invalidRating, hypergraph.InvalidNode
		for _, u := range c.hg.Nodes() {
			r := c.rater.Rate(u, nil)
			if r.Valid && (!best.Valid || r.Value > best.Value) {
				best, rep = r, u
			}
		}
		if !best.Valid {
			break
		}
		c.contract(rep, best.Target)
	}
	c.done(c.Name(), limit)
}

// Lazy keeps every hypernode in a heap keyed by its best rating. After a
// contraction, the neighbors of the representative are only flagged; their
// rating is recomputed when they reach the top of the heap.
type Lazy struct {
	base
	pq       *datastructure.MaxHeap[float64]
	target   []hypergraph.HypernodeID
	outdated []bool
}

func NewLazy(hg *hypergraph.Hypergraph, cfg config.Config, logger zerolog.Logger) *Lazy {
	n := hg.InitialNumNodes()
	return &Lazy{
		base:     newBase(hg, cfg, logger),
		pq:       datastructure.NewMaxHeap[float64](n),
		target:   make([]hypergraph.HypernodeID, n),
		outdated: make([]bool, n),
	}
}

func (*Lazy) Name() string { return string(config.CoarseningLazy) }

func (c *Lazy) Coarsen(limit int) {
	for _, u := range c.hg.Nodes() {
		c.rerate(u)
	}

	for !c.pq.Empty() && c.hg.CurrentNumNodes() > limit {
		u, _ := c.pq.Top()
		v := c.target[u]
		if c.outdated[u] || !c.rater.Admissible(u, v) {
			c.rerate(u)
			continue
		}

		c.contract(u, v)
		c.pq.Remove(v)
		c.rerate(u)
		for _, e := range c.hg.IncidentEdges(u) {
			for _, w := range c.hg.Pins(e) {
				if w != u && c.pq.Contains(w) {
					c.outdated[w] = true
				}
			}
		}
	}
	c.done(c.Name(), limit)
}

func (c *Lazy) rerate(u hypergraph.HypernodeID) {
	c.outdated[u] = false
	r := c.rater.Rate(u, nil)
	if !r.Valid {
		c.pq.Remove(u)
		return
	}
	c.target[u] = r.Target
	c.pq.Upsert(u, r.Value)
}

// ML contracts in rounds. Within a round every hypernode takes part in at
// most one contraction and nodes adjacent to a representative are frozen
// until the next round, so the contractions of a round share no pins.
type ML struct {
	base
	frozen []bool
}

func NewML(hg *hypergraph.Hypergraph, cfg config.Config, logger zerolog.Logger) *ML {
	return &ML{base: newBase(hg, cfg, logger), frozen: make([]bool, hg.InitialNumNodes())}
}

func (*ML) Name() string { return string(config.CoarseningML) }

func (c *ML) Coarsen(limit int) {
	accept := func(v hypergraph.HypernodeID) bool { return !c.frozen[v] }
	round := 0
	for c.hg.CurrentNumNodes() > limit {
		for i := range c.frozen {
			c.frozen[i] = false
		}
		order := c.hg.Nodes()
		c.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		contracted := 0
		for _, u := range order {
			if c.hg.CurrentNumNodes() <= limit {
				break
			}
			if c.frozen[u] || !c.hg.NodeIsValid(u) {
				continue
			}
			r := c.rater.Rate(u, accept)
			if !r.Valid {
				continue
			}
			c.contract(u, r.Target)
			contracted++
			c.frozen[u], c.frozen[r.Target] = true, true
			for _, e := range c.hg.IncidentEdges(u) {
				for _, w := range c.hg.Pins(e) {
					c.frozen[w] = true
				}
			}
		}
		round++
		c.logger.Debug().Int("round", round).Int("contractions", contracted).
			Int("nodes", c.hg.CurrentNumNodes()).Msg("ML coarsening round")
		if contracted == 0 {
			break
		}
	}
	c.done(c.Name(), limit)
}
