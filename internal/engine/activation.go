package engine

import (
	"sort"
	"time"

	"github.com/lazypower/mnemo/internal/graph"
)

const (
	// resonanceSalienceGain scales the salience boost a firing hyperedge gives itself.
	resonanceSalienceGain = 0.05
	// resonanceFloor is the mean member energy a hyperedge must exceed to fire.
	resonanceFloor = 0.1
	// resonanceMinActive is the active-member count a hyperedge must exceed to fire.
	resonanceMinActive = 2
)

// ActivatedNode is one row of an activation result.
type ActivatedNode struct {
	ID           string   `json:"id"`
	Energy       float64  `json:"energy"`
	Activation   float64  `json:"activation"`
	Salience     float64  `json:"salience"`
	BiasedEnergy float64  `json:"biased_energy"`
	Depth        int      `json:"depth"`
	Path         []string `json:"path"`
}

// ActivationParams controls one spreading-activation run.
type ActivationParams struct {
	Gamma    float64
	Theta    float64
	HeatBias float64
	MaxDepth int
	Disabled bool // return the seeds at energy 1.0 and touch nothing
}

type firing struct {
	energy float64
	depth  int
	path   []string
}

type incoming struct {
	total      float64
	from       string
	fromEnergy float64
}

// accumulator sums per-target input for one generation, remembering first-seen
// order so firing is deterministic.
type accumulator struct {
	byID  map[string]*incoming
	order []string
}

func newAccumulator() *accumulator {
	return &accumulator{byID: make(map[string]*incoming)}
}

func (a *accumulator) entry(id string) (*incoming, bool) {
	in, ok := a.byID[id]
	if !ok {
		in = &incoming{fromEnergy: -1}
		a.byID[id] = in
		a.order = append(a.order, id)
	}
	return in, ok
}

// add sums a synaptic contribution.
func (a *accumulator) add(id string, amount float64, from string, fromEnergy float64) {
	in, _ := a.entry(id)
	in.total += amount
	if fromEnergy > in.fromEnergy {
		in.from = from
		in.fromEnergy = fromEnergy
	}
}

// maxPool merges a hyperedge contribution without double counting synaptic input.
func (a *accumulator) maxPool(id string, amount float64, from string, fromEnergy float64) {
	in, existed := a.entry(id)
	if amount > in.total {
		in.total = amount
	}
	if !existed || fromEnergy > in.fromEnergy {
		in.from = from
		in.fromEnergy = fromEnergy
	}
}

// Activate propagates energy from the seeds (plus every live goal node)
// through the graph, generation by generation, up to MaxDepth generations.
// A node that fired in an earlier generation never receives further input.
// Activated nodes get activation = max(activation, energy).
func Activate(g *graph.Graph, seeds []string, p ActivationParams, now time.Time) []ActivatedNode {
	seedIDs := resolveSeeds(g, seeds)

	state := make(map[string]*firing, len(seedIDs))
	order := make([]string, 0, len(seedIDs))
	for _, id := range seedIDs {
		state[id] = &firing{energy: 1.0, path: []string{id}}
		order = append(order, id)
	}

	if p.Disabled {
		out := make([]ActivatedNode, 0, len(order))
		for _, id := range order {
			n := g.Nodes[id]
			out = append(out, ActivatedNode{
				ID:           id,
				Energy:       1.0,
				Activation:   n.Activation,
				Salience:     n.Salience,
				BiasedEnergy: 1.0,
				Path:         []string{id},
			})
		}
		return out
	}

	adj := g.Adjacency().Get()
	resonated := make(map[string]bool)
	frontier := seedIDs

	for depth := 1; depth <= p.MaxDepth && len(frontier) > 0; depth++ {
		in := newAccumulator()
		for _, src := range frontier {
			srcEnergy := state[src].energy
			for _, nb := range adj[src] {
				if _, done := state[nb.Target]; done {
					continue
				}
				if _, ok := g.Live(nb.Target); !ok {
					continue
				}
				in.add(nb.Target, srcEnergy*nb.Weight()*p.Gamma, src, srcEnergy)
			}
		}

		resonate(g, state, in, resonated, p.Gamma)

		var next []string
		for _, id := range in.order {
			acc := in.byID[id]
			theta := p.Theta
			if t := g.Nodes[id].Threshold; t != nil {
				theta = *t
			}
			if acc.total < theta {
				continue
			}
			path := make([]string, 0, depth+1)
			if src, ok := state[acc.from]; ok {
				path = append(path, src.path...)
			}
			state[id] = &firing{
				energy: acc.total / (1 + acc.total),
				depth:  depth,
				path:   append(path, id),
			}
			order = append(order, id)
			next = append(next, id)
		}
		frontier = next
	}

	out := make([]ActivatedNode, 0, len(order))
	for _, id := range order {
		n := g.Nodes[id]
		f := state[id]
		if f.energy > n.Activation {
			n.Activation = clamp01(f.energy)
		}
		stamp := now
		n.LastActive = &stamp
		out = append(out, ActivatedNode{
			ID:           id,
			Energy:       f.energy,
			Activation:   n.Activation,
			Salience:     n.Salience,
			BiasedEnergy: f.energy * (1 + p.HeatBias*n.Salience),
			Depth:        f.depth,
			Path:         f.path,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BiasedEnergy > out[j].BiasedEnergy
	})
	return out
}

// resolveSeeds keeps known, live seeds in the given order and appends every
// live goal node.
func resolveSeeds(g *graph.Graph, seeds []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range seeds {
		if seen[id] {
			continue
		}
		if _, ok := g.Live(id); !ok {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range g.SortedNodeIDs() {
		n := g.Nodes[id]
		if n.Type != graph.NodeGoal || n.Archived || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// resonate fires each qualifying hyperedge at most once per run: it boosts its
// own salience and max-pools its contribution into every not-yet-fired member.
func resonate(g *graph.Graph, state map[string]*firing, in *accumulator, resonated map[string]bool, gamma float64) {
	for _, h := range g.Hyperedges {
		if resonated[h.ID] {
			continue
		}
		var sum, bestEnergy float64
		var active int
		best := ""
		for _, m := range h.Members {
			f, ok := state[m]
			if !ok {
				continue
			}
			active++
			sum += f.energy
			if f.energy > bestEnergy {
				best, bestEnergy = m, f.energy
			}
		}
		if active <= resonanceMinActive {
			continue
		}
		mean := sum / float64(active)
		if mean <= resonanceFloor {
			continue
		}

		resonated[h.ID] = true
		h.Salience = clamp01(h.Salience + resonanceSalienceGain*mean)
		contribution := mean * h.Weight * gamma * h.Salience
		for _, m := range h.Members {
			if _, done := state[m]; done {
				continue
			}
			if _, ok := g.Live(m); !ok {
				continue
			}
			in.maxPool(m, contribution, best, bestEnergy)
		}
	}
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
