package engine

import "github.com/lazypower/mnemo/internal/graph"

// EnergyReport summarizes one energy-dynamics tick.
type EnergyReport struct {
	Flow            float64 `json:"flow"` // total activation moved along synapses
	TotalActivation float64 `json:"total_activation"`
	Rescaled        bool    `json:"rescaled"`
}

// applyEnergyDynamics runs one tick:
//   - one explicit-Euler heat-equation step along every synapse between live
//     nodes, moving (a_src - a_tgt) * weight * diffusion from the hotter to
//     the colder end
//   - activation *= short-term decay, salience *= long-term decay, both clamped to [0,1]
//   - if total activation exceeds ceiling, every activation is rescaled by ceiling/total
//   - hyperedge salience *= long-term decay, whether or not it fired
func applyEnergyDynamics(g *graph.Graph, params PhaseParams, ceiling float64) EnergyReport {
	var report EnergyReport

	if params.Diffusion > 0 {
		delta := make(map[string]float64)
		for _, s := range g.Synapses {
			src, okSrc := g.Nodes[s.Source]
			tgt, okTgt := g.Nodes[s.Target]
			if !okSrc || !okTgt || s.Source == s.Target || src.Archived || tgt.Archived {
				continue
			}
			flow := (src.Activation - tgt.Activation) * s.Weight * params.Diffusion
			delta[s.Source] -= flow
			delta[s.Target] += flow
			if flow < 0 {
				report.Flow -= flow
			} else {
				report.Flow += flow
			}
		}
		for id, d := range delta {
			n := g.Nodes[id]
			n.Activation = clamp01(n.Activation + d)
		}
	}

	ids := g.SortedNodeIDs()
	total := 0.0
	for _, id := range ids {
		n := g.Nodes[id]
		n.Activation = clamp01(n.Activation * params.ShortTermDecay)
		n.Salience = clamp01(n.Salience * params.LongTermDecay)
		total += n.Activation
	}

	if ceiling > 0 && total > ceiling {
		scale := ceiling / total
		total = 0
		for _, id := range ids {
			n := g.Nodes[id]
			n.Activation = clamp01(n.Activation * scale)
			total += n.Activation
		}
		report.Rescaled = true
	}
	report.TotalActivation = total

	for _, h := range g.Hyperedges {
		h.Salience = clamp01(h.Salience * params.LongTermDecay)
	}
	return report
}
