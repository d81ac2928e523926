package engine

import "github.com/lazypower/mnemo/internal/graph"

const (
	orthogonalityCeiling = 0.3
	orthogonalityDecay   = 0.85
)

// EnforceOrthogonality decays weak cross-type synapses (weight < 0.3) by 0.85,
// never below the learned-weight floor. Synapses with a missing endpoint are
// skipped. Returns the number of synapses touched.
func EnforceOrthogonality(g *graph.Graph) int {
	touched := 0
	for _, s := range g.Synapses {
		if s.Weight >= orthogonalityCeiling || g.Dangling(s) {
			continue
		}
		if g.Nodes[s.Source].Type == g.Nodes[s.Target].Type {
			continue
		}
		s.Weight = clamp(s.Weight*orthogonalityDecay, minLearnedWeight, maxLearnedWeight)
		touched++
	}
	return touched
}
