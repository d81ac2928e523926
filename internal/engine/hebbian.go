package engine

import (
	"github.com/lazypower/mnemo/internal/graph"
)

const (
	hebbianBaseRate   = 0.15
	hebbianSalience   = 0.05
	minLearnedWeight  = 0.01
	maxLearnedWeight  = 1.0
	plasticityEpsilon = 1e-9
)

// updateHebbianWeights moves every synapse between two activated nodes toward
// their joint energy: w += eta * (E_src * E_tgt - w), clamped to [0.01, 1].
// Activated nodes also gain salience and are reset to full activation.
// Returns the number of synapses updated.
func updateHebbianWeights(g *graph.Graph, activated []ActivatedNode, plasticity float64) int {
	if plasticity < plasticityEpsilon || len(activated) == 0 {
		return 0
	}
	eta := hebbianBaseRate * plasticity

	energy := make(map[string]float64, len(activated))
	for _, a := range activated {
		energy[a.ID] = a.Energy
	}

	updated := 0
	for _, s := range g.Synapses {
		eSrc, okSrc := energy[s.Source]
		eTgt, okTgt := energy[s.Target]
		if !okSrc || !okTgt {
			continue
		}
		s.Weight = clamp(s.Weight+eta*(eSrc*eTgt-s.Weight), minLearnedWeight, maxLearnedWeight)
		s.CoActivation++
		updated++
	}

	for _, a := range activated {
		n, ok := g.Nodes[a.ID]
		if !ok {
			continue
		}
		n.Salience = clamp01(n.Salience + hebbianSalience*plasticity)
		n.Activation = 1.0
	}
	return updated
}
