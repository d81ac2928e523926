package engine

import (
	"math"

	"github.com/lazypower/mnemo/internal/graph"
)

// Telemetry is a read-only snapshot of the graph and the last activation.
type Telemetry struct {
	Phase         Phase   `json:"phase"`
	Entropy       float64 `json:"entropy"`
	Focus         float64 `json:"focus"`
	Density       float64 `json:"density"`
	Plasticity    float64 `json:"plasticity"`
	Nodes         int     `json:"nodes"`
	ArchivedNodes int     `json:"archived_nodes"`
	Synapses      int     `json:"synapses"`
	Hyperedges    int     `json:"hyperedges"`
	Activated     int     `json:"activated"`
	Queries       int     `json:"queries"`

	SessionRelationships int `json:"session_relationships"`
}

// computeTelemetry derives the snapshot. Entropy is the normalized Shannon
// entropy of the activated energy distribution; focus is the top share.
func computeTelemetry(g *graph.Graph, activated []ActivatedNode, phase Phase) Telemetry {
	t := Telemetry{
		Phase:      phase,
		Plasticity: phase.Params().Plasticity,
		Synapses:   len(g.Synapses),
		Hyperedges: len(g.Hyperedges),
		Activated:  len(activated),
	}
	live := 0
	for _, n := range g.Nodes {
		t.Nodes++
		if n.Archived {
			t.ArchivedNodes++
			continue
		}
		live++
	}
	if live > 1 {
		pairs := float64(live) * float64(live-1) / 2
		t.Density = math.Min(1, float64(len(g.Synapses))/pairs)
	}

	total, top := 0.0, 0.0
	for _, a := range activated {
		total += a.Energy
		if a.Energy > top {
			top = a.Energy
		}
	}
	if total <= 0 {
		return t
	}
	t.Focus = top / total
	if len(activated) > 1 {
		h := 0.0
		for _, a := range activated {
			if a.Energy <= 0 {
				continue
			}
			p := a.Energy / total
			h -= p * math.Log(p)
		}
		t.Entropy = h / math.Log(float64(len(activated)))
	}
	return t
}
