package engine

import "github.com/lazypower/mnemo/internal/graph"

// Contradiction is a pair of simultaneously active nodes joined by a
// contradiction synapse. A < B lexically.
type Contradiction struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	Weight float64 `json:"weight"`
}

// DetectContradictions reports each unordered active pair linked by a
// contradiction-typed synapse once. It never mutates the graph.
func DetectContradictions(g *graph.Graph, activated []ActivatedNode) []Contradiction {
	active := make(map[string]bool, len(activated))
	for _, a := range activated {
		active[a.ID] = true
	}

	adj := g.Adjacency().Get()
	seen := make(map[[2]string]bool)
	out := []Contradiction{}
	for _, a := range activated {
		for _, nb := range adj[a.ID] {
			if nb.Type() != graph.SynapseContradiction || !active[nb.Target] || nb.Target == a.ID {
				continue
			}
			key := [2]string{a.ID, nb.Target}
			if key[1] < key[0] {
				key[0], key[1] = key[1], key[0]
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Contradiction{A: key[0], B: key[1], Weight: nb.Weight()})
		}
	}
	return out
}
