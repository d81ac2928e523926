package engine

import (
	"sort"

	"github.com/lazypower/mnemo/internal/graph"
)

const (
	coActivationThreshold = 0.4
	coActivationMaxNodes  = 5
	coActivationDecay     = 0.9
	coActivationFloor     = 1.0
)

// Triple is a co-activation count for three nodes, ids in lexical order.
type Triple struct {
	Members [3]string
	Count   float64
}

// CoActivationTracker counts how often three nodes are strongly active
// together. Counts decay on every consolidation; nothing is persisted.
type CoActivationTracker struct {
	counts map[[3]string]float64
}

// NewCoActivationTracker returns an empty tracker.
func NewCoActivationTracker() *CoActivationTracker {
	return &CoActivationTracker{counts: make(map[[3]string]float64)}
}

func tripleKey(a, b, c string) [3]string {
	k := [3]string{a, b, c}
	sort.Strings(k[:])
	return k
}

// Record takes up to five activated nodes whose current activation exceeds 0.4
// and increments every 3-combination among them.
func (t *CoActivationTracker) Record(g *graph.Graph, activated []ActivatedNode) {
	type hot struct {
		id  string
		act float64
	}
	var nodes []hot
	seen := make(map[string]bool)
	for _, a := range activated {
		n, ok := g.Live(a.ID)
		if !ok || seen[a.ID] || n.Activation <= coActivationThreshold {
			continue
		}
		seen[a.ID] = true
		nodes = append(nodes, hot{a.ID, n.Activation})
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].act > nodes[j].act })
	if len(nodes) > coActivationMaxNodes {
		nodes = nodes[:coActivationMaxNodes]
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			for k := j + 1; k < len(nodes); k++ {
				t.counts[tripleKey(nodes[i].id, nodes[j].id, nodes[k].id)]++
			}
		}
	}
}

// Count returns the current count for a triple in any order.
func (t *CoActivationTracker) Count(a, b, c string) float64 {
	return t.counts[tripleKey(a, b, c)]
}

// Len returns the number of tracked triples.
func (t *CoActivationTracker) Len() int { return len(t.counts) }

// Triples returns every triple with count >= minCount, highest count first.
func (t *CoActivationTracker) Triples(minCount float64) []Triple {
	var out []Triple
	for k, c := range t.counts {
		if c >= minCount {
			out = append(out, Triple{Members: k, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return tripleLess(out[i].Members, out[j].Members)
	})
	return out
}

// Decay multiplies every count by 0.9 and forgets those that fall below 1.
func (t *CoActivationTracker) Decay() {
	for k, c := range t.counts {
		c *= coActivationDecay
		if c < coActivationFloor {
			delete(t.counts, k)
			continue
		}
		t.counts[k] = c
	}
}

func tripleLess(a, b [3]string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
