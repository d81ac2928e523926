package graph

// DefaultMaxHops bounds the semantic-distance BFS.
const DefaultMaxHops = 3

type pairKey struct {
	lo, hi string
	hops   int
}

func newPairKey(a, b string, hops int) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b, hops: hops}
}

// Traversal answers "are these two nodes already near each other" so that
// neurogenesis cannot wire long-range shortcuts across the graph.
type Traversal struct {
	index *AdjacencyIndex
	cache map[pairKey]bool
}

// AreSemanticallyClose reports whether b is reachable from a within maxHops.
// A node with no incident synapses is close to everything, which lets
// isolated nodes make their first connection.
func (t *Traversal) AreSemanticallyClose(a, b string, maxHops int) bool {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if a == b {
		return true
	}
	key := newPairKey(a, b, maxHops)
	if v, ok := t.cache[key]; ok {
		return v
	}

	adj := t.index.Get()
	var near bool
	if len(adj[a]) == 0 || len(adj[b]) == 0 {
		near = true
	} else {
		near = reachable(adj, a, b, maxHops)
	}

	if t.cache == nil {
		t.cache = make(map[pairKey]bool)
	}
	t.cache[key] = near
	return near
}

// Invalidate clears memoized answers.
func (t *Traversal) Invalidate() {
	t.cache = nil
}

func reachable(adj map[string][]Neighbor, from, to string, maxHops int) bool {
	visited := map[string]bool{from: true}
	frontier := []string{from}
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range adj[id] {
				if nb.Target == to {
					return true
				}
				if visited[nb.Target] {
					continue
				}
				visited[nb.Target] = true
				next = append(next, nb.Target)
			}
		}
		frontier = next
	}
	return false
}
