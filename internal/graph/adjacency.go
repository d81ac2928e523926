package graph

// Neighbor is one direction of a synapse as seen from a node.
type Neighbor struct {
	Target  string
	Synapse *Synapse
}

// Weight is read through the synapse so learning updates stay visible
// without a rebuild.
func (n Neighbor) Weight() float64 { return n.Synapse.Weight }

// Type returns the synapse type.
func (n Neighbor) Type() SynapseType { return n.Synapse.Type }

// AdjacencyIndex is a lazily built id → neighbors map. Both directions of every
// synapse are indexed. It is never persisted.
type AdjacencyIndex struct {
	graph     *Graph
	neighbors map[string][]Neighbor
	valid     bool
}

// Get returns the index, building it from the current synapses if it was
// invalidated since the last call.
func (a *AdjacencyIndex) Get() map[string][]Neighbor {
	if a.valid {
		return a.neighbors
	}
	m := make(map[string][]Neighbor, len(a.graph.Nodes))
	for _, s := range a.graph.Synapses {
		m[s.Source] = append(m[s.Source], Neighbor{Target: s.Target, Synapse: s})
		m[s.Target] = append(m[s.Target], Neighbor{Target: s.Source, Synapse: s})
	}
	a.neighbors = m
	a.valid = true
	return m
}

// Invalidate forces the next Get to rebuild.
func (a *AdjacencyIndex) Invalidate() {
	a.valid = false
	a.neighbors = nil
}
