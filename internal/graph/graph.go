// Package graph holds the memory graph aggregate and its derived indexes.
//
// A Graph is exclusively owned by one engine. It is not safe for concurrent
// use; callers serialize access. Structural mutations made through Graph
// methods invalidate the adjacency index and the semantic-distance cache
// before they return.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("duplicate node id")
)

// Graph is the node map, synapse list and hyperedge list of one memory.
type Graph struct {
	Nodes      map[string]*Node
	Synapses   []*Synapse
	Hyperedges []*Hyperedge

	index     *AdjacencyIndex
	traversal *Traversal
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// FromParts assembles a graph from previously persisted parts.
func FromParts(nodes []*Node, synapses []*Synapse, hyperedges []*Hyperedge) *Graph {
	g := New()
	for _, n := range nodes {
		g.Nodes[n.ID] = n
	}
	g.Synapses = synapses
	g.Hyperedges = hyperedges
	return g
}

// Adjacency returns the cached bidirectional neighbor index.
func (g *Graph) Adjacency() *AdjacencyIndex {
	if g.index == nil {
		g.index = &AdjacencyIndex{graph: g}
	}
	return g.index
}

// Traversal returns the memoized semantic-distance gate.
func (g *Graph) Traversal() *Traversal {
	if g.traversal == nil {
		g.traversal = &Traversal{index: g.Adjacency()}
	}
	return g.traversal
}

// Invalidate drops all derived state. Call it after mutating Synapses directly.
func (g *Graph) Invalidate() {
	g.Adjacency().Invalidate()
	g.Traversal().Invalidate()
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// Live returns the node if it exists and is not archived.
func (g *Graph) Live(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	if !ok || n.Archived {
		return nil, false
	}
	return n, true
}

// SortedNodeIDs returns every node id in lexical order.
func (g *Graph) SortedNodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddNode inserts a node. Ids are permanent, so re-adding an id is an error.
func (g *Graph) AddNode(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("add node: empty id")
	}
	if _, exists := g.Nodes[n.ID]; exists {
		return fmt.Errorf("add node %s: %w", n.ID, ErrDuplicateNode)
	}
	g.Nodes[n.ID] = n
	g.Invalidate()
	return nil
}

// Archive hides a node from activation. The node and its edges are kept.
func (g *Graph) Archive(id string) error {
	n, ok := g.Nodes[id]
	if !ok {
		return fmt.Errorf("archive %s: %w", id, ErrNodeNotFound)
	}
	n.Archived = true
	n.Activation = 0
	return nil
}

// FindSynapse returns the synapse joining a and b in either direction, or nil.
func (g *Graph) FindSynapse(a, b string) *Synapse {
	for _, s := range g.Adjacency().Get()[a] {
		if s.Target == b {
			return s.Synapse
		}
	}
	return nil
}

// AddSynapse appends a synapse and invalidates derived state.
func (g *Graph) AddSynapse(s *Synapse) {
	g.Synapses = append(g.Synapses, s)
	g.Invalidate()
}

// RemoveSynapses drops every synapse for which drop returns true and reports
// how many were removed.
func (g *Graph) RemoveSynapses(drop func(*Synapse) bool) int {
	kept := g.Synapses[:0]
	removed := 0
	for _, s := range g.Synapses {
		if drop(s) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(g.Synapses); i++ {
		g.Synapses[i] = nil
	}
	g.Synapses = kept
	if removed > 0 {
		g.Invalidate()
	}
	return removed
}

// Dangling reports whether either endpoint of s is missing from the graph.
func (g *Graph) Dangling(s *Synapse) bool {
	_, okSrc := g.Nodes[s.Source]
	_, okTgt := g.Nodes[s.Target]
	return !okSrc || !okTgt
}

// AddHyperedge appends a hyperedge.
func (g *Graph) AddHyperedge(h *Hyperedge) {
	g.Hyperedges = append(g.Hyperedges, h)
}

// Hyperedge returns the hyperedge with the given id.
func (g *Graph) Hyperedge(id string) (*Hyperedge, bool) {
	for _, h := range g.Hyperedges {
		if h.ID == id {
			return h, true
		}
	}
	return nil, false
}

// removeHyperedgeAt is only used when a merge absorbs one hyperedge into another.
func (g *Graph) removeHyperedgeAt(i int) {
	copy(g.Hyperedges[i:], g.Hyperedges[i+1:])
	g.Hyperedges[len(g.Hyperedges)-1] = nil
	g.Hyperedges = g.Hyperedges[:len(g.Hyperedges)-1]
}

// AbsorbHyperedge removes the hyperedge with the given id after its members
// have been folded into another. It reports whether anything was removed.
func (g *Graph) AbsorbHyperedge(id string) bool {
	for i, h := range g.Hyperedges {
		if h.ID == id {
			g.removeHyperedgeAt(i)
			return true
		}
	}
	return false
}

// Degree returns the number of distinct live neighbors of id.
func (g *Graph) Degree(id string) int {
	seen := make(map[string]bool)
	for _, nb := range g.Adjacency().Get()[id] {
		if _, ok := g.Live(nb.Target); ok {
			seen[nb.Target] = true
		}
	}
	return len(seen)
}
