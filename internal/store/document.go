package store

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lazypower/mnemo/internal/graph"
)

// Document is the flat interchange form of a whole graph.
type Document struct {
	Nodes      []*graph.Node      `json:"nodes"`
	Synapses   []*graph.Synapse   `json:"synapses"`
	Hyperedges []*graph.Hyperedge `json:"hyperedges"`
}

// NewDocument flattens g with nodes in id order.
func NewDocument(g *graph.Graph) Document {
	doc := Document{
		Nodes:      make([]*graph.Node, 0, len(g.Nodes)),
		Synapses:   g.Synapses,
		Hyperedges: g.Hyperedges,
	}
	for _, id := range g.SortedNodeIDs() {
		doc.Nodes = append(doc.Nodes, g.Nodes[id])
	}
	if doc.Synapses == nil {
		doc.Synapses = []*graph.Synapse{}
	}
	if doc.Hyperedges == nil {
		doc.Hyperedges = []*graph.Hyperedge{}
	}
	return doc
}

// WriteDocument encodes g as indented JSON.
func WriteDocument(w io.Writer, g *graph.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(g)); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// ReadDocument decodes a document into a graph. Unknown type tags map onto
// the explicit unknown or custom variants; duplicate node ids are rejected.
func ReadDocument(r io.Reader) (*graph.Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	g := graph.New()
	for _, n := range doc.Nodes {
		if n == nil {
			continue
		}
		n.Type = graph.ParseNodeType(string(n.Type))
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
	}
	for _, s := range doc.Synapses {
		if s == nil {
			continue
		}
		s.Type = graph.ParseSynapseType(string(s.Type))
		g.Synapses = append(g.Synapses, s)
	}
	for _, h := range doc.Hyperedges {
		if h == nil {
			continue
		}
		h.Source = graph.ParseHyperedgeSource(string(h.Source))
		g.Hyperedges = append(g.Hyperedges, h)
	}
	g.Invalidate()
	return g, nil
}
