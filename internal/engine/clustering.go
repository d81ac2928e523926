package engine

import (
	"fmt"

	"github.com/lazypower/mnemo/internal/graph"
)

const (
	clusterMinMembers = 2
	clusterWeight     = 0.8
	patternWeight     = 0.9
)

// Cluster categories, in assignment priority order.
const (
	ClusterActors     = "actors"
	ClusterKnowledge  = "knowledge"
	ClusterTimeline   = "timeline"
	ClusterBoundaries = "boundaries"
	ClusterObjectives = "objectives"
	ClusterSemantic   = "semantic"
)

type clusterCategory struct {
	name   string
	title  string
	types  []graph.NodeType
	anchor bool
}

var clusterTaxonomy = []clusterCategory{
	{name: ClusterActors, title: "Actors", types: []graph.NodeType{graph.NodeEntity}},
	{name: ClusterKnowledge, title: "Knowledge", types: []graph.NodeType{graph.NodeConcept}},
	{name: ClusterTimeline, title: "Timeline", types: []graph.NodeType{graph.NodeEvent}},
	{name: ClusterBoundaries, title: "Boundaries", types: []graph.NodeType{graph.NodeConstraint, graph.NodePreference}},
	{name: ClusterObjectives, title: "Objectives", types: []graph.NodeType{graph.NodeGoal}, anchor: true},
}

func (c clusterCategory) matches(t graph.NodeType) bool {
	for _, ct := range c.types {
		if ct == t {
			return true
		}
	}
	return false
}

type contextPattern struct {
	label    string
	requires []string
}

var contextPatterns = []contextPattern{
	{label: "Project Context", requires: []string{ClusterActors, ClusterObjectives, ClusterKnowledge}},
	{label: "Decision Context", requires: []string{ClusterTimeline, ClusterBoundaries, ClusterActors}},
}

// ClusterBatch groups a batch of freshly ingested nodes into labeled
// hyperedges by taxonomy. The objectives cluster always carries the anchor.
// Nodes left unclustered that share a significant label word (held by at
// least half of them) form one semantic cluster, also anchored.
func (m *HyperedgeManager) ClusterBatch(nodeIDs []string, anchor, context string) []*graph.Hyperedge {
	if _, ok := m.graph.Live(anchor); !ok {
		anchor = ""
	}

	buckets := make(map[string][]string, len(clusterTaxonomy))
	seen := make(map[string]bool, len(nodeIDs))
	var unassigned []string
	for _, id := range nodeIDs {
		n, ok := m.graph.Live(id)
		if !ok || seen[id] || id == anchor {
			continue
		}
		seen[id] = true
		placed := false
		for _, cat := range clusterTaxonomy {
			if cat.matches(n.Type) {
				buckets[cat.name] = append(buckets[cat.name], id)
				placed = true
				break
			}
		}
		if !placed {
			unassigned = append(unassigned, id)
		}
	}

	var created []*graph.Hyperedge
	for _, cat := range clusterTaxonomy {
		members := buckets[cat.name]
		if cat.anchor && anchor != "" {
			members = append(members, anchor)
		}
		if len(members) < clusterMinMembers {
			unassigned = append(unassigned, buckets[cat.name]...)
			continue
		}
		if h := m.clusterFor(cat.name, context, members); h != nil {
			created = append(created, h)
		}
	}

	if h := m.semanticCluster(unassigned, anchor, context); h != nil {
		created = append(created, h)
	}
	return created
}

func (m *HyperedgeManager) clusterFor(category, context string, members []string) *graph.Hyperedge {
	title := category
	for _, cat := range clusterTaxonomy {
		if cat.name == category {
			title = cat.title
		}
	}
	if existing := m.covering(members...); existing != nil && existing.Type == category && existing.Context == context {
		return nil
	}
	h := &graph.Hyperedge{
		ID:       m.ids.NewID("he"),
		Members:  members,
		Weight:   clusterWeight,
		Salience: 1.0,
		Label:    contextLabel(title, context),
		Type:     category,
		Source:   graph.SourceIntelligentCluster,
		Context:  context,
	}
	m.add(h)
	return h
}

func (m *HyperedgeManager) semanticCluster(leftover []string, anchor, context string) *graph.Hyperedge {
	if len(leftover) < clusterMinMembers {
		return nil
	}
	word, n := m.dominantWord(leftover)
	if n < clusterMinMembers || n*2 < len(leftover) {
		return nil
	}
	var members []string
	for _, id := range leftover {
		node, _ := m.graph.Node(id)
		for _, w := range graph.SignificantWords(node.Label) {
			if w == word {
				members = append(members, id)
				break
			}
		}
	}
	if anchor != "" {
		members = append(members, anchor)
	}
	if m.covering(members...) != nil {
		return nil
	}
	h := &graph.Hyperedge{
		ID:       m.ids.NewID("he"),
		Members:  members,
		Weight:   clusterWeight,
		Salience: 1.0,
		Label:    contextLabel("Theme: "+word, context),
		Type:     ClusterSemantic,
		Source:   graph.SourceSemanticCluster,
		Context:  context,
	}
	m.add(h)
	return h
}

// DetectPatterns looks for co-occurring taxonomy clusters within one context
// and adds a higher-order hyperedge over their union. Each pattern is created
// at most once per context.
func (m *HyperedgeManager) DetectPatterns(context string) []*graph.Hyperedge {
	byType := make(map[string]*graph.Hyperedge)
	existing := make(map[string]bool)
	for _, h := range m.graph.Hyperedges {
		if h.Context != context {
			continue
		}
		switch h.Source {
		case graph.SourceIntelligentCluster:
			if _, ok := byType[h.Type]; !ok {
				byType[h.Type] = h
			}
		case graph.SourcePatternDetection:
			existing[h.Type] = true
		}
	}

	var created []*graph.Hyperedge
	for _, p := range contextPatterns {
		if existing[p.label] {
			continue
		}
		var members []string
		complete := true
		for _, req := range p.requires {
			h, ok := byType[req]
			if !ok {
				complete = false
				break
			}
			members = unionMembers(members, h.Members)
		}
		if !complete {
			continue
		}
		h := &graph.Hyperedge{
			ID:       m.ids.NewID("he"),
			Members:  members,
			Weight:   patternWeight,
			Salience: 1.0,
			Label:    contextLabel(p.label, context),
			Type:     p.label,
			Source:   graph.SourcePatternDetection,
			Context:  context,
		}
		m.add(h)
		created = append(created, h)
	}
	return created
}

func contextLabel(title, context string) string {
	if context == "" {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, context)
}
