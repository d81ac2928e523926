package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/lazypower/mnemo/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testManager(g *graph.Graph) *HyperedgeManager {
	return &HyperedgeManager{
		graph: g,
		ids:   &graph.SequentialIDs{},
		log:   zap.NewNop(),
		now:   func() time.Time { return epoch },
	}
}

func hot(g *graph.Graph, ids ...string) []ActivatedNode {
	out := make([]ActivatedNode, len(ids))
	for i, id := range ids {
		g.Nodes[id].Activation = 0.9
		out[i] = ActivatedNode{ID: id, Energy: 0.9}
	}
	return out
}

func TestTrackerRecordsTriples(t *testing.T) {
	g := conceptGraph(t, "a", "b", "c", "d", "e", "f", "cold")
	tr := NewCoActivationTracker()

	activated := hot(g, "a", "b", "c", "d", "e", "f")
	g.Nodes["f"].Activation = 0.5
	activated = append(activated, ActivatedNode{ID: "cold"})
	g.Nodes["cold"].Activation = 0.4

	tr.Record(g, activated)
	assert.Equal(t, 10, tr.Len(), "top five hot nodes give C(5,3) triples")
	assert.Equal(t, 1.0, tr.Count("c", "a", "b"))
	assert.Zero(t, tr.Count("a", "b", "f"), "f is sixth by activation")
	assert.Zero(t, tr.Count("a", "b", "cold"))
}

func TestTrackerDecay(t *testing.T) {
	g := conceptGraph(t, "a", "b", "c")
	tr := NewCoActivationTracker()
	tr.Record(g, hot(g, "a", "b", "c"))
	tr.Record(g, hot(g, "a", "b", "c"))

	tr.Decay()
	assert.InDelta(t, 1.8, tr.Count("a", "b", "c"), 1e-9)
	tr.Decay()
	assert.InDelta(t, 1.62, tr.Count("a", "b", "c"), 1e-9)
	for i := 0; i < 5; i++ {
		tr.Decay()
	}
	assert.Zero(t, tr.Len(), "counts under 1 are forgotten")
}

func TestEmpiricalConsolidation(t *testing.T) {
	g := conceptGraph(t, "a", "b", "c")
	m := testManager(g)
	tr := NewCoActivationTracker()

	for i := 0; i < 4; i++ {
		tr.Record(g, hot(g, "a", "b", "c"))
	}
	created, _ := m.ConsolidateEmpirical(tr)
	assert.Zero(t, created, "four co-activations are not enough")

	tr = NewCoActivationTracker()
	for i := 0; i < 5; i++ {
		tr.Record(g, hot(g, "a", "b", "c"))
	}
	created, reinforced := m.ConsolidateEmpirical(tr)
	assert.Equal(t, 1, created)
	assert.Zero(t, reinforced)
	require.Len(t, g.Hyperedges, 1)
	h := g.Hyperedges[0]
	assert.Equal(t, graph.SourceCoActivation, h.Source)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, h.Members)
	assert.Equal(t, 1.0, h.Weight)
	assert.Equal(t, epoch, h.CreatedAt)
	assert.InDelta(t, 4.5, tr.Count("a", "b", "c"), 1e-9)

	h.Salience = 0.5
	tr.Record(g, hot(g, "a", "b", "c"))
	created, reinforced = m.ConsolidateEmpirical(tr)
	assert.Zero(t, created)
	assert.Equal(t, 1, reinforced)
	assert.InDelta(t, 0.6, h.Salience, 1e-9)
	assert.Len(t, g.Hyperedges, 1)
}

func denseCluster(t *testing.T) *graph.Graph {
	t.Helper()
	g := buildGraph(t,
		nodeSpec{id: "a", typ: graph.NodeConcept, label: "database indexing"},
		nodeSpec{id: "b", typ: graph.NodeConcept, label: "database sharding"},
		nodeSpec{id: "c", typ: graph.NodeConcept, label: "database replication"},
		nodeSpec{id: "d", typ: graph.NodeConcept, label: "database backups"},
		nodeSpec{id: "e", typ: graph.NodeEntity, label: "Alice"},
	)
	weights := []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4}
	pairs := [][2]string{{"a", "b"}, {"a", "c"}, {"a", "d"}, {"b", "c"}, {"b", "d"}, {"c", "d"}}
	for i, p := range pairs {
		connect(g, p[0], p[1], weights[i])
	}
	connect(g, "a", "e", 0.5)
	return g
}

func TestFindCliques(t *testing.T) {
	g := denseCluster(t)
	cliques := testManager(g).FindCliques()
	require.Len(t, cliques, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, cliques[0])
}

func TestFindCliquesRejectsIncoherent(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{id: "a", typ: graph.NodeConcept, label: "kafka"},
		nodeSpec{id: "b", typ: graph.NodeEntity, label: "Bob"},
		nodeSpec{id: "c", typ: graph.NodeEvent, label: "launch"},
	)
	connect(g, "a", "b", 0.5)
	connect(g, "b", "c", 0.5)
	connect(g, "a", "c", 0.5)
	assert.Empty(t, testManager(g).FindCliques())
}

func TestFindCliquesCoherentBySharedWord(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{id: "a", typ: graph.NodeConcept, label: "payment retries"},
		nodeSpec{id: "b", typ: graph.NodeEvent, label: "payment outage"},
		nodeSpec{id: "c", typ: graph.NodeEntity, label: "Stripe"},
	)
	connect(g, "a", "b", 0.5)
	connect(g, "b", "c", 0.5)
	connect(g, "a", "c", 0.5)
	assert.Len(t, testManager(g).FindCliques(), 1)
}

func TestFindCliquesCapsSize(t *testing.T) {
	ids := []string{"n1", "n2", "n3", "n4", "n5", "n6", "n7", "n8"}
	g := conceptGraph(t, ids...)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			connect(g, ids[i], ids[j], 0.5)
		}
	}
	for _, c := range testManager(g).FindCliques() {
		assert.LessOrEqual(t, len(c), cliqueMaxSize)
		assert.GreaterOrEqual(t, len(c), cliqueMinSize)
	}
}

func completeGraph(t *testing.T, n int) *graph.Graph {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i+1)
	}
	g := conceptGraph(t, ids...)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			connect(g, ids[i], ids[j], 0.5)
		}
	}
	return g
}

func TestConsolidateCliquesDisjointWithinPass(t *testing.T) {
	g := completeGraph(t, 8)
	m := testManager(g)
	require.Greater(t, len(m.FindCliques()), 1, "K8 yields overlapping cliques")

	created, _ := m.ConsolidateCliques(false)
	require.Equal(t, len(g.Hyperedges), created)
	assert.Equal(t, 1, created)

	owner := make(map[string]string)
	for _, h := range g.Hyperedges {
		for _, id := range h.Members {
			prev, dup := owner[id]
			assert.False(t, dup, "%s is in both %s and %s", id, prev, h.ID)
			owner[id] = h.ID
		}
	}
}

func TestFindCliquesStopsAtHundred(t *testing.T) {
	const triangles = 120
	ids := make([]string, 0, triangles*3)
	for i := 0; i < triangles; i++ {
		ids = append(ids, fmt.Sprintf("t%03d-a", i), fmt.Sprintf("t%03d-b", i), fmt.Sprintf("t%03d-c", i))
	}
	g := conceptGraph(t, ids...)
	for i := 0; i < len(ids); i += 3 {
		connect(g, ids[i], ids[i+1], 0.5)
		connect(g, ids[i+1], ids[i+2], 0.5)
		connect(g, ids[i], ids[i+2], 0.5)
	}

	cliques := testManager(g).FindCliques()
	assert.Len(t, cliques, cliqueMaxFound)
	for _, c := range cliques {
		assert.Len(t, c, 3)
	}
}

func TestConsolidateCliques(t *testing.T) {
	g := denseCluster(t)
	m := testManager(g)

	created, pruned := m.ConsolidateCliques(false)
	assert.Equal(t, 1, created)
	assert.Zero(t, pruned)
	require.Len(t, g.Hyperedges, 1)
	h := g.Hyperedges[0]
	assert.Equal(t, graph.SourceClique, h.Source)
	assert.Equal(t, "Clique: database", h.Label)
	assert.InDelta(t, 0.65, h.Weight, 1e-9)

	created, _ = m.ConsolidateCliques(false)
	assert.Zero(t, created, "an already covered clique is skipped")
}

func TestConsolidateCliquesPrunesInternalEdges(t *testing.T) {
	g := denseCluster(t)
	g.AddSynapse(&graph.Synapse{Source: "c", Target: "d", Weight: 0.1, Type: graph.SynapseCausal})

	created, pruned := testManager(g).ConsolidateCliques(true)
	require.Equal(t, 1, created)
	assert.Equal(t, 4, pruned, "six associations, the strongest two kept")
	assert.NotNil(t, g.FindSynapse("a", "b"))
	assert.NotNil(t, g.FindSynapse("a", "c"))
	assert.NotNil(t, g.FindSynapse("a", "e"), "edges leaving the clique are untouched")

	var causal int
	for _, s := range g.Synapses {
		if s.Type == graph.SynapseCausal {
			causal++
		}
	}
	assert.Equal(t, 1, causal, "semi-permanent types survive")
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard([]string{"a", "b"}, []string{"b", "a"}), 1e-9)
	assert.InDelta(t, 0.8, Jaccard([]string{"a", "b", "c", "d"}, []string{"a", "b", "c", "d", "e"}), 1e-9)
	assert.Zero(t, Jaccard([]string{"a"}, []string{"b"}))
	assert.Zero(t, Jaccard(nil, nil))
}

func TestMergeOverlapping(t *testing.T) {
	g := conceptGraph(t, "a", "b", "c", "d", "e", "x", "y", "z")
	g.AddHyperedge(&graph.Hyperedge{ID: "h1", Members: []string{"a", "b", "c", "d"}, Weight: 1, Salience: 0.4})
	g.AddHyperedge(&graph.Hyperedge{ID: "h2", Members: []string{"a", "b", "c", "d", "e"}, Weight: 0.5, Salience: 0.9})
	g.AddHyperedge(&graph.Hyperedge{ID: "h3", Members: []string{"x", "y", "z"}, Weight: 1, Salience: 1})

	merged := testManager(g).MergeOverlapping()
	assert.Equal(t, 1, merged)
	require.Len(t, g.Hyperedges, 2)
	h, ok := g.Hyperedge("h1")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, h.Members)
	assert.InDelta(t, 0.75, h.Weight, 1e-9)
	assert.Equal(t, 0.9, h.Salience)
	assert.Equal(t, graph.SourceMerge, h.Source)
	_, ok = g.Hyperedge("h2")
	assert.False(t, ok)
}

func projectBatch(t *testing.T) *graph.Graph {
	t.Helper()
	return buildGraph(t,
		nodeSpec{id: "proj", typ: graph.NodeProject, label: "Atlas"},
		nodeSpec{id: "alice", typ: graph.NodeEntity, label: "Alice"},
		nodeSpec{id: "bob", typ: graph.NodeEntity, label: "Bob"},
		nodeSpec{id: "graphql", typ: graph.NodeConcept, label: "GraphQL"},
		nodeSpec{id: "grpc", typ: graph.NodeConcept, label: "gRPC"},
		nodeSpec{id: "ship", typ: graph.NodeGoal, label: "Ship beta"},
		nodeSpec{id: "kickoff", typ: graph.NodeEvent, label: "Kickoff"},
		nodeSpec{id: "notes1", typ: graph.NodeFact, label: "release checklist"},
		nodeSpec{id: "notes2", typ: graph.NodeDocument, label: "release notes"},
		nodeSpec{id: "misc", typ: graph.NodeTool, label: "linter"},
	)
}

func TestClusterBatch(t *testing.T) {
	g := projectBatch(t)
	m := testManager(g)

	clusters := m.ClusterBatch([]string{"alice", "bob", "graphql", "grpc", "ship", "kickoff", "notes1", "notes2", "misc"}, "proj", "atlas")
	byType := make(map[string]*graph.Hyperedge)
	for _, h := range clusters {
		byType[h.Type] = h
		assert.Equal(t, "atlas", h.Context)
	}
	require.Len(t, clusters, 4)

	assert.ElementsMatch(t, []string{"alice", "bob"}, byType[ClusterActors].Members)
	assert.ElementsMatch(t, []string{"graphql", "grpc"}, byType[ClusterKnowledge].Members)
	assert.ElementsMatch(t, []string{"ship", "proj"}, byType[ClusterObjectives].Members)
	assert.Equal(t, graph.SourceIntelligentCluster, byType[ClusterActors].Source)
	assert.Equal(t, "Actors (atlas)", byType[ClusterActors].Label)
	assert.Equal(t, clusterWeight, byType[ClusterActors].Weight)

	sem := byType[ClusterSemantic]
	require.NotNil(t, sem)
	assert.Equal(t, graph.SourceSemanticCluster, sem.Source)
	assert.ElementsMatch(t, []string{"notes1", "notes2", "proj"}, sem.Members)
	assert.NotContains(t, byType, ClusterTimeline, "a single event is below the minimum")
}

func TestClusterBatchWithoutAnchor(t *testing.T) {
	g := projectBatch(t)
	clusters := testManager(g).ClusterBatch([]string{"ship", "alice"}, "", "")
	assert.Empty(t, clusters)
}

func TestDetectPatterns(t *testing.T) {
	g := projectBatch(t)
	m := testManager(g)
	m.ClusterBatch([]string{"alice", "bob", "graphql", "grpc", "ship"}, "proj", "atlas")

	patterns := m.DetectPatterns("atlas")
	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, "Project Context", p.Type)
	assert.Equal(t, graph.SourcePatternDetection, p.Source)
	assert.ElementsMatch(t, []string{"alice", "bob", "graphql", "grpc", "ship", "proj"}, p.Members)

	assert.Empty(t, m.DetectPatterns("atlas"), "created once per context")
	assert.Empty(t, m.DetectPatterns("other"))
}

func TestDetectDecisionContext(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{id: "alice", typ: graph.NodeEntity, label: "Alice"},
		nodeSpec{id: "bob", typ: graph.NodeEntity, label: "Bob"},
		nodeSpec{id: "review", typ: graph.NodeEvent, label: "Design review"},
		nodeSpec{id: "vote", typ: graph.NodeEvent, label: "Vote"},
		nodeSpec{id: "budget", typ: graph.NodeConstraint, label: "Budget cap"},
		nodeSpec{id: "pg", typ: graph.NodePreference, label: "Prefers Postgres"},
	)
	m := testManager(g)
	m.ClusterBatch([]string{"alice", "bob", "review", "vote", "budget", "pg"}, "", "q3")

	patterns := m.DetectPatterns("q3")
	require.Len(t, patterns, 1)
	assert.Equal(t, "Decision Context", patterns[0].Type)
	assert.Len(t, patterns[0].Members, 6)
}
