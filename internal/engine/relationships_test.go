package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/lazypower/mnemo/internal/config"
	"github.com/lazypower/mnemo/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipCreatedThenStrengthened(t *testing.T) {
	g := conceptGraph(t, "A", "B")
	e, _ := newTestEngine(t, g, nil)

	out := e.AddExplicitRelationships([]RelationCandidate{{Source: "A", Target: "B", Type: "association", Confidence: 0.9}})
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].Source)
	assert.Equal(t, "B", out[0].Target)
	assert.Equal(t, ActionCreated, out[0].Action)
	s := g.FindSynapse("A", "B")
	require.NotNil(t, s)
	assert.InDelta(t, 0.27, s.Weight, 1e-9)
	assert.Equal(t, graph.SynapseAssociation, s.Type)
	assert.Equal(t, "explicit", s.Metadata["origin"])

	out = e.AddExplicitRelationships([]RelationCandidate{{Source: "A", Target: "B", Type: "association", Confidence: 0.8}})
	require.Len(t, out, 1)
	assert.Equal(t, ActionStrengthened, out[0].Action)
	assert.InDelta(t, 0.43, s.Weight, 1e-9)
	assert.Len(t, g.Synapses, 1, "at most one edge per pair")
}

func TestRelationshipStrengthenEitherDirection(t *testing.T) {
	g := conceptGraph(t, "A", "B")
	s := connect(g, "A", "B", 0.95)
	e, _ := newTestEngine(t, g, nil)

	out := e.AddExplicitRelationships([]RelationCandidate{{Source: "B", Target: "A", Confidence: 0.9}})
	require.Len(t, out, 1)
	assert.Equal(t, ActionStrengthened, out[0].Action)
	assert.Equal(t, 1.0, s.Weight, "capped at 1")
}

func TestRelationshipInferenceIsReadOnly(t *testing.T) {
	g := conceptGraph(t, "A", "B", "C")
	s := connect(g, "A", "B", 0.4)
	e, _ := newTestEngine(t, g, nil)
	require.NoError(t, e.SetPhase(PhaseInference))

	out := e.AddExplicitRelationships([]RelationCandidate{
		{Source: "A", Target: "B", Confidence: 0.95},
		{Source: "B", Target: "C", Confidence: 0.95},
	})
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, 0.4, s.Weight)
	assert.Len(t, g.Synapses, 1)
	assert.Zero(t, e.Telemetry().SessionRelationships)
}

func TestRelationshipConsolidateOnlyStrengthens(t *testing.T) {
	g := conceptGraph(t, "A", "B", "C")
	s := connect(g, "A", "B", 0.4)
	e, _ := newTestEngine(t, g, nil)
	require.NoError(t, e.SetPhase(PhaseConsolidate))

	out := e.AddExplicitRelationships([]RelationCandidate{
		{Source: "A", Target: "B", Confidence: 0.9},
		{Source: "A", Target: "C", Confidence: 0.9},
	})
	require.Len(t, out, 1)
	assert.Equal(t, ActionStrengthened, out[0].Action)
	assert.InDelta(t, 0.58, s.Weight, 1e-9)
	assert.Nil(t, g.FindSynapse("A", "C"))
}

func TestRelationshipMemoryExpansionDisabled(t *testing.T) {
	g := conceptGraph(t, "A", "B")
	e, _ := newTestEngine(t, g, func(c *config.EngineConfig) { c.EnableMemoryExpansion = false })

	out := e.AddExplicitRelationships([]RelationCandidate{{Source: "A", Target: "B", Confidence: 0.9}})
	assert.Empty(t, out)
	assert.Empty(t, g.Synapses)
}

func TestRelationshipDrops(t *testing.T) {
	g := conceptGraph(t, "A", "B", "C", "D", "E", "F")
	// chain A-B-C-D-E: A and E are four hops apart
	connect(g, "A", "B", 0.5)
	connect(g, "B", "C", 0.5)
	connect(g, "C", "D", 0.5)
	connect(g, "D", "E", 0.5)
	e, _ := newTestEngine(t, g, nil)

	out := e.AddExplicitRelationships([]RelationCandidate{
		{Source: "A", Target: "C", Confidence: 0.69},    // low confidence
		{Source: "A", Target: "E", Confidence: 0.9},     // too far apart
		{Source: "A", Target: "ghost", Confidence: 0.9}, // missing endpoint
		{Source: "A", Target: "A", Confidence: 0.9},     // self loop
		{Source: "", Target: "B", Confidence: 0.9},      // malformed
	})
	assert.Empty(t, out)
	assert.Len(t, g.Synapses, 4)
}

func TestRelationshipBootstrapException(t *testing.T) {
	g := conceptGraph(t, "A", "B", "C", "D", "lonely")
	connect(g, "A", "B", 0.5)
	connect(g, "B", "C", 0.5)
	connect(g, "C", "D", 0.5)
	e, _ := newTestEngine(t, g, nil)

	out := e.AddExplicitRelationships([]RelationCandidate{{Source: "D", Target: "lonely", Confidence: 0.8}})
	require.Len(t, out, 1)
	assert.Equal(t, ActionCreated, out[0].Action)
}

func TestRelationshipWithinThreeHops(t *testing.T) {
	g := conceptGraph(t, "A", "B", "C", "D")
	connect(g, "A", "B", 0.5)
	connect(g, "B", "C", 0.5)
	connect(g, "C", "D", 0.5)
	e, _ := newTestEngine(t, g, nil)

	out := e.AddExplicitRelationships([]RelationCandidate{{Source: "A", Target: "D", Confidence: 0.8}})
	require.Len(t, out, 1)
	assert.Equal(t, ActionCreated, out[0].Action)
}

func TestRelationshipPreservesType(t *testing.T) {
	g := conceptGraph(t, "A", "B")
	e, _ := newTestEngine(t, g, nil)

	e.AddExplicitRelationships([]RelationCandidate{{Source: "A", Target: "B", Type: "contradiction", Confidence: 0.9, Context: "review"}})
	s := g.FindSynapse("A", "B")
	require.NotNil(t, s)
	assert.Equal(t, graph.SynapseContradiction, s.Type)
	assert.Equal(t, "review", s.Metadata["context"])
}

func isolatedPairs(t *testing.T, n int) (*graph.Graph, []RelationCandidate) {
	t.Helper()
	var specs []nodeSpec
	var cands []RelationCandidate
	for i := 0; i < n; i++ {
		a, b := fmt.Sprintf("a%02d", i), fmt.Sprintf("b%02d", i)
		specs = append(specs, concept(a), concept(b))
		cands = append(cands, RelationCandidate{Source: a, Target: b, Confidence: 0.7 + float64(i%3)*0.1})
	}
	return buildGraph(t, specs...), cands
}

func TestRelationshipPerCallCap(t *testing.T) {
	g, cands := isolatedPairs(t, 6)
	e, _ := newTestEngine(t, g, func(c *config.EngineConfig) { c.MaxRelationshipsPerCall = 4 })

	out := e.AddExplicitRelationships(cands)
	assert.Len(t, out, 4)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Weight, out[i].Weight, "highest confidence first")
	}
	assert.Len(t, g.Synapses, 4)
}

func TestRelationshipSessionCapAndIdleReset(t *testing.T) {
	g, cands := isolatedPairs(t, 6)
	e, clock := newTestEngine(t, g, func(c *config.EngineConfig) {
		c.MaxRelationshipsPerCall = 10
		c.MaxRelationshipsPerSession = 3
	})

	assert.Len(t, e.AddExplicitRelationships(cands[:2]), 2)
	clock.Advance(30 * time.Minute)
	assert.Len(t, e.AddExplicitRelationships(cands[2:4]), 1, "session cap reached mid-batch")
	clock.Advance(30 * time.Minute)
	assert.Empty(t, e.AddExplicitRelationships(cands[4:]))

	clock.Advance(61 * time.Minute)
	assert.Len(t, e.AddExplicitRelationships(cands[4:]), 2, "idle session resets")
}

func TestRelationshipDeterministic(t *testing.T) {
	run := func() []RelationOutcome {
		g, cands := isolatedPairs(t, 8)
		e, _ := newTestEngine(t, g, func(c *config.EngineConfig) { c.MaxRelationshipsPerCall = 5 })
		return e.AddExplicitRelationships(cands)
	}
	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}

func TestRelationshipGateSeesNewSynapses(t *testing.T) {
	g := conceptGraph(t, "A", "B", "C", "D", "E")
	connect(g, "A", "B", 0.5)
	connect(g, "C", "D", 0.5)
	connect(g, "D", "E", 0.5)
	e, _ := newTestEngine(t, g, nil)

	out := e.AddExplicitRelationships([]RelationCandidate{{Source: "A", Target: "D", Confidence: 0.9}})
	require.Empty(t, out, "both connected, mutually unreachable")

	connect(g, "B", "C", 0.5)
	out = e.AddExplicitRelationships([]RelationCandidate{{Source: "A", Target: "D", Confidence: 0.9}})
	require.Len(t, out, 1, "memoized answer dropped on mutation")
	assert.Equal(t, ActionCreated, out[0].Action)
}
