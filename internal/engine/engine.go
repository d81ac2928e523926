package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/mnemo/internal/config"
	"github.com/lazypower/mnemo/internal/graph"
	"go.uber.org/zap"
)

var (
	ErrNilGraph      = errors.New("engine: nil or uninitialized graph")
	ErrInvalidConfig = errors.New("engine: invalid config")
)

// Engine orchestrates the query lifecycle over one graph. It is not safe for
// concurrent use; callers serialize queries against an instance.
type Engine struct {
	graph   *graph.Graph
	cfg     config.EngineConfig
	phase   Phase
	tracker *CoActivationTracker
	hyper   *HyperedgeManager
	session relationshipSession
	ids     graph.IDGenerator
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time

	queries int
	last    []ActivatedNode
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIDGenerator replaces the UUID-based id generator.
func WithIDGenerator(ids graph.IDGenerator) Option {
	return func(e *Engine) {
		if ids != nil {
			e.ids = ids
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithQueryCount resumes the query counter, so the every-N consolidation
// cadence carries across processes.
func WithQueryCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queries = n
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over g. Only programmer errors are reported: a nil
// graph, one not built with graph.New or graph.FromParts, or a config that
// fails validation.
func New(g *graph.Graph, cfg config.EngineConfig, opts ...Option) (*Engine, error) {
	if g == nil || g.Nodes == nil {
		return nil, ErrNilGraph
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	phase, err := ParsePhase(cfg.InitialPhase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	e := &Engine{
		graph:   g,
		cfg:     cfg,
		phase:   phase,
		tracker: NewCoActivationTracker(),
		ids:     graph.UUIDGenerator{},
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.hyper = &HyperedgeManager{
		graph:   g,
		ids:     e.ids,
		log:     e.log,
		now:     e.now,
		metrics: e.metrics,
	}
	e.metrics.observeGraph(g)
	return e, nil
}

// Graph returns the graph the engine mutates.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Config returns the engine configuration.
func (e *Engine) Config() config.EngineConfig { return e.cfg }

// Hyperedges returns the hyperedge manager.
func (e *Engine) Hyperedges() *HyperedgeManager { return e.hyper }

// Tracker returns the co-activation tracker.
func (e *Engine) Tracker() *CoActivationTracker { return e.tracker }

// Metrics returns the attached collectors, possibly nil.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Phase returns the current phase.
func (e *Engine) Phase() Phase { return e.phase }

// Queries returns how many queries have completed learning.
func (e *Engine) Queries() int { return e.queries }

// SetPhase switches phase. Call it between queries only.
func (e *Engine) SetPhase(p Phase) error {
	if _, ok := phaseTable[p]; !ok {
		return fmt.Errorf("set phase: unknown phase %q", p)
	}
	if p != e.phase {
		e.log.Info("phase changed", zap.String("from", string(e.phase)), zap.String("to", string(p)))
	}
	e.phase = p
	return nil
}

// Activate runs spreading activation from seeds with the engine settings.
func (e *Engine) Activate(seeds []string) []ActivatedNode {
	return Activate(e.graph, seeds, ActivationParams{
		Gamma:    e.cfg.Gamma,
		Theta:    e.cfg.Theta,
		HeatBias: e.cfg.HeatBias,
		MaxDepth: e.cfg.MaxActivationDepth,
		Disabled: !e.cfg.EnableSpreadingActivation,
	}, e.now())
}

// PruneWithMMR selects up to maxResults of activated. With pruning disabled
// the top maxResults are returned as ranked.
func (e *Engine) PruneWithMMR(activated []ActivatedNode, query string, maxResults int) ([]ActivatedNode, []MMRSelection) {
	if !e.cfg.EnablePruning {
		if maxResults <= 0 {
			return []ActivatedNode{}, []MMRSelection{}
		}
		if len(activated) > maxResults {
			activated = activated[:maxResults]
		}
		return activated, []MMRSelection{}
	}
	return PruneWithMMR(e.graph, activated, query, maxResults, e.cfg.MMRLambda, e.log)
}

// DetectContradictions reports contradiction pairs among activated.
func (e *Engine) DetectContradictions(activated []ActivatedNode) []Contradiction {
	return DetectContradictions(e.graph, activated)
}

// UpdateHebbianWeights applies one Hebbian step at the current phase
// plasticity. Returns the number of synapses updated.
func (e *Engine) UpdateHebbianWeights(activated []ActivatedNode) int {
	if !e.cfg.EnableHebbian {
		return 0
	}
	return updateHebbianWeights(e.graph, activated, e.phase.Params().Plasticity)
}

// ApplyEnergyDynamics runs one diffusion, decay and normalization tick.
func (e *Engine) ApplyEnergyDynamics() EnergyReport {
	r := applyEnergyDynamics(e.graph, e.phase.Params(), e.cfg.GlobalEnergyBudget)
	e.metrics.energy(r.TotalActivation)
	return r
}

// ConsolidationReport counts what one consolidation pass changed.
type ConsolidationReport struct {
	EmpiricalCreated    int `json:"empirical_created"`
	EmpiricalReinforced int `json:"empirical_reinforced"`
	CliquesCreated      int `json:"cliques_created"`
	CliqueEdgesPruned   int `json:"clique_edges_pruned"`
	Merged              int `json:"merged"`
	WeakEdgesPruned     int `json:"weak_edges_pruned"`
	Orthogonalized      int `json:"orthogonalized"`
}

// Consolidate runs the structural pass: empirical hyperedges, cliques and
// merging (when hyperedges are enabled), weak association pruning, and
// orthogonality when the phase calls for it.
func (e *Engine) Consolidate() ConsolidationReport {
	var r ConsolidationReport
	if e.cfg.EnableHyperedges {
		r.EmpiricalCreated, r.EmpiricalReinforced = e.hyper.ConsolidateEmpirical(e.tracker)
		r.CliquesCreated, r.CliqueEdgesPruned = e.hyper.ConsolidateCliques(e.cfg.PruneConsolidatedEdges)
		r.Merged = e.hyper.MergeOverlapping()
	}
	r.WeakEdgesPruned = e.graph.RemoveSynapses(func(s *graph.Synapse) bool {
		return s.Type.Decayable() && s.Weight < e.cfg.PruneThreshold
	})
	if e.phase.Params().Orthogonality {
		r.Orthogonalized = EnforceOrthogonality(e.graph)
	}

	e.metrics.consolidation(r.CliqueEdgesPruned + r.WeakEdgesPruned)
	e.metrics.observeGraph(e.graph)
	e.log.Info("consolidation complete",
		zap.Int("empirical_created", r.EmpiricalCreated),
		zap.Int("empirical_reinforced", r.EmpiricalReinforced),
		zap.Int("cliques_created", r.CliquesCreated),
		zap.Int("clique_edges_pruned", r.CliqueEdgesPruned),
		zap.Int("merged", r.Merged),
		zap.Int("weak_edges_pruned", r.WeakEdgesPruned),
		zap.Int("orthogonalized", r.Orthogonalized))
	return r
}

// AfterQuery feeds the co-activation tracker and, every
// ConsolidationInterval queries, consolidates. The report is nil when no
// consolidation ran.
func (e *Engine) AfterQuery(activated []ActivatedNode) *ConsolidationReport {
	if e.cfg.EnableHyperedges {
		e.tracker.Record(e.graph, activated)
	}
	e.queries++
	if !e.cfg.EnableConsolidation || e.queries%e.cfg.ConsolidationInterval != 0 {
		return nil
	}
	r := e.Consolidate()
	return &r
}

// QueryRequest is the input of one query.
type QueryRequest struct {
	Seeds      []string `json:"seeds"`
	Text       string   `json:"text"`
	MaxResults int      `json:"max_results"` // 0 uses the configured default
}

// QueryResult is the read side of one query.
type QueryResult struct {
	Activated      []ActivatedNode `json:"activated"`
	Selected       []ActivatedNode `json:"selected"`
	Selections     []MMRSelection  `json:"selections"`
	Contradictions []Contradiction `json:"contradictions"`
	Telemetry      Telemetry       `json:"telemetry"`
}

// Query runs activation, contradiction detection and candidate selection.
// The activated set is kept for Telemetry; learning happens in Learn once
// the caller has synthesized an answer.
func (e *Engine) Query(req QueryRequest) *QueryResult {
	limit := req.MaxResults
	if limit == 0 {
		limit = e.cfg.MaxResults
	}

	activated := e.Activate(req.Seeds)
	contradictions := e.DetectContradictions(activated)
	selected, selections := e.PruneWithMMR(activated, req.Text, limit)
	e.last = activated
	e.metrics.query(len(activated))

	if len(contradictions) > 0 {
		e.log.Info("contradictions active", zap.Int("count", len(contradictions)))
	}
	e.log.Debug("query",
		zap.Strings("seeds", req.Seeds),
		zap.Int("activated", len(activated)),
		zap.Int("selected", len(selected)))

	return &QueryResult{
		Activated:      activated,
		Selected:       selected,
		Selections:     selections,
		Contradictions: contradictions,
		Telemetry:      e.Telemetry(),
	}
}

// LearnReport summarizes the write side of one query.
type LearnReport struct {
	Relationships  []RelationOutcome    `json:"relationships"`
	HebbianUpdated int                  `json:"hebbian_updated"`
	Energy         EnergyReport         `json:"energy"`
	Consolidation  *ConsolidationReport `json:"consolidation,omitempty"`
}

// Learn completes a query: relation candidates, then the Hebbian step, then
// one energy tick, then AfterQuery.
func (e *Engine) Learn(activated []ActivatedNode, relations []RelationCandidate) LearnReport {
	var r LearnReport
	r.Relationships = e.AddExplicitRelationships(relations)
	r.HebbianUpdated = e.UpdateHebbianWeights(activated)
	r.Energy = e.ApplyEnergyDynamics()
	r.Consolidation = e.AfterQuery(activated)
	e.metrics.observeGraph(e.graph)
	return r
}

// LastActivated returns the activated set of the most recent query.
func (e *Engine) LastActivated() []ActivatedNode { return e.last }

// Telemetry returns a snapshot over the last activation.
func (e *Engine) Telemetry() Telemetry {
	t := computeTelemetry(e.graph, e.last, e.phase)
	t.Queries = e.queries
	t.SessionRelationships = e.session.count
	return t
}
