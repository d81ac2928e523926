package engine

import (
	"github.com/lazypower/mnemo/internal/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. Each Metrics owns its own
// registry so several engines can coexist in one process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	queries        prometheus.Counter
	activated      prometheus.Histogram
	relationships  *prometheus.CounterVec
	hyperedges     *prometheus.CounterVec
	consolidations prometheus.Counter
	prunedSynapses prometheus.Counter
	nodes          prometheus.Gauge
	synapses       prometheus.Gauge
	hyperedgeCount prometheus.Gauge
	totalEnergy    prometheus.Gauge
}

// NewMetrics registers the engine collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		queries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "engine",
			Name:      "queries_total",
			Help:      "Queries run through the engine",
		}),
		activated: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mnemo",
			Subsystem: "engine",
			Name:      "activated_nodes",
			Help:      "Nodes activated per query",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250, 500},
		}),
		relationships: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "engine",
			Name:      "relationships_total",
			Help:      "Accepted relation candidates by action",
		}, []string{"action"}),
		hyperedges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "engine",
			Name:      "hyperedges_total",
			Help:      "Hyperedges created or merged by source",
		}, []string{"source"}),
		consolidations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "engine",
			Name:      "consolidations_total",
			Help:      "Consolidation passes run",
		}),
		prunedSynapses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mnemo",
			Subsystem: "engine",
			Name:      "pruned_synapses_total",
			Help:      "Synapses removed by consolidation",
		}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mnemo",
			Subsystem: "graph",
			Name:      "nodes",
			Help:      "Nodes in the graph, archived included",
		}),
		synapses: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mnemo",
			Subsystem: "graph",
			Name:      "synapses",
			Help:      "Synapses in the graph",
		}),
		hyperedgeCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mnemo",
			Subsystem: "graph",
			Name:      "hyperedges",
			Help:      "Hyperedges in the graph",
		}),
		totalEnergy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mnemo",
			Subsystem: "graph",
			Name:      "total_activation",
			Help:      "Sum of node activation after the last energy tick",
		}),
	}
}

// Registry exposes the collectors for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) query(activated int) {
	if m == nil {
		return
	}
	m.queries.Inc()
	m.activated.Observe(float64(activated))
}

func (m *Metrics) relationship(action string) {
	if m == nil {
		return
	}
	m.relationships.WithLabelValues(action).Inc()
}

func (m *Metrics) hyperedge(source graph.HyperedgeSource) {
	if m == nil {
		return
	}
	m.hyperedges.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) consolidation(pruned int) {
	if m == nil {
		return
	}
	m.consolidations.Inc()
	m.prunedSynapses.Add(float64(pruned))
}

func (m *Metrics) energy(total float64) {
	if m == nil {
		return
	}
	m.totalEnergy.Set(total)
}

func (m *Metrics) observeGraph(g *graph.Graph) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(len(g.Nodes)))
	m.synapses.Set(float64(len(g.Synapses)))
	m.hyperedgeCount.Set(float64(len(g.Hyperedges)))
}
