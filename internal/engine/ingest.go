package engine

import (
	"strings"

	"github.com/lazypower/mnemo/internal/graph"
	"go.uber.org/zap"
)

const (
	minNodeConfidence = 0.5
	newNodeSalience   = 0.5
	reuseSalienceGain = 0.1
)

// IngestRequest is a batch of extracted node records. Anchor is the id of
// the node the batch is about; Context names the batch for clustering.
type IngestRequest struct {
	Nodes   []NodeCandidate `json:"nodes"`
	Anchor  string          `json:"anchor,omitempty"`
	Context string          `json:"context,omitempty"`
}

// IngestResult reports what Ingest did with a batch.
type IngestResult struct {
	Created  []string           `json:"created"`
	Reused   []string           `json:"reused"`
	Dropped  int                `json:"dropped"`
	Clusters []*graph.Hyperedge `json:"clusters"`
	Patterns []*graph.Hyperedge `json:"patterns"`
}

// Ingest adds extracted node records. Records below 0.5 confidence or
// without a label are dropped. A record matching a live node by label and
// type reuses it and bumps its salience. With hyperedges enabled the batch
// is clustered around the anchor and patterns are detected for the context.
func (e *Engine) Ingest(req IngestRequest) IngestResult {
	res := IngestResult{Created: []string{}, Reused: []string{}}
	now := e.now()

	existing := make(map[string]string)
	for _, id := range e.graph.SortedNodeIDs() {
		n := e.graph.Nodes[id]
		if n.Archived {
			continue
		}
		k := nodeKey(n.Label, n.Type)
		if _, ok := existing[k]; !ok {
			existing[k] = id
		}
	}

	var batch []string
	for _, c := range req.Nodes {
		vc, err := validateNodeCandidate(c)
		if err != nil {
			e.log.Debug("node dropped", zap.Error(err))
			res.Dropped++
			continue
		}
		if vc.Confidence < minNodeConfidence {
			e.log.Debug("node dropped",
				zap.String("label", vc.Label),
				zap.String("reason", "low confidence"),
				zap.Float64("confidence", vc.Confidence))
			res.Dropped++
			continue
		}

		typ := graph.ParseNodeType(vc.Type)
		k := nodeKey(vc.Label, typ)
		if id, ok := existing[k]; ok {
			n := e.graph.Nodes[id]
			n.Salience = clamp01(n.Salience + reuseSalienceGain)
			n.UpdatedAt = now
			if n.Content == "" {
				n.Content = vc.Content
			}
			res.Reused = append(res.Reused, id)
			batch = append(batch, id)
			continue
		}

		n := &graph.Node{
			ID:        e.ids.NewID("node"),
			Type:      typ,
			Label:     vc.Label,
			Content:   vc.Content,
			Salience:  newNodeSalience,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.graph.AddNode(n); err != nil {
			e.log.Warn("node not added", zap.String("label", vc.Label), zap.Error(err))
			res.Dropped++
			continue
		}
		existing[k] = n.ID
		res.Created = append(res.Created, n.ID)
		batch = append(batch, n.ID)
	}

	if e.cfg.EnableHyperedges && len(batch) > 0 {
		res.Clusters = e.hyper.ClusterBatch(batch, req.Anchor, req.Context)
		res.Patterns = e.hyper.DetectPatterns(req.Context)
	}
	e.metrics.observeGraph(e.graph)
	e.log.Info("ingested",
		zap.String("context", req.Context),
		zap.Int("created", len(res.Created)),
		zap.Int("reused", len(res.Reused)),
		zap.Int("dropped", res.Dropped),
		zap.Int("clusters", len(res.Clusters)),
		zap.Int("patterns", len(res.Patterns)))
	return res
}

func nodeKey(label string, t graph.NodeType) string {
	return strings.ToLower(label) + "\x00" + string(t)
}
