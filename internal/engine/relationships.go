package engine

import (
	"sort"
	"strconv"
	"time"

	"github.com/lazypower/mnemo/internal/graph"
	"go.uber.org/zap"
)

// Neurogenesis constants.
const (
	minRelationConfidence = 0.7
	newSynapseWeightScale = 0.3
	strengthenScale       = 0.2
)

// Outcome actions reported by AddExplicitRelationships.
const (
	ActionCreated      = "created"
	ActionStrengthened = "strengthened"
)

// RelationOutcome records one accepted relation candidate.
type RelationOutcome struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Action string  `json:"action"`
	Weight float64 `json:"weight"`
}

// relationshipSession is the rolling per-session neurogenesis budget.
type relationshipSession struct {
	count        int
	lastActivity time.Time
}

// AddExplicitRelationships is the only path by which new synapses appear.
// Candidates are processed in descending confidence order (stable); each is
// either dropped, strengthens an existing edge, or creates a new one. Once a
// per-call or per-session cap is reached the rest are dropped silently.
// In INFERENCE nothing is mutated and the result is empty.
func (e *Engine) AddExplicitRelationships(candidates []RelationCandidate) []RelationOutcome {
	out := []RelationOutcome{}
	if e.phase == PhaseInference {
		return out
	}
	allowCreate := e.phase.Params().Neurogenesis && e.cfg.EnableMemoryExpansion

	now := e.now()
	if !e.session.lastActivity.IsZero() && now.Sub(e.session.lastActivity) > e.cfg.SessionIdleTimeout {
		e.log.Debug("relationship session reset after idle", zap.Int("previous_count", e.session.count))
		e.session.count = 0
	}
	e.session.lastActivity = now

	sorted := make([]RelationCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	traversal := e.graph.Traversal()
	perCall := 0
	for _, c := range sorted {
		if perCall >= e.cfg.MaxRelationshipsPerCall || e.session.count >= e.cfg.MaxRelationshipsPerSession {
			e.log.Debug("relationship cap reached",
				zap.Int("per_call", perCall),
				zap.Int("session", e.session.count))
			break
		}

		vc, err := validateRelationCandidate(c)
		if err != nil {
			e.log.Debug("relationship dropped", zap.Error(err))
			continue
		}
		if vc.Confidence < minRelationConfidence {
			e.log.Debug("relationship dropped",
				zap.String("source", vc.Source),
				zap.String("target", vc.Target),
				zap.String("reason", "low confidence"),
				zap.Float64("confidence", vc.Confidence))
			continue
		}
		if !traversal.AreSemanticallyClose(vc.Source, vc.Target, graph.DefaultMaxHops) {
			e.log.Debug("relationship dropped",
				zap.String("source", vc.Source),
				zap.String("target", vc.Target),
				zap.String("reason", "not semantically close"))
			continue
		}

		if s := e.graph.FindSynapse(vc.Source, vc.Target); s != nil {
			s.Weight = clamp(s.Weight+strengthenScale*vc.Confidence, minLearnedWeight, maxLearnedWeight)
			out = append(out, RelationOutcome{Source: vc.Source, Target: vc.Target, Action: ActionStrengthened, Weight: s.Weight})
			e.metrics.relationship(ActionStrengthened)
			perCall++
			e.session.count++
			continue
		}

		if !allowCreate {
			continue
		}
		if _, ok := e.graph.Live(vc.Source); !ok {
			continue
		}
		if _, ok := e.graph.Live(vc.Target); !ok {
			continue
		}

		s := &graph.Synapse{
			Source: vc.Source,
			Target: vc.Target,
			Weight: newSynapseWeightScale * vc.Confidence,
			Type:   graph.SynapseType(vc.Type),
			Metadata: map[string]string{
				"confidence": strconv.FormatFloat(vc.Confidence, 'f', 3, 64),
				"context":    vc.Context,
				"origin":     "explicit",
			},
			CreatedAt: now,
		}
		e.graph.AddSynapse(s)
		e.log.Debug("synapse created",
			zap.String("source", s.Source),
			zap.String("target", s.Target),
			zap.String("type", string(s.Type)),
			zap.Float64("weight", s.Weight))
		out = append(out, RelationOutcome{Source: vc.Source, Target: vc.Target, Action: ActionCreated, Weight: s.Weight})
		e.metrics.relationship(ActionCreated)
		perCall++
		e.session.count++
	}
	return out
}
