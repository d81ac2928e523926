package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/lazypower/mnemo/internal/graph"
	"go.uber.org/zap"
)

const (
	empiricalMinCount      = 5
	empiricalSalienceBoost = 0.1
	mergeJaccard           = 0.7
)

// HyperedgeManager owns every structural consolidation of the graph:
// empirical (co-activation) hyperedges, clique consolidation, merging,
// batch clustering and cross-cluster pattern detection.
type HyperedgeManager struct {
	graph   *graph.Graph
	ids     graph.IDGenerator
	log     *zap.Logger
	now     func() time.Time
	metrics *Metrics
}

func (m *HyperedgeManager) add(h *graph.Hyperedge) {
	h.CreatedAt = m.now()
	m.graph.AddHyperedge(h)
	m.metrics.hyperedge(h.Source)
	m.log.Debug("hyperedge created",
		zap.String("id", h.ID),
		zap.String("label", h.Label),
		zap.String("source", string(h.Source)),
		zap.Strings("members", h.Members))
}

// ConsolidateEmpirical turns frequently co-active triples into hyperedges.
// A triple already covered by a hyperedge reinforces it instead. All counts
// decay afterwards.
func (m *HyperedgeManager) ConsolidateEmpirical(t *CoActivationTracker) (created, reinforced int) {
	for _, tr := range t.Triples(empiricalMinCount) {
		a, b, c := tr.Members[0], tr.Members[1], tr.Members[2]
		if h := m.covering(a, b, c); h != nil {
			h.Salience = clamp01(h.Salience + empiricalSalienceBoost)
			reinforced++
			continue
		}
		m.add(&graph.Hyperedge{
			ID:       m.ids.NewID("he"),
			Members:  []string{a, b, c},
			Weight:   1.0,
			Salience: 1.0,
			Label:    m.memberLabel("Co-activation", []string{a, b, c}),
			Type:     "co-activation",
			Source:   graph.SourceCoActivation,
		})
		created++
	}
	t.Decay()
	return created, reinforced
}

// covering returns the first hyperedge containing every id.
func (m *HyperedgeManager) covering(ids ...string) *graph.Hyperedge {
	for _, h := range m.graph.Hyperedges {
		if h.Covers(ids...) {
			return h
		}
	}
	return nil
}

// MergeOverlapping folds together hyperedges whose member sets have Jaccard
// overlap >= 0.7: members are unioned, weights averaged, the higher salience kept.
// Returns the number of merges.
func (m *HyperedgeManager) MergeOverlapping() int {
	merged := 0
	for {
		i, j := m.findOverlap()
		if i < 0 {
			return merged
		}
		keep, absorb := m.graph.Hyperedges[i], m.graph.Hyperedges[j]
		keep.Members = unionMembers(keep.Members, absorb.Members)
		keep.Weight = (keep.Weight + absorb.Weight) / 2
		if absorb.Salience > keep.Salience {
			keep.Salience = absorb.Salience
		}
		keep.Source = graph.SourceMerge
		m.graph.AbsorbHyperedge(absorb.ID)
		m.metrics.hyperedge(graph.SourceMerge)
		m.log.Debug("hyperedges merged", zap.String("kept", keep.ID), zap.String("absorbed", absorb.ID))
		merged++
	}
}

func (m *HyperedgeManager) findOverlap() (int, int) {
	hs := m.graph.Hyperedges
	for i := 0; i < len(hs); i++ {
		for j := i + 1; j < len(hs); j++ {
			if Jaccard(hs[i].Members, hs[j].Members) >= mergeJaccard {
				return i, j
			}
		}
	}
	return -1, -1
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the distinct ids of a and b.
func Jaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	inter := 0
	union := len(set)
	counted := make(map[string]bool, len(b))
	for _, id := range b {
		if counted[id] {
			continue
		}
		counted[id] = true
		if set[id] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// unionMembers appends the ids of b missing from a, preserving order.
func unionMembers(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// memberLabel names a group by its most common significant label word, or by
// the prefix alone when nothing is shared.
func (m *HyperedgeManager) memberLabel(prefix string, members []string) string {
	if w, n := m.dominantWord(members); n >= 2 {
		return fmt.Sprintf("%s: %s", prefix, w)
	}
	return prefix
}

// dominantWord returns the significant label word shared by the most members
// and how many members carry it. Ties go to the lexically smaller word.
func (m *HyperedgeManager) dominantWord(members []string) (string, int) {
	counts := make(map[string]int)
	for _, id := range members {
		n, ok := m.graph.Node(id)
		if !ok {
			continue
		}
		seen := make(map[string]bool)
		for _, w := range graph.SignificantWords(n.Label) {
			if !seen[w] {
				seen[w] = true
				counts[w]++
			}
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Strings(words)
	best, bestN := "", 0
	for _, w := range words {
		if counts[w] > bestN {
			best, bestN = w, counts[w]
		}
	}
	return best, bestN
}
