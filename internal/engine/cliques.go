package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/lazypower/mnemo/internal/graph"
	"go.uber.org/zap"
)

const (
	cliqueMinDensity  = 0.8
	cliqueMaxSize     = 6
	cliqueMinSize     = 3
	cliqueMaxFound    = 100
	cliqueKeepFrac    = 0.3
	cliqueMinKeptEdge = 2
)

// FindCliques greedily grows dense groups, visiting seed nodes by descending
// degree. A group grows by the remaining neighbor with the most links into it
// while density stays >= 0.8, up to six members. At most 100 groups are
// considered; only semantically coherent ones are returned.
func (m *HyperedgeManager) FindCliques() [][]string {
	nbrs := m.liveNeighborSets()

	ids := make([]string, 0, len(nbrs))
	for id := range nbrs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		di, dj := len(nbrs[ids[i]]), len(nbrs[ids[j]])
		if di != dj {
			return di > dj
		}
		return ids[i] < ids[j]
	})

	var cliques [][]string
	seen := make(map[string]bool)
	found := 0
	for _, v := range ids {
		if found >= cliqueMaxFound {
			break
		}
		if len(nbrs[v]) < cliqueMinSize-1 {
			continue
		}

		candidates := sortedKeys(nbrs[v])
		clique := []string{v}
		inClique := map[string]bool{v: true}
		for len(clique) < cliqueMaxSize {
			best, bestLinks := "", -1
			for _, c := range candidates {
				if inClique[c] {
					continue
				}
				links := 0
				for _, member := range clique {
					if nbrs[c][member] {
						links++
					}
				}
				if links > bestLinks {
					best, bestLinks = c, links
				}
			}
			if best == "" || density(nbrs, append(clique, best)) < cliqueMinDensity {
				break
			}
			clique = append(clique, best)
			inClique[best] = true
		}
		if len(clique) < cliqueMinSize {
			continue
		}

		key := memberKey(clique)
		if seen[key] {
			continue
		}
		seen[key] = true
		found++
		if !m.coherent(clique) {
			continue
		}
		cliques = append(cliques, clique)
	}
	return cliques
}

// ConsolidateCliques turns coherent cliques into hyperedges. A node joins at
// most one new hyperedge per pass. Cliques already covered by a hyperedge are
// skipped. With prune set, each clique's internal association edges are cut
// back to the strongest 30% (at least two kept).
func (m *HyperedgeManager) ConsolidateCliques(prune bool) (created, pruned int) {
	consolidated := make(map[string]bool)
	for _, clique := range m.FindCliques() {
		overlaps := false
		for _, id := range clique {
			if consolidated[id] {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		for _, id := range clique {
			consolidated[id] = true
		}
		if m.covering(clique...) != nil {
			continue
		}

		m.add(&graph.Hyperedge{
			ID:       m.ids.NewID("he"),
			Members:  append([]string(nil), clique...),
			Weight:   m.internalMeanWeight(clique),
			Salience: 1.0,
			Label:    m.memberLabel("Clique", clique),
			Type:     "clique",
			Source:   graph.SourceClique,
		})
		created++
		if prune {
			pruned += m.pruneInternalEdges(clique)
		}
	}
	return created, pruned
}

// coherent accepts a group whose members all share a type, or where at least
// half share a significant label word.
func (m *HyperedgeManager) coherent(members []string) bool {
	first, ok := m.graph.Node(members[0])
	if !ok {
		return false
	}
	sameType := true
	for _, id := range members[1:] {
		n, ok := m.graph.Node(id)
		if !ok {
			return false
		}
		if n.Type != first.Type {
			sameType = false
		}
	}
	if sameType {
		return true
	}
	_, n := m.dominantWord(members)
	return n*2 >= len(members)
}

func (m *HyperedgeManager) internalMeanWeight(members []string) float64 {
	internal := m.internalSynapses(members)
	if len(internal) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range internal {
		sum += s.Weight
	}
	return sum / float64(len(internal))
}

func (m *HyperedgeManager) internalSynapses(members []string) []*graph.Synapse {
	set := make(map[string]bool, len(members))
	for _, id := range members {
		set[id] = true
	}
	var out []*graph.Synapse
	for _, s := range m.graph.Synapses {
		if s.Source != s.Target && set[s.Source] && set[s.Target] {
			out = append(out, s)
		}
	}
	return out
}

// pruneInternalEdges keeps the strongest 30% (min 2) of the association
// synapses inside members. Semi-permanent types are never cut.
func (m *HyperedgeManager) pruneInternalEdges(members []string) int {
	var assoc []*graph.Synapse
	for _, s := range m.internalSynapses(members) {
		if s.Type.Decayable() {
			assoc = append(assoc, s)
		}
	}
	keep := int(math.Ceil(cliqueKeepFrac * float64(len(assoc))))
	if keep < cliqueMinKeptEdge {
		keep = cliqueMinKeptEdge
	}
	if len(assoc) <= keep {
		return 0
	}
	sort.SliceStable(assoc, func(i, j int) bool { return assoc[i].Weight > assoc[j].Weight })
	drop := make(map[*graph.Synapse]bool, len(assoc)-keep)
	for _, s := range assoc[keep:] {
		drop[s] = true
	}
	n := m.graph.RemoveSynapses(func(s *graph.Synapse) bool { return drop[s] })
	m.log.Debug("clique edges pruned", zap.Strings("members", members), zap.Int("removed", n))
	return n
}

// liveNeighborSets maps each live node to its distinct live neighbors.
func (m *HyperedgeManager) liveNeighborSets() map[string]map[string]bool {
	adj := m.graph.Adjacency().Get()
	out := make(map[string]map[string]bool)
	for id, list := range adj {
		if _, ok := m.graph.Live(id); !ok {
			continue
		}
		set := make(map[string]bool)
		for _, nb := range list {
			if nb.Target == id {
				continue
			}
			if _, ok := m.graph.Live(nb.Target); ok {
				set[nb.Target] = true
			}
		}
		if len(set) > 0 {
			out[id] = set
		}
	}
	return out
}

func density(nbrs map[string]map[string]bool, members []string) float64 {
	k := len(members)
	if k < 2 {
		return 1
	}
	edges := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if nbrs[members[i]][members[j]] {
				edges++
			}
		}
	}
	return float64(edges) / float64(k*(k-1)/2)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func memberKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
