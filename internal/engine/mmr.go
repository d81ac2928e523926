package engine

import (
	"github.com/lazypower/mnemo/internal/graph"
	"go.uber.org/zap"
)

const (
	relevanceFloor    = 0.1
	sameTypeSimilar   = 0.2
	sharedWordSimilar = 0.5
)

// MMRSelection records why a candidate was picked.
type MMRSelection struct {
	ID         string  `json:"id"`
	Relevance  float64 `json:"relevance"`
	Energy     float64 `json:"energy"`
	Redundancy float64 `json:"redundancy"`
	Score      float64 `json:"score"`
}

// PruneWithMMR greedily selects up to maxResults candidates, each step taking
// the one maximizing lambda*(relevance*energy) - (1-lambda)*redundancy against
// what is already selected. Ties keep encounter order. Empty input is returned
// unchanged; maxResults <= 0 selects nothing.
func PruneWithMMR(g *graph.Graph, candidates []ActivatedNode, query string, maxResults int, lambda float64, log *zap.Logger) ([]ActivatedNode, []MMRSelection) {
	if len(candidates) == 0 {
		return candidates, []MMRSelection{}
	}
	if maxResults <= 0 {
		return []ActivatedNode{}, []MMRSelection{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	terms := graph.Tokens(query)
	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = queryRelevance(g, c.ID, terms)
	}

	used := make([]bool, len(candidates))
	var selected []ActivatedNode
	var selectedIDs []string
	selections := []MMRSelection{}

	for len(selected) < maxResults {
		best := -1
		var bestSel MMRSelection
		for i, c := range candidates {
			if used[i] {
				continue
			}
			red := redundancy(g, c.ID, selectedIDs)
			score := lambda*(relevance[i]*c.Energy) - (1-lambda)*red
			if best < 0 || score > bestSel.Score {
				best = i
				bestSel = MMRSelection{
					ID:         c.ID,
					Relevance:  relevance[i],
					Energy:     c.Energy,
					Redundancy: red,
					Score:      score,
				}
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		selected = append(selected, candidates[best])
		selectedIDs = append(selectedIDs, candidates[best].ID)
		selections = append(selections, bestSel)
		log.Debug("mmr selected",
			zap.String("id", bestSel.ID),
			zap.Float64("relevance", bestSel.Relevance),
			zap.Float64("energy", bestSel.Energy),
			zap.Float64("redundancy", bestSel.Redundancy),
			zap.Float64("score", bestSel.Score))
	}
	return selected, selections
}

// queryRelevance is the normalized query-term overlap of a node: label hits
// count twice, content hits once, floored at 0.1. With no query terms every
// node is fully relevant.
func queryRelevance(g *graph.Graph, id string, terms []string) float64 {
	if len(terms) == 0 {
		return 1.0
	}
	n, ok := g.Node(id)
	if !ok {
		return relevanceFloor
	}
	label := tokenSet(n.Label)
	content := tokenSet(n.Content)
	hits := 0.0
	for _, t := range terms {
		if label[t] {
			hits += 2
		}
		if content[t] {
			hits++
		}
	}
	r := hits / float64(2*len(terms))
	if r > 1 {
		r = 1
	}
	if r < relevanceFloor {
		r = relevanceFloor
	}
	return r
}

func tokenSet(s string) map[string]bool {
	toks := graph.Tokens(s)
	set := make(map[string]bool, len(toks))
	for _, t := range toks {
		set[t] = true
	}
	return set
}

// redundancy is the mean similarity of id to every already selected node.
func redundancy(g *graph.Graph, id string, selected []string) float64 {
	if len(selected) == 0 {
		return 0
	}
	sum := 0.0
	for _, other := range selected {
		sum += similarity(g, id, other)
	}
	return sum / float64(len(selected))
}

// similarity is 0.2 for a shared type plus 0.5 for a shared significant label
// word, capped at 1.
func similarity(g *graph.Graph, a, b string) float64 {
	na, okA := g.Node(a)
	nb, okB := g.Node(b)
	if !okA || !okB {
		return 0
	}
	s := 0.0
	if na.Type == nb.Type {
		s += sameTypeSimilar
	}
	if graph.ShareSignificantWord(na.Label, nb.Label) {
		s += sharedWordSimilar
	}
	return clamp01(s)
}
