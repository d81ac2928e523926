package engine

import (
	"fmt"
	"strings"
)

// Phase selects which mutations are permitted and how fast things decay.
// It is changed by the caller between queries, never mid-query.
type Phase string

const (
	PhaseExplore     Phase = "explore"
	PhaseInference   Phase = "inference"
	PhaseConsolidate Phase = "consolidate"
)

// PhaseParams is the preset attached to a phase.
type PhaseParams struct {
	ShortTermDecay float64 // multiplier on node activation per tick
	LongTermDecay  float64 // multiplier on node and hyperedge salience per tick
	Plasticity     float64
	Diffusion      float64 // alpha of the heat-equation step
	Neurogenesis   bool
	Orthogonality  bool
}

var phaseTable = map[Phase]PhaseParams{
	PhaseExplore: {
		ShortTermDecay: 0.90,
		LongTermDecay:  0.999,
		Plasticity:     1.0,
		Diffusion:      0.08,
		Neurogenesis:   true,
	},
	PhaseInference: {
		ShortTermDecay: 0.70,
		LongTermDecay:  1.0,
		Plasticity:     0.0,
		Diffusion:      0.02,
	},
	PhaseConsolidate: {
		ShortTermDecay: 0.50,
		LongTermDecay:  0.995,
		Plasticity:     0.2,
		Diffusion:      0.0,
		Orthogonality:  true,
	},
}

// Params returns the preset for p. Unknown phases get the EXPLORE preset.
func (p Phase) Params() PhaseParams {
	if params, ok := phaseTable[p]; ok {
		return params
	}
	return phaseTable[PhaseExplore]
}

// ParsePhase accepts a phase name in any case.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := phaseTable[p]; !ok {
		return "", fmt.Errorf("unknown phase %q (valid: explore, inference, consolidate)", s)
	}
	return p, nil
}
