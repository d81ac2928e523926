package graph

import "time"

// NodeType is the closed taxonomy of memory units.
type NodeType string

const (
	NodeConcept    NodeType = "concept"
	NodeEntity     NodeType = "entity"
	NodeEvent      NodeType = "event"
	NodePreference NodeType = "preference"
	NodeConstraint NodeType = "constraint"
	NodeGoal       NodeType = "goal"
	NodeFact       NodeType = "fact"
	NodeDocument   NodeType = "document"
	NodeTool       NodeType = "tool"
	NodeConfig     NodeType = "config"
	NodeContact    NodeType = "contact"
	NodeMeeting    NodeType = "meeting"
	NodeBehavior   NodeType = "behavior"
	NodeProject    NodeType = "project"
	NodeUnknown    NodeType = "unknown"
)

var knownNodeTypes = map[NodeType]bool{
	NodeConcept: true, NodeEntity: true, NodeEvent: true, NodePreference: true,
	NodeConstraint: true, NodeGoal: true, NodeFact: true, NodeDocument: true,
	NodeTool: true, NodeConfig: true, NodeContact: true, NodeMeeting: true,
	NodeBehavior: true, NodeProject: true,
}

// ParseNodeType maps free-form input onto the taxonomy. Anything unrecognized
// becomes NodeUnknown.
func ParseNodeType(s string) NodeType {
	t := NodeType(normalizeTag(s))
	if knownNodeTypes[t] {
		return t
	}
	return NodeUnknown
}

// Known reports whether t is part of the taxonomy.
func (t NodeType) Known() bool { return knownNodeTypes[t] }

// SynapseType classifies an edge. Only associations decay and get pruned.
type SynapseType string

const (
	SynapseAssociation   SynapseType = "association"
	SynapseContradiction SynapseType = "contradiction"
	SynapseInference     SynapseType = "inference"
	SynapseCausal        SynapseType = "causal"
	SynapseTemporal      SynapseType = "temporal"
	SynapsePartOf        SynapseType = "part_of"
	SynapseCustom        SynapseType = "custom"
)

// ParseSynapseType maps free-form input onto a SynapseType. Empty input is an
// association; anything else unrecognized is SynapseCustom.
func ParseSynapseType(s string) SynapseType {
	switch t := SynapseType(normalizeTag(s)); t {
	case "":
		return SynapseAssociation
	case SynapseAssociation, SynapseContradiction, SynapseInference,
		SynapseCausal, SynapseTemporal, SynapsePartOf:
		return t
	default:
		return SynapseCustom
	}
}

// Decayable reports whether synapses of this type are subject to weak-edge pruning.
func (t SynapseType) Decayable() bool { return t == SynapseAssociation }

// HyperedgeSource records how a hyperedge came to exist.
type HyperedgeSource string

const (
	SourceCoActivation       HyperedgeSource = "co-activation"
	SourceClique             HyperedgeSource = "clique"
	SourceIntelligentCluster HyperedgeSource = "intelligent-cluster"
	SourceSemanticCluster    HyperedgeSource = "semantic-cluster"
	SourceMerge              HyperedgeSource = "merge"
	SourcePatternDetection   HyperedgeSource = "pattern-detection"
	SourceUnknown            HyperedgeSource = "unknown"
)

// ParseHyperedgeSource maps stored provenance back onto the enumeration.
func ParseHyperedgeSource(s string) HyperedgeSource {
	switch src := HyperedgeSource(s); src {
	case SourceCoActivation, SourceClique, SourceIntelligentCluster,
		SourceSemanticCluster, SourceMerge, SourcePatternDetection:
		return src
	default:
		return SourceUnknown
	}
}

// Node is a memory unit. Nodes are archived, never deleted.
type Node struct {
	ID         string     `json:"id"`
	Type       NodeType   `json:"type"`
	Label      string     `json:"label"`
	Content    string     `json:"content,omitempty"`
	Activation float64    `json:"activation"`
	Salience   float64    `json:"salience"`
	Threshold  *float64   `json:"threshold,omitempty"` // per-node firing threshold; nil uses the engine theta
	Archived   bool       `json:"archived,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastActive *time.Time `json:"last_active,omitempty"`
}

// Synapse is a weighted, typed link between two nodes. Traversal treats it as
// undirected.
type Synapse struct {
	Source       string            `json:"source"`
	Target       string            `json:"target"`
	Weight       float64           `json:"weight"`
	Type         SynapseType       `json:"type"`
	CoActivation int               `json:"co_activation"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Other returns the endpoint opposite id.
func (s *Synapse) Other(id string) string {
	if s.Source == id {
		return s.Target
	}
	return s.Source
}

// Connects reports whether s joins a and b in either direction.
func (s *Synapse) Connects(a, b string) bool {
	return (s.Source == a && s.Target == b) || (s.Source == b && s.Target == a)
}

// Hyperedge groups two or more nodes into a single weighted association.
type Hyperedge struct {
	ID        string          `json:"id"`
	Members   []string        `json:"members"`
	Weight    float64         `json:"weight"`
	Salience  float64         `json:"salience"`
	Label     string          `json:"label"`
	Type      string          `json:"type"`
	Source    HyperedgeSource `json:"source"`
	Context   string          `json:"context,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// HasMember reports whether id belongs to the hyperedge.
func (h *Hyperedge) HasMember(id string) bool {
	for _, m := range h.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Covers reports whether every id is a member.
func (h *Hyperedge) Covers(ids ...string) bool {
	for _, id := range ids {
		if !h.HasMember(id) {
			return false
		}
	}
	return true
}
