package engine

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/lazypower/mnemo/internal/graph"
)

// Content size limits. Oversized text is truncated, not rejected.
const (
	maxLabelChars   = 200
	maxContentChars = 40000
)

// NodeCandidate is a node record as produced by the extraction collaborator.
type NodeCandidate struct {
	Label      string  `json:"label" validate:"required"`
	Type       string  `json:"type"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// RelationCandidate is a relation record as produced by the extraction collaborator.
type RelationCandidate struct {
	Source     string  `json:"source" validate:"required"`
	Target     string  `json:"target" validate:"required,nefield=Source"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Context    string  `json:"context"`
}

var validate = validator.New()

// sanitizeLabel collapses runs of whitespace and drops control characters.
func sanitizeLabel(label string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// validateNodeCandidate returns a sanitized copy, or an error if the record
// should be dropped.
func validateNodeCandidate(c NodeCandidate) (NodeCandidate, error) {
	c.Label = sanitizeLabel(c.Label)
	c.Content = strings.TrimSpace(c.Content)
	if err := validate.Struct(c); err != nil {
		return c, fmt.Errorf("invalid node candidate: %w", err)
	}
	if len(c.Label) > maxLabelChars {
		c.Label = truncateClean(c.Label, maxLabelChars)
	}
	if len(c.Content) > maxContentChars {
		c.Content = truncateClean(c.Content, maxContentChars)
	}
	return c, nil
}

// validateRelationCandidate returns a trimmed copy, or an error if the record
// is malformed. Confidence gating happens later.
func validateRelationCandidate(c RelationCandidate) (RelationCandidate, error) {
	c.Source = strings.TrimSpace(c.Source)
	c.Target = strings.TrimSpace(c.Target)
	c.Type = string(graph.ParseSynapseType(c.Type))
	if err := validate.Struct(c); err != nil {
		return c, fmt.Errorf("invalid relation candidate: %w", err)
	}
	return c, nil
}

// truncateClean truncates a string to maxLen, cutting at the last word boundary
// to avoid mid-word breaks.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 && idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
