package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Go modules", "Go modules"},
		{"  padded  ", "padded"},
		{"multi   space\ttab", "multi space tab"},
		{"line\nbreak", "line break"},
		{"bell\x07char", "bellchar"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabel(tt.input), "input %q", tt.input)
	}
}

func TestValidateNodeCandidate_Valid(t *testing.T) {
	vc, err := validateNodeCandidate(NodeCandidate{
		Label:      "  SQLite   WAL mode ",
		Type:       "concept",
		Content:    " use WAL in production ",
		Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, "SQLite WAL mode", vc.Label)
	assert.Equal(t, "use WAL in production", vc.Content)
}

func TestValidateNodeCandidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		c    NodeCandidate
	}{
		{"empty label", NodeCandidate{Label: "", Confidence: 0.9}},
		{"whitespace label", NodeCandidate{Label: "   ", Confidence: 0.9}},
		{"confidence above one", NodeCandidate{Label: "x", Confidence: 1.5}},
		{"negative confidence", NodeCandidate{Label: "x", Confidence: -0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateNodeCandidate(tt.c)
			assert.Error(t, err)
		})
	}
}

func TestValidateNodeCandidate_Truncates(t *testing.T) {
	vc, err := validateNodeCandidate(NodeCandidate{
		Label:      strings.Repeat("word ", 100),
		Content:    strings.Repeat("x", maxContentChars+50),
		Confidence: 0.8,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(vc.Label), maxLabelChars)
	assert.LessOrEqual(t, len(vc.Content), maxContentChars)
	assert.False(t, strings.HasSuffix(vc.Label, " "))
}

func TestValidateRelationCandidate(t *testing.T) {
	vc, err := validateRelationCandidate(RelationCandidate{Source: " a ", Target: "b", Confidence: 0.8})
	require.NoError(t, err)
	assert.Equal(t, "a", vc.Source)
	assert.Equal(t, "association", vc.Type, "empty type defaults to association")

	vc, err = validateRelationCandidate(RelationCandidate{Source: "a", Target: "b", Type: "Part Of", Confidence: 0.8})
	require.NoError(t, err)
	assert.Equal(t, "part_of", vc.Type)

	vc, err = validateRelationCandidate(RelationCandidate{Source: "a", Target: "b", Type: "mentors", Confidence: 0.8})
	require.NoError(t, err)
	assert.Equal(t, "custom", vc.Type)

	_, err = validateRelationCandidate(RelationCandidate{Source: "a", Target: "a", Confidence: 0.8})
	assert.Error(t, err, "self loop")

	_, err = validateRelationCandidate(RelationCandidate{Source: "", Target: "b", Confidence: 0.8})
	assert.Error(t, err)
}

func TestTruncateClean(t *testing.T) {
	assert.Equal(t, "short", truncateClean("short", 10))
	assert.Equal(t, "hello", truncateClean("hello world", 8))

	// never cuts inside a multi-byte rune
	s := strings.Repeat("é", 10)
	out := truncateClean(s, 5)
	assert.True(t, strings.HasPrefix(s, out))
	assert.Equal(t, 4, len(out))
}
