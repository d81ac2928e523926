package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator mints identifiers for nodes and hyperedges.
type IDGenerator interface {
	NewID(prefix string) string
}

// UUIDGenerator produces random UUID-based ids.
type UUIDGenerator struct{}

// NewID returns prefix-<uuid>.
func (UUIDGenerator) NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// SequentialIDs produces prefix-1, prefix-2, ... and is meant for reproducible tests.
type SequentialIDs struct {
	n int
}

// NewID returns the next id in sequence.
func (s *SequentialIDs) NewID(prefix string) string {
	s.n++
	return fmt.Sprintf("%s-%d", prefix, s.n)
}
