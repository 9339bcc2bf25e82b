// Package ids provides injectable identifier generation.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator hands out unique identifiers. Implementations must be safe for
// concurrent use.
type Generator interface {
	NewID() string
}

// UUID generates random v4 UUIDs.
type UUID struct{}

// NewID implements Generator.
func (UUID) NewID() string { return uuid.NewString() }

// Sequence generates prefix-1, prefix-2, ... and is meant for tests and
// reproducible runs.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequence creates a sequence generator starting at 1.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix, next: 1}
}

// NewID implements Generator.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("%s-%d", s.prefix, s.next)
	s.next++
	return id
}

// OrDefault returns g, or a UUID generator when g is nil.
func OrDefault(g Generator) Generator {
	if g == nil {
		return UUID{}
	}
	return g
}
