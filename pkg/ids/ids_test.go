package ids

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	s := NewSequence("item")
	assert.Equal(t, "item-1", s.NewID())
	assert.Equal(t, "item-2", s.NewID())
}

func TestSequence_ConcurrentUnique(t *testing.T) {
	s := NewSequence("q")
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.NewID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestUUIDAndDefault(t *testing.T) {
	id := OrDefault(nil).NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	seq := NewSequence("x")
	assert.Same(t, seq, OrDefault(seq))
}
