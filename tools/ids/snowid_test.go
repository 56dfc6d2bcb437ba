package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_UniqueAndIncreasing(t *testing.T) {
	n := NewNode(7)

	prev := int64(0)
	for range 5000 {
		id := n.Next()
		require.Greater(t, id, prev)
		prev = id
	}
	assert.Equal(t, int64(7), NodeOf(prev))
}

func TestNode_ConcurrentUnique(t *testing.T) {
	n := NewNode(3)

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, 1000)
			for range 1000 {
				local = append(local, n.Next())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8000)
}

func TestNewNode_OutOfRangeFallsBack(t *testing.T) {
	assert.Equal(t, int64(1), NodeOf(NewNode(5000).Next()))
}
