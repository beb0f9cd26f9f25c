package containers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue[int](4)
	assert.True(t, q.IsEmpty())

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.True(t, q.IsEmpty())
}

func TestQueueDrainOnEmpty(t *testing.T) {
	q := NewQueue[string](0)
	assert.Empty(t, q.Drain())
}

func TestQueueGrowsPastCapacity(t *testing.T) {
	q := NewQueue[int](2)
	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	drained := q.Drain()
	assert.Len(t, drained, 100)
	assert.Equal(t, 0, drained[0])
	assert.Equal(t, 99, drained[99])
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue[int](16)

	const producers = 8
	const perProducer = 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base + i)
			}
		}(p * perProducer)
	}
	wg.Wait()

	drained := q.Drain()
	assert.Len(t, drained, producers*perProducer)

	seen := make(map[int]bool, len(drained))
	for _, v := range drained {
		assert.False(t, seen[v])
		seen[v] = true
	}
}
