package ioengine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreiberStack_PushPopOrder(t *testing.T) {
	var s treiberStack
	a, b, c := &request{}, &request{}, &request{}

	wasEmpty := s.push(a)
	assert.True(t, wasEmpty)
	wasEmpty = s.push(b)
	assert.False(t, wasEmpty)
	s.push(c)

	// LIFO: most recently pushed pops first.
	require.Same(t, c, s.pop())
	require.Same(t, b, s.pop())
	require.Same(t, a, s.pop())
	assert.Nil(t, s.pop())
}

func TestTreiberStack_PopAllReversedPreservesArrivalOrder(t *testing.T) {
	var s treiberStack
	a, b, c := &request{}, &request{}, &request{}
	s.push(a)
	s.push(b)
	s.push(c)

	fifo := s.popAllReversed()
	require.Same(t, a, fifo)
	require.Same(t, b, fifo.transitNext.Load())
	require.Same(t, c, fifo.transitNext.Load().transitNext.Load())
	assert.Nil(t, c.transitNext.Load())

	assert.Nil(t, s.pop(), "stack must be empty after popAllReversed")
}

func TestTreiberStack_ConcurrentPushPop(t *testing.T) {
	var s treiberStack
	const n = 1000
	nodes := make([]*request, n)
	for i := range nodes {
		nodes[i] = &request{}
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(r *request) {
			defer wg.Done()
			s.push(r)
		}(nodes[i])
	}
	wg.Wait()

	seen := make(map[*request]bool)
	for r := s.pop(); r != nil; r = s.pop() {
		assert.False(t, seen[r], "node popped twice")
		seen[r] = true
	}
	assert.Len(t, seen, n)
}
