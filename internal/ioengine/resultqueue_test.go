package ioengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultQueue_ExpectedCountTracksSendAndPop(t *testing.T) {
	var q resultQueue
	assert.EqualValues(t, 0, q.expectedResultCount.Load())

	q.incrementExpectedResultCount()
	q.incrementExpectedResultCount()
	assert.EqualValues(t, 2, q.expectedResultCount.Load())

	a := &request{}
	q.push(a)
	assert.EqualValues(t, 2, q.expectedResultCount.Load(), "push must not change the count")

	r := q.pop()
	require.Same(t, a, r)
	assert.EqualValues(t, 1, q.expectedResultCount.Load())

	assert.Nil(t, q.pop())
}

func TestResultQueue_DrainAllDecrementsForEveryNode(t *testing.T) {
	var q resultQueue
	q.incrementExpectedResultCount()
	q.incrementExpectedResultCount()
	q.incrementExpectedResultCount()

	a, b, c := &request{}, &request{}, &request{}
	q.push(a)
	q.push(b)
	q.push(c)

	fifo := q.drainAll()
	count := 0
	for n := fifo; n != nil; n = n.transitNext.Load() {
		count++
	}
	assert.Equal(t, 3, count)
	assert.EqualValues(t, 0, q.expectedResultCount.Load())
}
