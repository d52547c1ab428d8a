package ioengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AllocateDeallocateRoundTrip(t *testing.T) {
	p := newPool(4)
	require.Equal(t, 4, p.Capacity())
	require.Equal(t, 4, p.FreeCount())

	a := p.allocate()
	b := p.allocate()
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, p.FreeCount())

	p.deallocate(a)
	assert.Equal(t, 3, p.FreeCount())
	p.deallocate(b)
	assert.Equal(t, 4, p.FreeCount())
}

func TestPool_ExhaustionReturnsNil(t *testing.T) {
	p := newPool(2)
	require.NotNil(t, p.allocate())
	require.NotNil(t, p.allocate())
	assert.Nil(t, p.allocate())
	assert.Equal(t, 0, p.FreeCount())
}

func TestPool_AllocateResetsNode(t *testing.T) {
	p := newPool(1)
	r := p.allocate()
	r.path = "/tmp/whatever"
	r.discarded = true
	r.bytesCopied = 42
	r.setKind(KindResultQueueAwaitingCleanup)
	p.deallocate(r)

	r2 := p.allocate()
	require.Same(t, r, r2)
	assert.Equal(t, "", r2.path)
	assert.False(t, r2.discarded)
	assert.Equal(t, 0, r2.bytesCopied)
	assert.Equal(t, KindStreamRoot, r2.Kind(), "a recycled node must not keep a stale cleanup kind")
}
