package ioengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_SendWakesOnlyOnEmptyToNonEmpty(t *testing.T) {
	m := newMailbox()
	a := &request{}
	b := &request{}

	m.send(a)
	select {
	case <-m.wake:
	default:
		t.Fatal("expected a wakeup signal on first send")
	}

	// A second send while nonempty must not queue a second wakeup beyond
	// what's already pending (there shouldn't be one at all here, since
	// we just drained it above).
	m.send(b)
	select {
	case <-m.wake:
		t.Fatal("send into a nonempty mailbox must not re-signal")
	default:
	}
}

func TestMailbox_DrainReturnsFIFOArrivalOrder(t *testing.T) {
	m := newMailbox()
	a, b, c := &request{}, &request{}, &request{}
	m.send(a)
	m.send(b)
	m.send(c)

	fifo := m.drain()
	require.Same(t, a, fifo)
	require.Same(t, b, fifo.transitNext.Load())
	require.Same(t, c, fifo.transitNext.Load().transitNext.Load())

	assert.Nil(t, m.drain(), "mailbox must be empty after drain")
}

func TestMailbox_WaitForWorkReturnsOnSignal(t *testing.T) {
	m := newMailbox()
	done := make(chan struct{})
	go func() {
		m.waitForWork()
		close(done)
	}()

	m.send(&request{})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitForWork did not return after a send")
	}
}
