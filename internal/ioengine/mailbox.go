package ioengine

import "time"

// mailboxDrainTimeout is the periodic fallback drain interval (spec.md
// §4.2: "~1s"). The server must wake on this timeout even if no producer
// ever signals, and must never sleep while the mailbox is nonempty.
const mailboxDrainTimeout = time.Second

// mailbox is the many-producer, single-consumer channel of requests from
// clients to the server (spec.md §4.2, component B). Producers push
// through the shared treiberStack; the server drains it on every wakeup
// and on the periodic timeout.
//
// Grounded on original_source/src/FileIoServer.cpp's serverMailboxQueue_/
// serverMailboxEvent_ pair. The Win32 auto-reset event becomes a
// capacity-1 channel, the idiomatic Go stand-in: a non-blocking send
// signals "there is work", and the consumer drains via select with a
// timeout instead of WaitForSingleObject.
type mailbox struct {
	stack treiberStack
	wake  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// send pushes r onto the mailbox and wakes the server if the mailbox was
// empty beforehand (spec.md §4.2's was-empty wakeup rule; spec.md §6's
// send(request) server-lifecycle operation).
func (m *mailbox) send(r *request) {
	if wasEmpty := m.stack.push(r); wasEmpty {
		m.signal()
	}
}

// signal wakes the server without pushing anything. Used by the
// commit-priority stack (server.go), which bypasses this mailbox's own
// stack but still wakes the same server loop.
func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
		// A wakeup is already pending; the server will see whatever
		// caused this signal on its next drain regardless.
	}
}

// drain atomically detaches every currently-queued request and returns it
// as a singly-linked FIFO chain (arrival order preserved per producer).
func (m *mailbox) drain() *request {
	return m.stack.popAllReversed()
}

// waitForWork blocks until a producer signals or the periodic timeout
// elapses, whichever comes first. It must be called only when the server
// believes the mailbox is empty; if a push raced in after the server's
// last drain but before this call, the channel send already queued a
// wakeup and this returns immediately.
func (m *mailbox) waitForWork() {
	select {
	case <-m.wake:
	case <-time.After(mailboxDrainTimeout):
	}
}
