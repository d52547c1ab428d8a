package ioengine

import "sync/atomic"

// treiberStack is a lock-free LIFO over request nodes linked through their
// transitNext field. It is the one primitive that backs the request pool's
// free list (pool.go), the MPSC mailbox's inbound stack (mailbox.go), and
// the SPSC result queue (resultqueue.go) — all three are "CAS a node onto
// an atomic head pointer, CAS it back off" with only the pop policy
// differing (single pop vs. pop-all-then-reverse).
//
// Grounded on original_source/src/FileIoServer.cpp's own TODO ("factor
// server mailbox out into separate module... treiber pop-all part...
// ensure these share one construction") and the variant taxonomy in
// other_examples/hayabusa-cloud-lfq__doc.go (SPSC/MPSC/pop-all built from
// one family of primitives).
type treiberStack struct {
	head atomic.Pointer[request]
}

// push prepends r onto the stack and reports whether the stack was empty
// beforehand — callers use that to decide whether to signal a waiting
// consumer (spec.md §4.2's was-empty wakeup rule).
func (s *treiberStack) push(r *request) (wasEmpty bool) {
	for {
		old := s.head.Load()
		r.transitNext.Store(old)
		if s.head.CompareAndSwap(old, r) {
			return old == nil
		}
	}
}

// pop removes and returns the single most-recently-pushed node, or nil if
// the stack is empty. Used by the pool (allocate) and the result queue
// (client-side pop, where unordered delivery makes LIFO order fine).
func (s *treiberStack) pop() *request {
	for {
		old := s.head.Load()
		if old == nil {
			return nil
		}
		next := old.transitNext.Load()
		if s.head.CompareAndSwap(old, next) {
			old.transitNext.Store(nil)
			return old
		}
	}
}

// popAllReversed atomically detaches the entire stack and returns it as a
// singly-linked chain in arrival (FIFO) order. Used by the mailbox, where
// the server must process requests in the order each producer sent them.
func (s *treiberStack) popAllReversed() *request {
	lifo := s.head.Swap(nil)
	var fifo *request
	for lifo != nil {
		next := lifo.transitNext.Load()
		lifo.transitNext.Store(fifo)
		fifo = lifo
		lifo = next
	}
	return fifo
}
