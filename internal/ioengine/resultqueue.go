package ioengine

import "sync/atomic"

// resultQueue is the single-producer (server), single-consumer (the
// stream's owning goroutine) unordered delivery queue for completed
// requests belonging to one stream (spec.md §4.3, component C).
//
// Delivery order is not guaranteed — the server may push replies in a
// different order than the corresponding requests were issued, since
// block I/O completes on whatever schedule the OS gives it. The stream's
// prefetch FIFO (stream.go) reimposes the requested order by matching
// each popped node back to its place in the FIFO via the node pointer
// itself, not via queue order.
//
// Grounded on original_source/src/FileIoReadStream.cpp's
// QwSPSCUnorderedResultQueue usage and its expectedResultCount_ counter,
// which the cleanup protocol (handlers.go) uses to know when every
// outstanding reply for a closed stream has drained before the stream's
// root node (which embeds this queue) is returned to the pool.
type resultQueue struct {
	stack               treiberStack
	expectedResultCount atomic.Int64
}

// incrementExpectedResultCount is called by the client side once per
// request issued against this queue, before the request is sent to the
// server. It must happen before send, not after, so a reply that arrives
// immediately on another goroutine never observes a count of zero for a
// request that is genuinely still outstanding.
func (q *resultQueue) incrementExpectedResultCount() {
	q.expectedResultCount.Add(1)
}

// push delivers a completed request to the queue. Called only by the
// server.
func (q *resultQueue) push(r *request) {
	q.stack.push(r)
}

// pop claims one completed request, decrementing the expected count, or
// returns nil if nothing has arrived yet. Called only by the stream's
// owning goroutine.
func (q *resultQueue) pop() *request {
	r := q.stack.pop()
	if r != nil {
		q.expectedResultCount.Add(-1)
	}
	return r
}

// drainAll detaches every currently-queued result. Used by the cleanup
// protocol when a stream closes with requests still outstanding.
func (q *resultQueue) drainAll() *request {
	fifo := q.stack.popAllReversed()
	for n := fifo; n != nil; n = n.transitNext.Load() {
		q.expectedResultCount.Add(-1)
	}
	return fifo
}
