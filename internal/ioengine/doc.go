// Package ioengine implements the request/reply file streaming protocol
// described in SPEC_FULL.md: a lock-free request-node pool, an MPSC mailbox,
// an SPSC result queue, a single dedicated I/O server goroutine, and the
// client-side stream state machine that turns those primitives into
// wait-free Open/Seek/ReadItems/WriteItems/Close calls.
//
// # Philosophy
//
// "The client thread never blocks, never allocates, never touches the OS."
//
// Every operation a caller makes on a Stream does a bounded number of
// lock-free pool/queue operations and returns. All fopen/fread/fwrite/fseek
// work happens on the single server goroutine; the client only ever looks
// at results the server already produced.
//
// # Architecture
//
//	client goroutine(s)              server goroutine (1, dedicated)
//	     |                                    |
//	     | Seek/ReadItems/WriteItems/Close    | drain mailbox -> dispatch -> push result
//	     v                                    ^
//	 [ stream ] --(send)--> [ mailbox ] ------+
//	     ^                                    |
//	     +-----------(pop)--- [ result queue ] <-- server pushes replies here
//
// The stream struct (stream.go) is the client-side linked structure from
// spec.md §4.5: a root request node carrying the embedded result queue, an
// open-file request node, and a prefetch FIFO of block-acquire requests
// threaded through the nodes' client link.
//
// # Request node lifecycle
//
// A request node is owned by exactly one of: client, mailbox, server,
// result queue (spec.md §3 invariant 1). Ownership transfers on push/pop.
// The pool (pool.go) is the sole source and sink of nodes for both sides.
//
// # Thread safety
//
//   - Server: exactly one goroutine, created by StartServer, joined by
//     Shutdown.
//   - Stream: not safe for concurrent calls from multiple goroutines (same
//     contract as a single audio callback thread owning one stream) — this
//     mirrors the single-producer assumption baked into the prefetch FIFO.
//   - Pool/mailbox/result-queue: safe for their stated producer/consumer
//     cardinalities (see each type's doc comment).
//
// See DESIGN.md for the grounding of each file in this package.
package ioengine
