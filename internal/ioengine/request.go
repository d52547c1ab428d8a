package ioengine

import "sync/atomic"

// Kind tags what a request node currently represents. While a node is
// in flight (mailbox, server, or result queue) it holds one of the
// "wire" kinds; once a block-acquire reply has been claimed by its
// stream, the client overwrites Kind with one of the pseudo-states
// (KindBlockReady, KindBlockModified, KindBlockError) so the prefetch
// FIFO can inspect block status without a second field. This mirrors
// FileIoRequest::requestType in original_source/src/FileIoReadStream.cpp,
// which aliases BlockState onto the same field for the same reason.
type Kind int32

const (
	// KindStreamRoot is the neutral kind every node carries immediately
	// after allocation. A stream's root node keeps this kind for its
	// entire live lifetime; the cleanup protocol (Stream.Close in
	// stream.go, then handlers.go) is the only thing that ever overwrites
	// it with KindCleanupResultQueue / KindResultQueueAwaitingCleanup,
	// and reset() restores it to
	// KindStreamRoot the moment the node is recycled, so a freed
	// cleanup-marked root can never be mistaken for one still under
	// cleanup once it's handed out again.
	KindStreamRoot Kind = iota
	KindOpenFile
	KindCloseFile
	KindReadBlock
	KindReleaseReadBlock
	KindAllocateWriteBlock
	KindCommitModifiedWriteBlock
	KindReleaseUnmodifiedWriteBlock
	KindCleanupResultQueue
	KindResultQueueAwaitingCleanup

	// Client-side pseudo-states for a block-acquire node sitting in a
	// prefetch FIFO. KindBlockReady/KindBlockError replace KindReadBlock
	// or KindAllocateWriteBlock once receiveOneBlock has claimed a reply.
	KindBlockReady
	KindBlockModified
	KindBlockError
)

func (k Kind) String() string {
	switch k {
	case KindStreamRoot:
		return "STREAM_ROOT"
	case KindOpenFile:
		return "OPEN_FILE"
	case KindCloseFile:
		return "CLOSE_FILE"
	case KindReadBlock:
		return "READ_BLOCK"
	case KindReleaseReadBlock:
		return "RELEASE_READ_BLOCK"
	case KindAllocateWriteBlock:
		return "ALLOCATE_WRITE_BLOCK"
	case KindCommitModifiedWriteBlock:
		return "COMMIT_MODIFIED_WRITE_BLOCK"
	case KindReleaseUnmodifiedWriteBlock:
		return "RELEASE_UNMODIFIED_WRITE_BLOCK"
	case KindCleanupResultQueue:
		return "CLEANUP_RESULT_QUEUE"
	case KindResultQueueAwaitingCleanup:
		return "RESULT_QUEUE_AWAITING_CLEANUP"
	case KindBlockReady:
		return "BLOCK_READY"
	case KindBlockModified:
		return "BLOCK_MODIFIED"
	case KindBlockError:
		return "BLOCK_ERROR"
	default:
		return "UNKNOWN"
	}
}

// OpenMode selects the fopen-equivalent mode for OPEN_FILE requests.
type OpenMode int

const (
	ReadOnly OpenMode = iota
	ReadWriteOverwrite
)

// request is the universal currency of the engine: a fixed-shape record
// recycled by the pool, pushed through the mailbox, dispatched by the
// server, and returned through a stream's result queue.
//
// Two independent link fields exist per spec.md §3 invariant: transitNext
// is used while the node sits in the pool's free list, the mailbox, or a
// result queue (all three are Treiber-stack structures built on the same
// atomic link — see stack.go). clientNext is used only by the owning
// stream's single-threaded prefetch FIFO. A node uses at most one of the
// two at a time; they are separate fields (not unioned) because Go has no
// union, and a node can be mid-transition between the two (e.g. already
// unlinked from the prefetch FIFO but not yet pushed to the mailbox).
type request struct {
	// transitNext is the intrusive link used by treiberStack: pool free
	// list, mailbox inbound stack, and a stream's result queue all reuse
	// this one field because a node is never in more than one of those
	// structures at once.
	transitNext atomic.Pointer[request]

	// clientNext threads this node through its owning stream's prefetch
	// FIFO. Only ever touched by the stream's single client goroutine.
	clientNext *request

	// kind is atomic because the cleanup protocol (handlers.go) races the
	// stream's Close() (which may rewrite a root node's kind to
	// CleanupResultQueue) against the server's dispatch loop reading it.
	kind atomic.Int32

	// status carries the last I/O error for this node, nil on success.
	status error

	// bytesCopied is the per-block read/write cursor (client_scratch in
	// spec.md §3). discarded replaces the original's -1 sentinel with a
	// dedicated bool per spec.md §9's own recommendation.
	bytesCopied int
	discarded   bool

	// --- OPEN_FILE payload ---
	path     string
	openMode OpenMode

	// --- shared by CLOSE_FILE / block-acquire / block-release payloads ---
	handle       *fileHandle
	filePosition int64
	block        *dataBlock
	atEOF        bool

	// owner is the stream's root node this request's reply belongs to.
	// The server pushes completed requests into owner.embeddedRQ and
	// checks owner.Kind() for RESULT_QUEUE_AWAITING_CLEANUP before doing
	// so (spec.md §4.4's result delivery discipline). A root node is its
	// own owner.
	owner *request

	// embeddedRQ is the per-stream SPSC result queue, embedded directly
	// in the root request node per spec.md §3 ("its embedded result-queue
	// is the stream's SPSC reply channel"). Non-root nodes never use
	// this field.
	embeddedRQ resultQueue

	// priority marks a request that must be drained by the server ahead
	// of ordinary mailbox work (see SPEC_FULL.md §4.9: commit requests).
	priority bool
}

func (r *request) Kind() Kind     { return Kind(r.kind.Load()) }
func (r *request) setKind(k Kind) { r.kind.Store(int32(k)) }

// reset clears a node to its zero-ish state before it is handed back to a
// fresh caller of pool.allocate. The transit link is the pool's concern
// and is cleared by its pop; the client link and the embedded result
// queue are cleared here.
func (r *request) reset() {
	r.kind.Store(int32(KindStreamRoot))
	r.status = nil
	r.bytesCopied = 0
	r.discarded = false
	r.path = ""
	r.openMode = ReadOnly
	r.handle = nil
	r.filePosition = 0
	r.block = nil
	r.atEOF = false
	r.owner = nil
	r.priority = false
	r.clientNext = nil
	r.embeddedRQ.stack.head.Store(nil)
	r.embeddedRQ.expectedResultCount.Store(0)
}
