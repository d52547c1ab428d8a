package ioengine

import (
	"log/slog"

	"github.com/google/uuid"
)

// State is the stream's client-visible FSM state (spec.md §4.6).
type State int32

const (
	StateOpening State = iota
	StateIdle
	StateBuffering
	StateStreaming
	StateEOF
	StateError
)

func (st State) String() string {
	switch st {
	case StateOpening:
		return "OPENING"
	case StateIdle:
		return "OPEN_IDLE"
	case StateBuffering:
		return "OPEN_BUFFERING"
	case StateStreaming:
		return "OPEN_STREAMING"
	case StateEOF:
		return "OPEN_EOF"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Stream is the per-open-file client-side structure (spec.md §4.5,
// component E) and the client-visible state machine (§4.6, component F).
//
// spec.md §9's own design note offers an alternative to the source's
// trick of repurposing one request-node type as the stream handle: "a
// separate stream struct that embeds a node." This is that struct. The
// root node still carries the embedded result queue (request.embeddedRQ)
// and still doubles as the cleanup-protocol's container (its Kind field
// is RESULT_QUEUE_AWAITING_CLEANUP / CLEANUP_RESULT_QUEUE during
// teardown, and nothing else) — but the prefetch FIFO head/tail and
// waiting_for_blocks_count live here as real fields, not squeezed into
// node link slots.
//
// Grounded on original_source/src/FileIoReadStream.cpp's
// FileIoStreamWrapper<BlockReq>, generalized over read and write via the
// isWrite flag rather than a C++ template — a stream's read/write shape
// differs only in which wire kinds it issues and how flush disposes of a
// ready block, not in its FSM or prefetch bookkeeping.
type Stream struct {
	ID  uuid.UUID
	log *slog.Logger
	srv *Server

	isWrite bool

	root    *request // owns embeddedRQ; self-owned (root.owner == root)
	openReq *request // OPEN_FILE request, retained for eventual CLOSE_FILE
	handle  *fileHandle

	prefetchHead *request
	prefetchTail *request
	waiting      int // waiting_for_blocks_count

	state  State
	status error

	nextPrefetchPos int64 // file position the next tail request will target
}

// Open allocates the root and open-file nodes, issues OPEN_FILE, and
// returns the new stream (spec.md §4.6's open(path, mode)). Returns nil
// on pool exhaustion, matching spec.md §6's "null on pool exhaustion".
func Open(srv *Server, path string, mode OpenMode, isWrite bool, log *slog.Logger) *Stream {
	root := srv.NewRequest()
	if root == nil {
		return nil
	}
	openReq := srv.NewRequest()
	if openReq == nil {
		srv.freeRequest(root)
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	id := uuid.New()
	s := &Stream{
		ID:      id,
		log:     log.With("stream", id.String()),
		srv:     srv,
		isWrite: isWrite,
		root:    root,
		openReq: openReq,
		state:   StateOpening,
	}
	root.owner = root
	root.setKind(KindStreamRoot)
	openReq.owner = root
	openReq.setKind(KindOpenFile)
	openReq.path = path
	openReq.openMode = mode

	root.embeddedRQ.incrementExpectedResultCount()
	srv.Send(openReq)
	s.log.Info("stream open requested", "path", path, "write", isWrite)
	return s
}

// State returns the stream's current FSM state without advancing it.
func (s *Stream) State() State { return s.state }

// GetError returns the last observed status (spec.md §6's get_error).
func (s *Stream) GetError() error { return s.status }

// PollState advances the FSM by consuming at most one reply from the
// result queue, then returns the (possibly updated) state (spec.md
// §4.6's poll_state).
func (s *Stream) PollState() State {
	if s.root.embeddedRQ.expectedResultCount.Load() > 0 {
		if s.state == StateOpening {
			s.pollOpen()
		} else {
			s.receiveOneBlock()
		}
	}
	return s.state
}

func (s *Stream) pollOpen() {
	r := s.root.embeddedRQ.pop()
	if r == nil {
		return
	}
	if r.status != nil {
		s.status = r.status
		s.state = StateError
		s.log.Warn("open failed", "error", r.status)
		return
	}
	s.handle = r.handle
	s.state = StateIdle
}

// receiveOneBlock pops one reply belonging to a block-acquire request
// and folds it into the prefetch FIFO (spec.md §4.6.1).
func (s *Stream) receiveOneBlock() bool {
	r := s.root.embeddedRQ.pop()
	if r == nil {
		return false
	}
	if r.discarded {
		if r.status == nil {
			s.convertToRelease(r)
			s.srv.Send(r)
		} else {
			s.srv.freeRequest(r)
		}
		return true
	}
	s.waiting--
	if r.status != nil {
		r.setKind(KindBlockError)
	} else {
		r.setKind(KindBlockReady)
	}
	if s.waiting <= 0 && s.state == StateBuffering {
		s.state = StateStreaming
	}
	return true
}

// convertToRelease turns a completed-but-discarded block-acquire node
// into the matching release/commit request. Discarded MODIFIED blocks
// cannot happen (discard only observes PENDING nodes), so a discarded
// success is always released unmodified.
func (s *Stream) convertToRelease(r *request) {
	if s.isWrite {
		r.setKind(KindReleaseUnmodifiedWriteBlock)
	} else {
		r.setKind(KindReleaseReadBlock)
	}
}

// appendPrefetch links n onto the FIFO tail. Per spec.md §9's design
// note, the new tail is always linked before the old head is unlinked,
// so the FIFO is never transiently empty.
func (s *Stream) appendPrefetch(n *request) {
	n.clientNext = nil
	if s.prefetchTail == nil {
		s.prefetchHead = n
	} else {
		s.prefetchTail.clientNext = n
	}
	s.prefetchTail = n
}

// popPrefetchHead unlinks and returns the current FIFO head.
func (s *Stream) popPrefetchHead() *request {
	h := s.prefetchHead
	if h == nil {
		return nil
	}
	s.prefetchHead = h.clientNext
	if s.prefetchHead == nil {
		s.prefetchTail = nil
	}
	h.clientNext = nil
	return h
}

// flushPrefetchQueue drains the entire FIFO, disposing of each node per
// its current state (spec.md §4.6.2).
func (s *Stream) flushPrefetchQueue() {
	for {
		n := s.popPrefetchHead()
		if n == nil {
			break
		}
		switch n.Kind() {
		case KindReadBlock, KindAllocateWriteBlock:
			n.discarded = true
			s.waiting--
		case KindBlockReady:
			s.convertToRelease(n)
			s.srv.Send(n)
		case KindBlockModified:
			n.setKind(KindCommitModifiedWriteBlock)
			n.priority = true
			s.srv.Send(n)
		case KindBlockError:
			s.srv.freeRequest(n)
		}
	}
}

// acquireKind returns the wire kind this stream issues for a new
// block-acquire request.
func (s *Stream) acquireKind() Kind {
	if s.isWrite {
		return KindAllocateWriteBlock
	}
	return KindReadBlock
}

// issueBlockRequest allocates a node targeting pos and appends it to the
// prefetch FIFO, sending it to the server. Returns false (and sets
// StateError) on pool exhaustion.
func (s *Stream) issueBlockRequest(pos int64, bytesCopied int) bool {
	n := s.srv.NewRequest()
	if n == nil {
		s.state = StateError
		s.status = ErrPoolExhausted
		return false
	}
	n.owner = s.root
	n.handle = s.handle
	n.filePosition = pos
	n.bytesCopied = bytesCopied
	n.setKind(s.acquireKind())
	s.appendPrefetch(n)
	s.root.embeddedRQ.incrementExpectedResultCount()
	s.waiting++
	s.srv.Send(n)
	return true
}

// Seek rounds pos down to block alignment, flushes any existing prefetch
// window, and issues a fresh window of PrefetchDepth block requests
// (spec.md §4.6's seek(pos)).
func (s *Stream) Seek(pos int64) error {
	if s.state == StateOpening || s.state == StateError {
		return errInvalidState
	}
	blockBytes := int64(s.srv.cfg.BlockBytes)
	alignedPos := pos - (pos % blockBytes)

	s.flushPrefetchQueue()

	if !s.issueBlockRequest(alignedPos, int(pos-alignedPos)) {
		return s.status
	}
	for k := 1; k < s.srv.cfg.PrefetchDepth; k++ {
		delta, err := mulPosition(int64(k), blockBytes)
		if err != nil {
			s.state = StateError
			s.status = err
			return err
		}
		off, err := addPosition(alignedPos, delta)
		if err != nil {
			s.state = StateError
			s.status = err
			return err
		}
		if !s.issueBlockRequest(off, 0) {
			return s.status
		}
	}
	windowSpan, err := mulPosition(int64(s.srv.cfg.PrefetchDepth), blockBytes)
	if err != nil {
		s.state = StateError
		s.status = err
		return err
	}
	next, err := addPosition(alignedPos, windowSpan)
	if err != nil {
		s.state = StateError
		s.status = err
		return err
	}
	s.nextPrefetchPos = next
	s.state = StateBuffering
	return nil
}

// extendWindow issues one new tail request at the position immediately
// following the current prefetch window, preserving its depth as the
// head is consumed (spec.md §4.6 read() / AT_BLOCK_END).
func (s *Stream) extendWindow() bool {
	ok := s.issueBlockRequest(s.nextPrefetchPos, 0)
	if ok {
		next, err := addPosition(s.nextPrefetchPos, int64(s.srv.cfg.BlockBytes))
		if err != nil {
			s.state = StateError
			s.status = err
			return false
		}
		s.nextPrefetchPos = next
	}
	return ok
}

// Close implements the cleanup protocol (spec.md §4.7). Never blocks and
// never fails; ownership of any still-outstanding node passes to the
// server.
func (s *Stream) Close() {
	if s.state == StateOpening {
		s.openReq = nil
		s.root.setKind(KindCleanupResultQueue)
		s.srv.Send(s.root)
		s.log.Info("stream closed while opening")
		return
	}

	s.flushPrefetchQueue()

	if s.openReq != nil {
		if s.openReq.handle != nil {
			s.openReq.setKind(KindCloseFile)
			s.srv.Send(s.openReq)
		} else {
			s.srv.freeRequest(s.openReq)
		}
		s.openReq = nil
	}

	if s.root.embeddedRQ.expectedResultCount.Load() > 0 {
		s.root.setKind(KindCleanupResultQueue)
		s.srv.Send(s.root)
	} else {
		s.srv.freeRequest(s.root)
	}
	s.log.Info("stream closed")
}
