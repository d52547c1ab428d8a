package ioengine

import (
	"errors"
	"io"
)

// dispatch routes a drained request to its per-kind handler (spec.md
// §4.4's dispatch table). Runs only on the server goroutine.
func (s *Server) dispatch(r *request) {
	switch r.Kind() {
	case KindOpenFile:
		s.handleOpenFile(r)
	case KindCloseFile:
		s.handleCloseFile(r)
	case KindReadBlock:
		s.handleReadBlock(r)
	case KindReleaseReadBlock:
		s.handleReleaseReadBlock(r)
	case KindAllocateWriteBlock:
		s.handleAllocateWriteBlock(r)
	case KindCommitModifiedWriteBlock:
		s.handleCommitModifiedWriteBlock(r)
	case KindReleaseUnmodifiedWriteBlock:
		s.handleReleaseUnmodifiedWriteBlock(r)
	case KindCleanupResultQueue:
		s.handleCleanupResultQueue(r)
	default:
		s.log.Warn("dispatch: unexpected request kind", "kind", r.Kind())
	}
}

// deliverReply implements spec.md §4.4's result delivery discipline:
// before pushing into a client's result queue, inspect the container's
// kind. If the stream is already gone (RESULT_QUEUE_AWAITING_CLEANUP),
// route the reply through cleanup instead of queuing it for a client
// that will never pop it.
func (s *Server) deliverReply(r *request) {
	owner := r.owner
	if owner.Kind() == KindResultQueueAwaitingCleanup {
		s.cleanupOneReply(owner, r)
		return
	}
	owner.embeddedRQ.push(r)
}

func (s *Server) handleOpenFile(r *request) {
	h, err := openFileHandle(r.path, r.openMode)
	if err != nil {
		r.status = err
		r.handle = nil
	} else {
		r.handle = h
	}
	s.deliverReply(r)
}

func (s *Server) handleCloseFile(r *request) {
	if r.handle != nil {
		if err := r.handle.releaseClientRef(); err != nil {
			s.log.Error("close file", "path", r.handle.path, "error", err)
		}
	}
	s.pool.deallocate(r)
}

func (s *Server) handleReadBlock(r *request) {
	block := s.blocks.allocate()
	n, err := r.handle.readAt(block.Data, r.filePosition)
	switch {
	case err == nil:
		block.Valid = n
		r.block = block
		r.atEOF = false
		r.handle.addClientRef()
	case errors.Is(err, io.EOF):
		block.Valid = n
		r.block = block
		r.atEOF = true
		r.handle.addClientRef()
	default:
		s.blocks.release(block)
		r.block = nil
		r.status = err
	}
	s.deliverReply(r)
}

func (s *Server) handleReleaseReadBlock(r *request) {
	s.blocks.release(r.block)
	if r.handle != nil {
		if err := r.handle.releaseClientRef(); err != nil {
			s.log.Error("release read block", "path", r.handle.path, "error", err)
		}
	}
	s.pool.deallocate(r)
}

func (s *Server) handleAllocateWriteBlock(r *request) {
	block := s.blocks.allocate()
	// Best-effort read-modify base (spec.md §4.4): a partial block near
	// EOF should see its existing bytes, but failure to read them (e.g.
	// genuine EOF, or the file not yet reaching this far) is not an
	// error — the block is simply treated as empty.
	n, err := r.handle.readAt(block.Data, r.filePosition)
	if err != nil && !errors.Is(err, io.EOF) {
		n = 0
	}
	block.Valid = n
	r.block = block
	r.handle.addClientRef()
	s.deliverReply(r)
}

func (s *Server) handleCommitModifiedWriteBlock(r *request) {
	if r.block != nil {
		if _, err := r.handle.writeAt(r.block.Data[:r.block.Valid], r.filePosition); err != nil {
			// spec.md §7 / §9 Open Question (b): the source silently
			// ignores write errors. We log instead of discarding
			// silently, which surfaces the failure without requiring a
			// reply path this fire-and-forget request never had.
			s.log.Error("commit write block", "path", r.handle.path, "pos", r.filePosition, "error", err)
		}
		s.blocks.release(r.block)
	}
	if r.handle != nil {
		if err := r.handle.releaseClientRef(); err != nil {
			s.log.Error("commit write block: close", "path", r.handle.path, "error", err)
		}
	}
	s.pool.deallocate(r)
}

func (s *Server) handleReleaseUnmodifiedWriteBlock(r *request) {
	s.blocks.release(r.block)
	if r.handle != nil {
		if err := r.handle.releaseClientRef(); err != nil {
			s.log.Error("release unmodified write block", "path", r.handle.path, "error", err)
		}
	}
	s.pool.deallocate(r)
}

// handleCleanupResultQueue implements spec.md §4.7's server-side cleanup:
// r is itself a stream's root node, already detached from its client.
// Drain whatever has already arrived in its embedded queue, clean each
// one up, and either free the root now or mark it awaiting further
// cleanup for replies still in flight.
func (s *Server) handleCleanupResultQueue(r *request) {
	for n := r.embeddedRQ.drainAll(); n != nil; {
		next := n.transitNext.Load()
		n.transitNext.Store(nil)
		s.releaseReplyResources(n)
		s.pool.deallocate(n)
		n = next
	}
	if r.embeddedRQ.expectedResultCount.Load() <= 0 {
		s.pool.deallocate(r)
	} else {
		r.setKind(KindResultQueueAwaitingCleanup)
	}
}

// cleanupOneReply handles a single in-flight reply that arrived after its
// stream was already marked awaiting cleanup: release whatever resources
// it holds, account for it against the owner's expected count, and free
// the owner once every outstanding reply has been accounted for.
func (s *Server) cleanupOneReply(owner, r *request) {
	s.releaseReplyResources(r)
	s.pool.deallocate(r)
	if owner.embeddedRQ.expectedResultCount.Add(-1) <= 0 {
		s.pool.deallocate(owner)
	}
}

// releaseReplyResources undoes whatever a completed (but now-orphaned)
// reply is still holding: a data block and/or a file-handle client ref
// (spec.md §4.7: "an OPEN_FILE that succeeded becomes a CLOSE_FILE; a
// READ_BLOCK that returned a block becomes a RELEASE_READ_BLOCK; etc.").
func (s *Server) releaseReplyResources(n *request) {
	switch n.Kind() {
	case KindOpenFile:
		if n.status == nil && n.handle != nil {
			if err := n.handle.releaseClientRef(); err != nil {
				s.log.Error("cleanup: close orphaned handle", "error", err)
			}
		}
	case KindReadBlock, KindAllocateWriteBlock:
		if n.status == nil {
			if n.block != nil {
				s.blocks.release(n.block)
			}
			if n.handle != nil {
				if err := n.handle.releaseClientRef(); err != nil {
					s.log.Error("cleanup: release orphaned block", "error", err)
				}
			}
		}
	}
}
