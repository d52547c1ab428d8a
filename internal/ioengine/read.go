package ioengine

// ReadItems implements spec.md §4.6's read(stream, dst, item_size,
// item_count): dst's length must already equal item_size*item_count.
// itemSize must divide the server's BlockBytes (spec.md §4.6's
// alignment precondition; straddling items are an explicit non-goal).
// Returns the number of whole items copied into dst.
func (s *Stream) ReadItems(dst []byte, itemSize int) int {
	if itemSize <= 0 || s.srv.cfg.BlockBytes%itemSize != 0 {
		panic("ioengine: item_size must evenly divide BlockBytes")
	}

	s.PollState()

	switch s.state {
	case StateOpening, StateIdle, StateEOF, StateError:
		return 0
	case StateBuffering:
		for s.receiveOneBlock() {
		}
		if s.state == StateBuffering {
			return 0
		}
	}

	if s.state != StateStreaming {
		return 0
	}

	copied := 0
	for copied < len(dst) {
		head := s.prefetchHead
		if head == nil {
			// spec.md §3 invariant 3: the FIFO is never empty while
			// streaming. Defensive only.
			break
		}

		for head.Kind() != KindBlockReady && head.Kind() != KindBlockError {
			if !s.receiveOneBlock() {
				s.state = StateBuffering
				return copied / itemSize
			}
		}

		if head.Kind() == KindBlockError {
			s.status = head.status
			s.state = StateError
			s.srv.freeRequest(s.popPrefetchHead())
			return copied / itemSize
		}

		block := head.block
		remaining := block.Valid - head.bytesCopied
		want := len(dst) - copied
		n := min(remaining, want)
		copy(dst[copied:copied+n], block.Data[head.bytesCopied:head.bytesCopied+n])
		copied += n
		head.bytesCopied += n

		if head.bytesCopied < block.Valid {
			continue // CAN_CONTINUE
		}

		if head.atEOF {
			s.releaseHead(head)
			s.state = StateEOF
			return copied / itemSize
		}

		// AT_BLOCK_END: extend the window before releasing the head, so
		// the FIFO is never transiently empty (spec.md §9).
		if !s.extendWindow() {
			return copied / itemSize
		}
		s.releaseHead(head)
		s.receiveOneBlock()
	}
	return copied / itemSize
}

// releaseHead pops the FIFO head (which must be head) and sends the
// matching release request back to the server.
func (s *Stream) releaseHead(head *request) {
	popped := s.popPrefetchHead()
	if popped != head {
		// invariant violation guard; still dispose of whatever was popped.
		head = popped
	}
	head.setKind(KindReleaseReadBlock)
	s.srv.Send(head)
}
