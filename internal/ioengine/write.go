package ioengine

// WriteItems implements the write-stream mirror of ReadItems
// (SPEC_FULL.md §4.9): copies src into the prefetch window's blocks,
// marking each touched block BLOCK_MODIFIED so flush/AT_BLOCK_END commit
// it instead of releasing it unmodified. There is no EOF on a write
// stream; writing simply keeps extending the file.
func (s *Stream) WriteItems(src []byte, itemSize int) int {
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

	written := 0
	for written < len(src) {
		head := s.prefetchHead
		if head == nil {
			break
		}

		for head.Kind() != KindBlockReady && head.Kind() != KindBlockModified && head.Kind() != KindBlockError {
			if !s.receiveOneBlock() {
				s.state = StateBuffering
				return written / itemSize
			}
		}

		if head.Kind() == KindBlockError {
			s.status = head.status
			s.state = StateError
			s.srv.freeRequest(s.popPrefetchHead())
			return written / itemSize
		}

		block := head.block
		room := s.srv.cfg.BlockBytes - head.bytesCopied
		want := len(src) - written
		n := min(room, want)
		copy(block.Data[head.bytesCopied:head.bytesCopied+n], src[written:written+n])
		if n > 0 {
			head.bytesCopied += n
			if head.bytesCopied > block.Valid {
				block.Valid = head.bytesCopied
			}
			head.setKind(KindBlockModified)
			written += n
		}

		if head.bytesCopied < s.srv.cfg.BlockBytes {
			continue // CAN_CONTINUE
		}

		// AT_BLOCK_END: extend the window before detaching the head.
		if !s.extendWindow() {
			return written / itemSize
		}
		s.commitOrReleaseHead(head)
		s.receiveOneBlock()
	}
	return written / itemSize
}

// commitOrReleaseHead pops the FIFO head and dispatches it per whether
// the client actually wrote into it.
func (s *Stream) commitOrReleaseHead(head *request) {
	popped := s.popPrefetchHead()
	if popped != head {
		head = popped
	}
	if head.Kind() == KindBlockModified {
		head.setKind(KindCommitModifiedWriteBlock)
		head.priority = true
	} else {
		head.setKind(KindReleaseUnmodifiedWriteBlock)
	}
	s.srv.Send(head)
}
