// Package filestream implements a real-time file streaming engine: a
// client goroutine opens a Stream and issues Seek/Read/Write calls that
// never block, never allocate, and never touch the OS directly. All
// blocking file I/O happens on a single dedicated server goroutine;
// clients communicate with it through a lock-free request pool, an MPSC
// mailbox, and per-stream SPSC result queues.
//
// Typical use:
//
//	srv := filestream.StartServer(filestream.DefaultConfig(), nil)
//	defer srv.Shutdown(context.Background())
//
//	st := srv.OpenRead("/path/to/file")
//	if st == nil {
//		// pool exhausted
//	}
//	defer st.Close()
//
//	for st.PollState() == filestream.StateOpening {
//	}
//	if err := st.Seek(0); err != nil {
//		// invalid state or pool exhaustion
//	}
//	buf := make([]byte, 4096)
//	for {
//		switch st.PollState() {
//		case filestream.StateEOF, filestream.StateError:
//			return
//		}
//		n := st.Read(buf)
//		if n == 0 {
//			continue
//		}
//		// consume buf[:n]
//	}
//
// The engine proper lives in internal/ioengine; this package re-exports
// its public surface, mirroring the layout of a distribution module that
// hides its mechanism in an internal package.
package filestream
