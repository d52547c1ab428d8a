package filestream

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/denisfitz57/RealTimeFileStreaming/internal/ioengine"
)

// Re-exported from internal/ioengine so callers never import the
// internal package directly.
type (
	State = ioengine.State
)

const (
	StateOpening   = ioengine.StateOpening
	StateIdle      = ioengine.StateIdle
	StateBuffering = ioengine.StateBuffering
	StateStreaming = ioengine.StateStreaming
	StateEOF       = ioengine.StateEOF
	StateError     = ioengine.StateError
)

// ErrPoolExhausted is returned by Seek (and reported by GetError) when
// the request node pool has no free nodes (spec.md §4.1). OpenRead and
// OpenWrite report exhaustion by returning nil instead.
var ErrPoolExhausted = ioengine.ErrPoolExhausted

// Server owns the pool, mailbox, and dedicated I/O worker goroutine
// (spec.md §4.4). Create with StartServer; every Stream must be opened
// against a running Server.
type Server struct {
	eng *ioengine.Server
	log *slog.Logger
}

// StartServer creates the pool and mailbox and starts the worker
// goroutine (spec.md §6's start(request_pool_capacity)). A nil logger
// falls back to slog.Default().
func StartServer(cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{eng: ioengine.StartServer(cfg.toEngine(), log), log: log}
}

// Shutdown stops the worker, waiting up to 2s for it to exit (spec.md
// §5/§6's shutdown()).
func (s *Server) Shutdown(ctx context.Context) error {
	return s.eng.Shutdown(ctx)
}

// OpenRead opens path for reading (spec.md §6's open(path, READ_ONLY)).
// Returns nil on pool exhaustion.
func (s *Server) OpenRead(path string) *Stream {
	st := ioengine.Open(s.eng, path, ioengine.ReadOnly, false, s.log)
	if st == nil {
		return nil
	}
	return &Stream{st: st}
}

// OpenWrite opens path for read-write, creating it if necessary (spec.md
// §6's open(path, READ_WRITE_OVERWRITE)). Returns nil on pool exhaustion.
func (s *Server) OpenWrite(path string) *Stream {
	st := ioengine.Open(s.eng, path, ioengine.ReadWriteOverwrite, true, s.log)
	if st == nil {
		return nil
	}
	return &Stream{st: st}
}

// Stats is a point-in-time snapshot of server and process health.
type Stats struct {
	PoolCapacity  int
	PoolFree      int
	CPUPercent    float64
	RSSBytes      uint64
	CollectedAt   time.Time
	ProcessLookup error
}

// Stats samples the request pool occupancy and this process's CPU/RSS
// via gopsutil, giving an operator a cheap health check without needing
// to shell out to `ps`.
func (s *Server) Stats() Stats {
	st := Stats{
		PoolCapacity: s.eng.Pool().Capacity(),
		PoolFree:     s.eng.Pool().FreeCount(),
		CollectedAt:  time.Now(),
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		st.ProcessLookup = err
		return st
	}
	if pct, err := proc.CPUPercent(); err == nil {
		st.CPUPercent = pct
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		st.RSSBytes = mem.RSS
	}
	return st
}

// Stream is a client's handle onto an open file (spec.md §4.5/§4.6).
// Not safe for concurrent use by multiple goroutines — the same contract
// as a single audio callback thread owning one stream.
type Stream struct {
	st *ioengine.Stream
}

// ID returns the stream's unique identifier, used for log correlation.
func (s *Stream) ID() string { return s.st.ID.String() }

// Seek rounds pos down to block alignment and issues a fresh prefetch
// window (spec.md §4.6's seek(pos)).
func (s *Stream) Seek(pos int64) error { return s.st.Seek(pos) }

// PollState advances the state machine by at most one reply and returns
// the current state (spec.md §4.6's poll_state()).
func (s *Stream) PollState() State { return s.st.PollState() }

// State returns the current state without advancing the machine.
func (s *Stream) State() State { return s.st.State() }

// GetError returns the last observed error (spec.md §6's get_error()).
func (s *Stream) GetError() error { return s.st.GetError() }

// Read copies up to len(dst) bytes, treating each byte as one item
// (spec.md §6's read with item_size=1). Returns the number of bytes
// copied.
func (s *Stream) Read(dst []byte) int { return s.st.ReadItems(dst, 1) }

// ReadItems copies whole items of itemSize bytes each, never splitting
// an item across a block boundary (spec.md §4.6's item_size/item_count
// alignment precondition). Returns the number of whole items copied.
func (s *Stream) ReadItems(dst []byte, itemSize int) int {
	return s.st.ReadItems(dst, itemSize)
}

// Write copies up to len(src) bytes into the stream's write window,
// treating each byte as one item. Returns the number of bytes consumed.
func (s *Stream) Write(src []byte) int { return s.st.WriteItems(src, 1) }

// WriteItems is the item-sized counterpart to Write.
func (s *Stream) WriteItems(src []byte, itemSize int) int {
	return s.st.WriteItems(src, itemSize)
}

// Close runs the cleanup protocol (spec.md §4.7): never blocks, never
// fails, safe even with requests still outstanding.
func (s *Stream) Close() { s.st.Close() }
