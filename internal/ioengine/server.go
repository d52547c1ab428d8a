package ioengine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Server is the dedicated I/O worker thread (spec.md §4.4, component D).
// Exactly one goroutine runs its loop, from StartServer to Shutdown; it is
// the only goroutine in the engine that touches the OS file system.
//
// Grounded on original_source/src/FileIoServer.cpp's FileIoServer (main
// loop: wait on mailbox event with 1s timeout, drain, dispatch by kind,
// repeat until shutdown) and References/orion-prototipe/cmd/oriond's
// context+WaitGroup goroutine lifecycle idiom.
type Server struct {
	cfg    Config
	pool   *pool
	box    *mailbox
	blocks *blockAllocator

	// commits is drained ahead of the ordinary mailbox each cycle
	// (SPEC_FULL.md §4.9): a narrow resolution of spec.md §9's note that
	// "commit requests should be prioritized on the server to avoid
	// file-length regressions", without building a general N-level
	// priority scheme the spec only gestures at.
	commits treiberStack

	log *slog.Logger

	shutdown chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// StartServer creates the pool and mailbox, applies config defaults, and
// starts the worker goroutine. Mirrors spec.md §6's start(request_pool_capacity).
func StartServer(cfg Config, log *slog.Logger) *Server {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		pool:     newPool(cfg.RequestPoolCapacity),
		box:      newMailbox(),
		blocks:   newBlockAllocator(cfg.BlockBytes),
		log:      log.With("component", "ioengine.server"),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	s.log.Info("server started", "pool_capacity", cfg.RequestPoolCapacity, "block_bytes", cfg.BlockBytes, "prefetch_depth", cfg.PrefetchDepth)
	return s
}

// Config returns the effective (defaulted) configuration.
func (s *Server) Config() Config { return s.cfg }

// Pool exposes the node pool for diagnostics (Stats, tests).
func (s *Server) Pool() *pool { return s.pool }

// Send enqueues a request for the server, routing commit-priority
// requests through the priority stack (SPEC_FULL.md §4.9) and everything
// else through the ordinary mailbox. Mirrors spec.md §6's send(request).
func (s *Server) Send(r *request) {
	if r.priority {
		if wasEmpty := s.commits.push(r); wasEmpty {
			s.box.signal()
		}
		return
	}
	s.box.send(r)
}

// NewRequest allocates a node from the pool, or nil on exhaustion
// (spec.md §4.1).
func (s *Server) NewRequest() *request {
	return s.pool.allocate()
}

// freeRequest returns a node directly to the pool. Used by stream code
// when it owns a node outright (e.g. after popping it from its own
// result queue) and has no further use for it — bypassing the mailbox
// entirely, since the pool is the shared allocator for both client and
// server (spec.md §4.1).
func (s *Server) freeRequest(r *request) {
	s.pool.deallocate(r)
}

// Shutdown signals the worker to stop and waits up to 2s for it to exit
// (spec.md §5's "Server shutdown waits up to 2s for the worker to exit").
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdown)
	s.box.signal()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	select {
	case <-s.done:
		s.log.Info("server stopped")
		return nil
	case <-waitCtx.Done():
		s.log.Warn("server did not stop within shutdown deadline")
		return waitCtx.Err()
	}
}

func (s *Server) run() {
	defer s.wg.Done()
	defer close(s.done)
	for {
		s.drainAndDispatch()
		select {
		case <-s.shutdown:
			return
		default:
		}
		s.box.waitForWork()
		select {
		case <-s.shutdown:
			s.drainAndDispatch()
			return
		default:
		}
	}
}

// drainAndDispatch drains the commit-priority stack first, then the
// ordinary mailbox, dispatching every node in FIFO arrival order within
// each (spec.md §4.2/§4.4).
func (s *Server) drainAndDispatch() {
	for n := s.commits.popAllReversed(); n != nil; {
		next := n.transitNext.Load()
		n.transitNext.Store(nil)
		s.dispatch(n)
		n = next
	}
	for n := s.box.drain(); n != nil; {
		next := n.transitNext.Load()
		n.transitNext.Store(nil)
		s.dispatch(n)
		n = next
	}
}
