package ioengine

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(blockBytes, prefetchDepth, poolCapacity int) Config {
	return Config{
		BlockBytes:          blockBytes,
		PrefetchDepth:       prefetchDepth,
		RequestPoolCapacity: poolCapacity,
	}
}

func waitForState(t *testing.T, s *Stream, want State, timeout time.Duration) State {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var got State
	for time.Now().Before(deadline) {
		got = s.PollState()
		if got == want {
			return got
		}
	}
	t.Fatalf("timed out waiting for state %v, last seen %v", want, got)
	return got
}

func writeRandomFile(t *testing.T, size int) (path string, contents []byte) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "data.bin")
	contents = make([]byte, size)
	rand.New(rand.NewSource(1)).Read(contents)
	require.NoError(t, os.WriteFile(path, contents, 0o644))
	return path, contents
}

// S1: open a file, wait for idle, seek(0), wait for streaming, read to
// EOF one byte at a time, and confirm the output equals the file.
func TestStream_SequentialReadToEOF(t *testing.T) {
	path, want := writeRandomFile(t, 10*1024*1024)

	srv := StartServer(testConfig(64*1024, 20, 0), nil)
	defer srv.Shutdown(context.Background())

	st := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, st)
	defer st.Close()

	waitForState(t, st, StateIdle, 5*time.Second)
	require.NoError(t, st.Seek(0))
	waitForState(t, st, StateStreaming, 5*time.Second)

	var got bytes.Buffer
	buf := make([]byte, 1)
	deadline := time.Now().Add(30 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("timed out reading to EOF")
		}
		state := st.PollState()
		if state == StateError {
			t.Fatalf("stream error: %v", st.GetError())
		}
		n := st.ReadItems(buf, 1)
		if n > 0 {
			got.Write(buf[:n])
		}
		if state == StateEOF && n == 0 {
			break
		}
	}
	require.Equal(t, want, got.Bytes())
	require.Equal(t, StateEOF, st.State())
}

// S2: open, seek(0), immediately close before any block replies arrive.
func TestStream_CloseBeforeRepliesLeaksNothing(t *testing.T) {
	path, _ := writeRandomFile(t, 1024*1024)

	srv := StartServer(testConfig(64*1024, 20, 64), nil)
	defer srv.Shutdown(context.Background())

	st := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, st)
	waitForState(t, st, StateIdle, 5*time.Second)
	require.NoError(t, st.Seek(0))
	st.Close()

	require.Eventually(t, func() bool {
		return srv.Pool().FreeCount() == srv.Pool().Capacity()
	}, 5*time.Second, 10*time.Millisecond, "pool must fully drain after close")
}

// S3: open a nonexistent path.
func TestStream_OpenNonexistentPathReachesError(t *testing.T) {
	srv := StartServer(testConfig(64*1024, 20, 0), nil)
	defer srv.Shutdown(context.Background())

	st := Open(srv, filepath.Join(t.TempDir(), "missing.bin"), ReadOnly, false, nil)
	require.NotNil(t, st)

	waitForState(t, st, StateError, 5*time.Second)
	require.Error(t, st.GetError())
	st.Close()
}

// S4: seek to an unaligned offset and confirm the first bytes returned
// match the file starting at that offset.
func TestStream_UnalignedSeek(t *testing.T) {
	path, want := writeRandomFile(t, 1024*1024)

	srv := StartServer(testConfig(64*1024, 4, 0), nil)
	defer srv.Shutdown(context.Background())

	st := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, st)
	defer st.Close()

	waitForState(t, st, StateIdle, 5*time.Second)
	const offset = 64*1024 + 100
	require.NoError(t, st.Seek(offset))
	waitForState(t, st, StateStreaming, 5*time.Second)

	got := make([]byte, 4096)
	var n int
	require.Eventually(t, func() bool {
		st.PollState()
		n = st.ReadItems(got, 1)
		return n > 0
	}, 5*time.Second, 5*time.Millisecond)

	require.Equal(t, want[offset:offset+n], got[:n])
}

// S5: exhaust the pool by opening many streams; freeing one restores
// capacity for the next open.
func TestStream_PoolExhaustionAndRecovery(t *testing.T) {
	path, _ := writeRandomFile(t, 4096)
	srv := StartServer(testConfig(64*1024, 1, 2), nil)
	defer srv.Shutdown(context.Background())

	first := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, first)
	second := Open(srv, path, ReadOnly, false, nil)
	// Pool capacity 2 = exactly enough for one stream's root+open nodes;
	// a second open must fail.
	require.Nil(t, second)

	first.Close()
	require.Eventually(t, func() bool {
		return srv.Pool().FreeCount() == srv.Pool().Capacity()
	}, 5*time.Second, 10*time.Millisecond)

	third := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, third)
	third.Close()
}

// S7: close a stream while block requests are still outstanding (its root
// is marked KindResultQueueAwaitingCleanup and freed only once the last
// straggling reply lands), then open a second stream on the same Server.
// A tight pool makes it overwhelmingly likely the second stream's root
// reuses the very node the first stream's root just vacated; if reset()
// (or Open) failed to clear that node's stale kind, the second stream's
// OPEN_FILE reply would be misrouted into the cleanup path instead of its
// own result queue and the stream would hang forever in StateOpening.
func TestStream_RootNodeReuseAfterCleanup(t *testing.T) {
	path, _ := writeRandomFile(t, 4*1024*1024)

	// 22 = root + open-file node + a 20-block prefetch window.
	srv := StartServer(testConfig(64*1024, 20, 22), nil)
	defer srv.Shutdown(context.Background())

	first := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, first)
	waitForState(t, first, StateIdle, 5*time.Second)
	require.NoError(t, first.Seek(0))
	first.Close() // closes with prefetch-window block requests still in flight

	require.Eventually(t, func() bool {
		return srv.Pool().FreeCount() == srv.Pool().Capacity()
	}, 5*time.Second, 10*time.Millisecond, "pool must fully drain after close")

	second := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, second)
	defer second.Close()

	waitForState(t, second, StateIdle, 5*time.Second)
	require.NoError(t, second.Seek(0))
	waitForState(t, second, StateStreaming, 5*time.Second)
}

// S6: seek, then seek again before the first window's replies arrive.
func TestStream_SeekBeforePriorWindowArrives(t *testing.T) {
	path, want := writeRandomFile(t, 4*1024*1024)

	srv := StartServer(testConfig(64*1024, 20, 0), nil)
	defer srv.Shutdown(context.Background())

	st := Open(srv, path, ReadOnly, false, nil)
	require.NotNil(t, st)
	defer st.Close()

	waitForState(t, st, StateIdle, 5*time.Second)
	require.NoError(t, st.Seek(0))
	require.NoError(t, st.Seek(64*1024*30))

	waitForState(t, st, StateStreaming, 5*time.Second)

	got := make([]byte, 4096)
	var n int
	require.Eventually(t, func() bool {
		st.PollState()
		n = st.ReadItems(got, 1)
		return n > 0
	}, 5*time.Second, 5*time.Millisecond)

	offset := 64 * 1024 * 30
	require.Equal(t, want[offset:offset+n], got[:n])
}
