// Command filestreamctl is a demo client for the filestream engine: it
// opens a file, seeks to an offset, reads it to EOF in fixed-size
// chunks, and reports throughput and pool stats.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/denisfitz57/RealTimeFileStreaming"
)

func main() {
	path := flag.String("path", "", "file to stream (required)")
	configPath := flag.String("config", "", "optional YAML config path")
	seek := flag.Int64("seek", 0, "byte offset to seek to before reading")
	chunk := flag.Int("chunk", 4096, "read chunk size in bytes")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *path == "" {
		logger.Error("missing required -path flag")
		os.Exit(1)
	}

	cfg := filestream.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = filestream.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	srv := filestream.StartServer(cfg, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown did not complete cleanly", "error", err)
		}
	}()

	st := srv.OpenRead(*path)
	if st == nil {
		logger.Error("request pool exhausted while opening stream")
		os.Exit(1)
	}
	defer st.Close()

	for st.PollState() == filestream.StateOpening {
	}
	if st.State() == filestream.StateError {
		logger.Error("open failed", "error", st.GetError())
		os.Exit(1)
	}

	if err := st.Seek(*seek); err != nil {
		logger.Error("seek failed", "error", err)
		os.Exit(1)
	}

	buf := make([]byte, *chunk)
	var total int64
	start := time.Now()

	for {
		state := st.PollState()
		if state == filestream.StateError {
			logger.Error("stream error", "error", st.GetError())
			os.Exit(1)
		}
		n := st.Read(buf)
		total += int64(n)
		if n > 0 {
			if _, err := os.Stdout.Write(buf[:n]); err != nil && err != io.EOF {
				logger.Error("stdout write failed", "error", err)
				os.Exit(1)
			}
		}
		if state == filestream.StateEOF && n == 0 {
			break
		}
	}

	elapsed := time.Since(start)
	stats := srv.Stats()
	logger.Info("stream complete",
		"bytes", total,
		"elapsed", elapsed,
		"pool_capacity", stats.PoolCapacity,
		"pool_free", stats.PoolFree,
	)
}
