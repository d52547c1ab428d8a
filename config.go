package filestream

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/denisfitz57/RealTimeFileStreaming/internal/ioengine"
)

// Config is the YAML-facing superset of ioengine.Config, covering
// spec.md §6's tuning parameters (BlockBytes, PrefetchDepth,
// RequestPoolCapacity).
type Config struct {
	BlockBytes          int `yaml:"block_bytes"`
	PrefetchDepth       int `yaml:"prefetch_depth"`
	RequestPoolCapacity int `yaml:"request_pool_capacity"`
}

// DefaultConfig mirrors spec.md §6's stated defaults: 64 KiB blocks, a
// prefetch depth of 20, and a CPU-derived pool capacity.
func DefaultConfig() Config {
	c := ioengine.DefaultConfig()
	return Config{
		BlockBytes:          c.BlockBytes,
		PrefetchDepth:       c.PrefetchDepth,
		RequestPoolCapacity: c.RequestPoolCapacity,
	}
}

// LoadConfig reads a YAML config file, starting from DefaultConfig and
// overriding whatever keys are present.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "filestream: read config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "filestream: parse config %q", path)
	}
	return cfg, nil
}

func (c Config) toEngine() ioengine.Config {
	return ioengine.Config{
		BlockBytes:          c.BlockBytes,
		PrefetchDepth:       c.PrefetchDepth,
		RequestPoolCapacity: c.RequestPoolCapacity,
	}
}
