package ioengine

// Config holds the tuning parameters spec.md §6 calls out: BLOCK_BYTES,
// PREFETCH_DEPTH, and REQUEST_POOL_CAPACITY. The root package's Config
// (config.go) is the YAML-facing superset of this; ioengine only needs
// the numbers themselves.
type Config struct {
	// BlockBytes is the fixed size of a data block. Spec default: 64 KiB.
	BlockBytes int
	// PrefetchDepth is the number of sequential block requests a seek
	// keeps in flight. Spec default: 20. Resolves spec.md §9 Open
	// Question (c) by making this a runtime Config field rather than a
	// compile-time constant, without building a full data-rate-derived
	// auto-tuner the spec only gestures at.
	PrefetchDepth int
	// RequestPoolCapacity is the number of request nodes preallocated at
	// server start. Zero means "derive from CPU count" (defaultPoolCapacity).
	RequestPoolCapacity int
}

// DefaultConfig returns spec.md §6's stated tuning defaults.
func DefaultConfig() Config {
	return Config{
		BlockBytes:          64 * 1024,
		PrefetchDepth:       20,
		RequestPoolCapacity: 0,
	}
}

func (c Config) withDefaults() Config {
	if c.BlockBytes <= 0 {
		c.BlockBytes = 64 * 1024
	}
	if c.PrefetchDepth <= 0 {
		c.PrefetchDepth = 20
	}
	if c.RequestPoolCapacity <= 0 {
		c.RequestPoolCapacity = defaultPoolCapacity()
	}
	return c
}
