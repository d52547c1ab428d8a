//go:build !linux

package ioengine

import "os"

// fadviseSequential is a no-op on platforms without posix_fadvise.
func fadviseSequential(f *os.File) {}
