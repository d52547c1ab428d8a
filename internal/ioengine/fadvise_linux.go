//go:build linux

package ioengine

import (
	"os"

	"golang.org/x/sys/unix"
)

// fadviseSequential hints to the kernel that f will be read/written with
// a mostly-sequential access pattern, which is true of every stream this
// engine serves: a prefetch-ahead reader or an append-mostly writer.
// Grounded on KarpelesLab-rofuse's go.mod dependency on golang.org/x/sys.
func fadviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
