package ioengine

import "sync"

// dataBlock is a fixed-size buffer holding one block's worth of file data
// plus the number of valid bytes it currently holds (spec.md §3: "Data
// block: fixed-size buffer... not further specified"; spec.md §1
// explicitly places the data-block pool's internals out of scope).
//
// Grounded on original_source/src/FileIoReadStream.cpp's DataBlock /
// SharedBuffer pair, reduced to the one concern this engine actually
// needs: a byte slice and a valid-length. Recycling is delegated to
// sync.Pool rather than a bespoke lock-free structure, since spec.md
// explicitly leaves this pool unspecified and sync.Pool is the idiomatic
// choice for a size-homogeneous, GC-aware recycling pool.
type dataBlock struct {
	Data  []byte
	Valid int
}

// blockAllocator recycles fixed-size dataBlocks via sync.Pool.
type blockAllocator struct {
	blockBytes int
	pool       sync.Pool
}

func newBlockAllocator(blockBytes int) *blockAllocator {
	a := &blockAllocator{blockBytes: blockBytes}
	a.pool.New = func() any {
		return &dataBlock{Data: make([]byte, blockBytes)}
	}
	return a
}

func (a *blockAllocator) allocate() *dataBlock {
	b := a.pool.Get().(*dataBlock)
	b.Valid = 0
	return b
}

func (a *blockAllocator) release(b *dataBlock) {
	if b == nil {
		return
	}
	b.Valid = 0
	a.pool.Put(b)
}
