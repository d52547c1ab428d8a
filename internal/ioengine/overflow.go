package ioengine

import "github.com/johncgriffin/overflow"

// ErrPositionOverflow is returned when a seek or prefetch computation
// would overflow a 64-bit file position. spec.md treats pool exhaustion
// as a terminal-per-stream ERROR condition; this engine treats position
// overflow the same way, since both are "the arithmetic this stream
// needs cannot be satisfied" rather than a transient condition.
var ErrPositionOverflow = overflowError{}

type overflowError struct{}

func (overflowError) Error() string { return "ioengine: file position overflow" }

// addPosition computes pos+delta, reporting overflow instead of wrapping.
// Grounded on Nexedi-wendelin.core's go.mod dependency on
// github.com/johncgriffin/overflow, used here for prefetch-window and
// seek-target arithmetic (spec.md §4.5/§9).
func addPosition(pos, delta int64) (int64, error) {
	sum, ok := overflow.Add64(pos, delta)
	if !ok {
		return 0, ErrPositionOverflow
	}
	return sum, nil
}

// mulPosition computes a*b, reporting overflow instead of wrapping. Used
// when deriving a byte offset from a block index and block size.
func mulPosition(a, b int64) (int64, error) {
	product, ok := overflow.Mul64(a, b)
	if !ok {
		return 0, ErrPositionOverflow
	}
	return product, nil
}
