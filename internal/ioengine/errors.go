package ioengine

import "errors"

// errInvalidState is returned by Seek when called in OPENING or ERROR
// (spec.md §6: "-1 if state is OPENING/ERROR or pool exhaustion").
var errInvalidState = errors.New("ioengine: operation invalid in current stream state")
