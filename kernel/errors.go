package kernel

import "errors"

// Standard errors.
var (
	// ErrClosed is returned by Terminal.Send once Terminal.Close has been
	// called.
	ErrClosed = errors.New("kernel: closed")

	// ErrInvalidCapacity is the panic value kernel.New raises when given a
	// non-positive capacity: the spec treats 0 as a programming error, not
	// a runtime condition to recover from.
	ErrInvalidCapacity = errors.New("kernel: capacity must be >= 1")
)
