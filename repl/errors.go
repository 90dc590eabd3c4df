package repl

import "errors"

// Standard errors.
var (
	// ErrFailed indicates an execution failure: usually the REPL process
	// saying "this code errored", but SerialAdapter also reports any other
	// non-nil error from Process.Send (e.g. a plumbing failure) as ErrFailed.
	ErrFailed = errors.New("repl: execution failed")

	// ErrInterrupted indicates the per-request cancel signal fired before
	// the REPL's execution resolved.
	ErrInterrupted = errors.New("repl: execution interrupted")

	// ErrAdapterClosed is returned by Execute when the adapter has been
	// shut down.
	ErrAdapterClosed = errors.New("repl: adapter closed")

	// ErrSinkClosed is returned by Sink.Write after Sink.Close.
	ErrSinkClosed = errors.New("repl: sink closed")
)
