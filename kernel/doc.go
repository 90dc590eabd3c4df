// Package kernel implements the execution kernel of an interactive
// notebook: a long-lived scheduler that accepts code-execution requests
// over a bounded Terminal, dispatches them serially to a pluggable REPL
// adapter, streams output back through an unbounded repl.Sink, and
// supports a two-level interrupt that cancels both the in-flight request
// and every request still queued behind it.
//
// The kernel is an actor system of four long-lived goroutines (ingress,
// dispatcher and cancellation watcher, supervised by a single
// errgroup.Group, plus whatever the chosen repl.Adapter runs internally,
// which the adapter starts and stops itself), communicating
// exclusively over channels and a counting admission semaphore. Callers
// only ever see the Terminal returned by New.
package kernel
