// Package repl defines the REPL-facing adapter contract used by the kernel
// dispatcher: a single execute operation, raced against per-request
// cancellation, fed by a serialised inbound message queue.
//
// Concrete backends live in sibling packages (replmock, replproc, replgoja);
// this package only defines the shapes and the generic serial adapter that
// drives any Process implementation.
package repl
